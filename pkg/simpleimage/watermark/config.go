package watermark

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Position places the watermark in one of the four image corners.
type Position string

const (
	PositionBottomRight Position = "bottom-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionTopRight    Position = "top-right"
	PositionTopLeft     Position = "top-left"
)

// Config is the process-wide watermark configuration, loaded once at startup
// and immutable thereafter.
type Config struct {
	Enabled  bool
	Text     string
	Position Position
	// FontSize is the base size in pixels, used when a size cannot be
	// scaled from the image width.
	FontSize int
	// Color is the text color as a #rrggbb hex string.
	Color string
	// Opacity of the text in [0.0, 1.0].
	Opacity float64
	// Margin from the image edge in pixels.
	Margin int
}

// DefaultConfig returns the hard-coded fallback configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:  false,
		Text:     "",
		Position: PositionBottomRight,
		FontSize: 24,
		Color:    "#ffffff",
		Opacity:  0.5,
		Margin:   16,
	}
}

// Validate checks every field against its valid range.
func (c Config) Validate() error {
	switch c.Position {
	case PositionBottomRight, PositionBottomLeft, PositionTopRight, PositionTopLeft:
	default:
		return fmt.Errorf("invalid position: %q", c.Position)
	}
	if c.FontSize < 1 || c.FontSize > 200 {
		return fmt.Errorf("font size out of range: %d", c.FontSize)
	}
	if c.Opacity < 0.0 || c.Opacity > 1.0 {
		return fmt.Errorf("opacity out of range: %g", c.Opacity)
	}
	if c.Margin < 0 {
		return fmt.Errorf("negative margin: %d", c.Margin)
	}
	if _, err := parseHexColor(c.Color); err != nil {
		return err
	}
	if c.Enabled && c.Text == "" {
		return fmt.Errorf("watermark enabled with empty text")
	}
	return nil
}

// Sanitize returns c when valid, and the hard-coded defaults otherwise. The
// whole configuration is replaced on any out-of-range field: fail-safe, not
// fail-stop.
func Sanitize(c Config) Config {
	if err := c.Validate(); err != nil {
		return DefaultConfig()
	}
	return c
}

func parseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color: %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color: %q", s)
	}
	return color.RGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 0xff,
	}, nil
}
