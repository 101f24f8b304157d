package simpleimage

import "fmt"

// Object key prefixes. These formats are load-bearing: any persisted state
// addresses objects by these exact strings.
const (
	rawKeyPrefix       = "raw/"
	transformKeyPrefix = "transformed/"
)

// RawKey returns the object key for an original image:
// raw/{hash}.{format}.
func RawKey(hash, format string) string {
	return fmt.Sprintf("%s%s.%s", rawKeyPrefix, hash, format)
}

// TransformKey returns the object key for a transformed variant:
// transformed/{hash}_{format}_{width}x{height}[_wm].{format}.
// The _wm suffix is appended only when watermarked is true. Format,
// dimensions and the watermark flag are embedded verbatim, so distinct
// inputs never collide.
func TransformKey(hash, format string, width, height int, watermarked bool) string {
	key := fmt.Sprintf("%s%s_%s_%dx%d", transformKeyPrefix, hash, format, width, height)
	if watermarked {
		key += "_wm"
	}
	return key + "." + format
}

// TransformKeyPrefix returns the key prefix shared by every transformed
// variant of the given content hash, used for cache invalidation.
func TransformKeyPrefix(hash string) string {
	return transformKeyPrefix + hash + "_"
}
