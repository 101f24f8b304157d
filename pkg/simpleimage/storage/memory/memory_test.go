package memory_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-image/pkg/simpleimage"
	"github.com/tendant/simple-image/pkg/simpleimage/storage/memory"
)

func TestMemoryBackend(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()

	t.Run("upload and download", func(t *testing.T) {
		err := backend.Upload(ctx, "raw/abc.png", strings.NewReader("test content"))
		require.NoError(t, err)

		exists, err := backend.Exists(ctx, "raw/abc.png")
		require.NoError(t, err)
		assert.True(t, exists)

		rc, err := backend.Download(ctx, "raw/abc.png")
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "test content", string(data))
	})

	t.Run("upload with params records the mime type", func(t *testing.T) {
		err := backend.UploadWithParams(ctx, strings.NewReader("image bytes"), simpleimage.UploadParams{
			ObjectKey: "raw/def.jpg",
			MimeType:  "image/jpeg",
		})
		require.NoError(t, err)

		meta, err := backend.GetObjectMeta(ctx, "raw/def.jpg")
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", meta.ContentType)
		assert.Equal(t, int64(len("image bytes")), meta.Size)
	})

	t.Run("missing object", func(t *testing.T) {
		exists, err := backend.Exists(ctx, "raw/nope.png")
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = backend.Download(ctx, "raw/nope.png")
		assert.ErrorIs(t, err, simpleimage.ErrObjectNotFound)

		err = backend.Delete(ctx, "raw/nope.png")
		assert.ErrorIs(t, err, simpleimage.ErrObjectNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, backend.Upload(ctx, "raw/gone.png", strings.NewReader("x")))
		require.NoError(t, backend.Delete(ctx, "raw/gone.png"))

		exists, err := backend.Exists(ctx, "raw/gone.png")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestMemoryBackendListKeys(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()

	hash := "aaaa"
	for _, key := range []string{
		"raw/" + hash + ".png",
		"transformed/" + hash + "_jpeg_100x0.jpeg",
		"transformed/" + hash + "_png_50x50.png",
		"transformed/bbbb_jpeg_100x0.jpeg",
	} {
		require.NoError(t, backend.Upload(ctx, key, strings.NewReader("x")))
	}

	keys, err := backend.ListKeys(ctx, simpleimage.TransformKeyPrefix(hash))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"transformed/" + hash + "_jpeg_100x0.jpeg",
		"transformed/" + hash + "_png_50x50.png",
	}, keys)

	keys, err = backend.ListKeys(ctx, "transformed/cccc_")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
