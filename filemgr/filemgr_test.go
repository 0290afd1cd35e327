package filemgr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSaveImageWritesOriginalAndThumbnail(t *testing.T) {
	root := t.TempDir()
	store := Store{Root: root}

	saved, err := store.SaveImage(bytes.NewReader(pngBytes(t, 600, 400)), "Shirt Front.PNG", "products")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(saved.URL, "/uploads/products/"))
	assert.True(t, strings.HasSuffix(saved.URL, ".png"))
	assert.True(t, strings.HasPrefix(saved.ThumbURL, "/uploads/products/thumbs/"))

	original := filepath.Join(root, strings.TrimPrefix(saved.URL, URLPrefix))
	_, err = os.Stat(original)
	require.NoError(t, err)

	thumb, err := imaging.Open(filepath.Join(root, strings.TrimPrefix(saved.ThumbURL, URLPrefix)))
	require.NoError(t, err)
	assert.Equal(t, ThumbWidth, thumb.Bounds().Dx())
	assert.Equal(t, 200, thumb.Bounds().Dy())
}

func TestRemoveDeletesBothFiles(t *testing.T) {
	root := t.TempDir()
	store := Store{Root: root}

	saved, err := store.SaveImage(bytes.NewReader(pngBytes(t, 50, 50)), "a.png", "products")
	require.NoError(t, err)

	store.Remove(saved, Saved{URL: "/elsewhere/x.png"}, Saved{URL: "/uploads/../../etc/passwd"})

	for _, u := range []string{saved.URL, saved.ThumbURL} {
		_, err := os.Stat(filepath.Join(root, strings.TrimPrefix(u, URLPrefix)))
		assert.True(t, os.IsNotExist(err), u)
	}
}

func TestLocalPathStaysUnderRoot(t *testing.T) {
	store := Store{Root: "/srv/uploads"}

	p, ok := store.localPath("/uploads/../../etc/passwd")
	require.True(t, ok)
	assert.Equal(t, filepath.FromSlash("/srv/uploads/etc/passwd"), p)

	_, ok = store.localPath("/static/a.png")
	assert.False(t, ok)
}

func TestSaveImageRejections(t *testing.T) {
	store := Store{Root: t.TempDir()}

	_, err := store.SaveImage(bytes.NewReader(pngBytes(t, 10, 10)), "notes.txt", "products")
	assert.ErrorIs(t, err, ErrInvalidExtension)

	_, err = store.SaveImage(strings.NewReader("plain text pretending"), "fake.png", "products")
	assert.ErrorIs(t, err, ErrInvalidMIME)

	_, err = store.SaveImage(bytes.NewReader(pngBytes(t, MaxDimension+1, 1)), "wide.png", "products")
	assert.ErrorIs(t, err, ErrBadDimensions)
	assert.True(t, IsClientError(err))
}
