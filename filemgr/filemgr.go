// Package filemgr stores uploaded product images on local disk, next to a
// resized thumbnail, and hands back the public URLs for both.
package filemgr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

const (
	MaxImageBytes = 10 << 20
	MaxDimension  = 4000
	ThumbWidth    = 300

	// URLPrefix is where the upload root is served.
	URLPrefix = "/uploads"
)

var (
	ErrInvalidExtension = errors.New("invalid file extension")
	ErrInvalidMIME      = errors.New("invalid MIME type")
	ErrFileTooLarge     = errors.New("file size exceeds limit")
	ErrBadDimensions    = errors.New("image dimensions exceed limit")
	ErrNotAnImage       = errors.New("file is not a decodable image")
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var allowedMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Store writes images under Root. Originals go to <Root>/<folder>, thumbnails
// to <Root>/<folder>/thumbs.
type Store struct {
	Root string
}

// Saved describes one stored upload by its public URLs.
type Saved struct {
	URL      string `json:"url"`
	ThumbURL string `json:"thumbUrl"`
}

// IsClientError reports whether err was caused by the upload itself rather
// than the filesystem.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrInvalidMIME) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrBadDimensions) ||
		errors.Is(err, ErrNotAnImage)
}

// SaveImage validates and stores one image plus its thumbnail.
func (s Store) SaveImage(r io.Reader, filename, folder string) (Saved, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return Saved{}, fmt.Errorf("%w: %q", ErrInvalidExtension, ext)
	}

	buf, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return Saved{}, fmt.Errorf("read upload: %w", err)
	}
	if len(buf) > MaxImageBytes {
		return Saved{}, ErrFileTooLarge
	}
	if mime := http.DetectContentType(buf); !allowedMIMEs[mime] {
		return Saved{}, fmt.Errorf("%w: %s", ErrInvalidMIME, mime)
	}

	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return Saved{}, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	if b := img.Bounds(); b.Dx() > MaxDimension || b.Dy() > MaxDimension {
		return Saved{}, fmt.Errorf("%w: %dx%d", ErrBadDimensions, b.Dx(), b.Dy())
	}

	dir := filepath.Join(s.Root, folder)
	thumbDir := filepath.Join(dir, "thumbs")
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return Saved{}, fmt.Errorf("mkdir %s: %w", thumbDir, err)
	}

	base := uuid.NewString()
	name := base + ext
	if err := os.WriteFile(filepath.Join(dir, name), buf, 0o644); err != nil {
		return Saved{}, fmt.Errorf("write original: %w", err)
	}

	thumbName := base + ".jpg"
	if err := writeThumbnail(img, filepath.Join(thumbDir, thumbName)); err != nil {
		_ = os.Remove(filepath.Join(dir, name))
		return Saved{}, err
	}

	log.Debug().Str("file", name).Int("bytes", len(buf)).Msg("image stored")
	return Saved{
		URL:      path.Join(URLPrefix, folder, name),
		ThumbURL: path.Join(URLPrefix, folder, "thumbs", thumbName),
	}, nil
}

// Remove deletes the original and thumbnail behind each upload. Files that
// are already gone are skipped.
func (s Store) Remove(list ...Saved) {
	for _, sv := range list {
		for _, u := range []string{sv.URL, sv.ThumbURL} {
			p, ok := s.localPath(u)
			if !ok {
				continue
			}
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Warn().Err(err).Str("path", p).Msg("failed to remove upload")
			}
		}
	}
}

// localPath maps a public upload URL back under Root. Anything outside
// URLPrefix is refused.
func (s Store) localPath(url string) (string, bool) {
	rel, found := strings.CutPrefix(url, URLPrefix+"/")
	if !found || rel == "" {
		return "", false
	}
	clean := path.Clean("/" + rel)
	return filepath.Join(s.Root, filepath.FromSlash(clean)), true
}

func writeThumbnail(img image.Image, dest string) error {
	thumb := imaging.Resize(img, ThumbWidth, 0, imaging.Lanczos)
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create thumbnail: %w", err)
	}
	defer out.Close()
	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	return nil
}
