// Package blob stores uploaded images on the local filesystem.
package blob

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/alextreichler/estatehub/internal/models"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

const (
	DirProperties = "properties"
	DirUsers      = "users"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format, only PNG, JPG and JPEG are allowed")
	ErrInvalidPath       = errors.New("path is outside the image store")
)

// Store is the blob store boundary used by the photo workflow.
type Store interface {
	// Save writes the image read from r under dir with a fresh unique name
	// and returns its public path.
	Save(ctx context.Context, dir, filename string, r io.Reader) (string, error)
	// Delete removes the blob at path and reports whether it existed.
	Delete(ctx context.Context, path string) (bool, error)
	Exists(ctx context.Context, path string) bool
}

// FileStore keeps images under Root and exposes them as URLPrefix/<dir>/<name>.
type FileStore struct {
	Root      string
	URLPrefix string
	MaxWidth  uint
	Quality   int
}

func NewFileStore(root, urlPrefix string) *FileStore {
	return &FileStore{
		Root:      root,
		URLPrefix: "/" + strings.Trim(urlPrefix, "/"),
		MaxWidth:  1200,
		Quality:   85,
	}
}

func (fs *FileStore) Save(ctx context.Context, dir, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if dir == "" || strings.ContainsAny(dir, `/\.`) {
		return "", fmt.Errorf("invalid image directory %q", dir)
	}

	var (
		img image.Image
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		img, err = png.Decode(r)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(r)
	default:
		return "", ErrUnsupportedFormat
	}
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	// Downscale only, preserving the aspect ratio.
	if fs.MaxWidth > 0 && uint(img.Bounds().Dx()) > fs.MaxWidth {
		img = resize.Resize(fs.MaxWidth, 0, img, resize.Lanczos3)
	}

	target := filepath.Join(fs.Root, dir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}

	name := uuid.New().String() + ".jpg"
	out, err := os.OpenFile(filepath.Join(target, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: fs.Quality}); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", err
	}

	return path.Join(fs.URLPrefix, dir, name), nil
}

func (fs *FileStore) Delete(ctx context.Context, publicPath string) (bool, error) {
	if publicPath == models.DefaultPropertyImage {
		return false, nil
	}
	local, err := fs.localPath(publicPath)
	if err != nil {
		return false, err
	}
	err = os.Remove(local)
	switch {
	case err == nil:
		slog.Debug("Deleted image", "path", publicPath)
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (fs *FileStore) Exists(ctx context.Context, publicPath string) bool {
	local, err := fs.localPath(publicPath)
	if err != nil {
		return false
	}
	info, err := os.Stat(local)
	return err == nil && !info.IsDir()
}

// localPath maps a public path onto the filesystem, refusing anything that
// escapes Root.
func (fs *FileStore) localPath(publicPath string) (string, error) {
	clean := path.Clean("/" + publicPath)
	prefix := fs.URLPrefix + "/"
	if !strings.HasPrefix(clean, prefix) {
		return "", ErrInvalidPath
	}
	rel := strings.TrimPrefix(clean, prefix)
	if rel == "" || strings.HasPrefix(rel, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(fs.Root, filepath.FromSlash(rel)), nil
}
