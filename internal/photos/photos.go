// Package photos manages a property's main image and its ordered list of
// additional images.
package photos

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/alextreichler/estatehub/internal/apperr"
	"github.com/alextreichler/estatehub/internal/blob"
	"github.com/alextreichler/estatehub/internal/models"
)

// Repository persists the image fields of a property.
type Repository interface {
	UpdatePropertyImages(ctx context.Context, p *models.Property) error
}

// File is an uploaded image.
type File struct {
	Name    string
	Content io.Reader
}

type Manager struct {
	blobs blob.Store
	repo  Repository
	now   func() time.Time
}

func NewManager(blobs blob.Store, repo Repository) *Manager {
	return &Manager{blobs: blobs, repo: repo, now: time.Now}
}

// SetMainImage stores f and makes it the main image. The previous main image
// blob is removed unless it is the shared default.
func (m *Manager) SetMainImage(ctx context.Context, p *models.Property, f File) (string, error) {
	newPath, err := m.save(ctx, f)
	if err != nil {
		return "", err
	}

	old := p.MainImage
	p.MainImage = newPath
	p.Touch(m.now())
	if err := m.persist(ctx, p, newPath); err != nil {
		p.MainImage = old
		return "", err
	}

	if old != "" && old != models.DefaultPropertyImage {
		m.bestEffortDelete(ctx, p.ID, old)
	}
	return newPath, nil
}

// DeleteMainImage resets the main image to the default. It is a no-op when
// the default is already set.
func (m *Manager) DeleteMainImage(ctx context.Context, p *models.Property) error {
	if !p.HasCustomMainImage() {
		return nil
	}
	if _, err := m.blobs.Delete(ctx, p.MainImage); err != nil {
		return apperr.Storage("failed to delete image", err)
	}
	p.MainImage = models.DefaultPropertyImage
	p.Touch(m.now())
	return m.update(ctx, p)
}

// AddAdditionalImage stores f and appends it to the additional images.
func (m *Manager) AddAdditionalImage(ctx context.Context, p *models.Property, f File) (string, error) {
	newPath, err := m.save(ctx, f)
	if err != nil {
		return "", err
	}

	prev := p.AdditionalImages
	p.AdditionalImages = append(append(models.ImageList{}, prev...), newPath)
	p.Touch(m.now())
	if err := m.persist(ctx, p, newPath); err != nil {
		p.AdditionalImages = prev
		return "", err
	}
	return newPath, nil
}

// RemoveAdditionalImage deletes the blob at path and drops it from the list.
// Paths that are not in the list are ignored.
func (m *Manager) RemoveAdditionalImage(ctx context.Context, p *models.Property, path string) error {
	if !p.AdditionalImages.Contains(path) {
		return nil
	}
	if _, err := m.blobs.Delete(ctx, path); err != nil {
		return apperr.Storage("failed to delete image", err)
	}
	p.AdditionalImages = p.AdditionalImages.Without(path)
	p.Touch(m.now())
	return m.update(ctx, p)
}

// ReplaceAllAdditionalImages stores files and either appends them
// (keepExisting) or replaces the current list, deleting the old blobs.
// An empty files slice leaves the property untouched.
func (m *Manager) ReplaceAllAdditionalImages(ctx context.Context, p *models.Property, files []File, keepExisting bool) error {
	if len(files) == 0 {
		return nil
	}

	stored := make(models.ImageList, 0, len(files))
	for _, f := range files {
		newPath, err := m.save(ctx, f)
		if err != nil {
			for _, s := range stored {
				m.bestEffortDelete(ctx, p.ID, s)
			}
			return err
		}
		stored = append(stored, newPath)
	}

	prev := p.AdditionalImages
	if keepExisting {
		p.AdditionalImages = append(append(models.ImageList{}, prev...), stored...)
	} else {
		p.AdditionalImages = stored
	}
	p.Touch(m.now())
	if err := m.update(ctx, p); err != nil {
		p.AdditionalImages = prev
		for _, s := range stored {
			m.bestEffortDelete(ctx, p.ID, s)
		}
		return err
	}

	if !keepExisting {
		for _, old := range prev {
			m.bestEffortDelete(ctx, p.ID, old)
		}
	}
	return nil
}

// DeleteAll removes every blob owned by p ahead of record deletion. Failures
// are logged and counted, never returned.
func (m *Manager) DeleteAll(ctx context.Context, p *models.Property) (failed int) {
	paths := make([]string, 0, len(p.AdditionalImages)+1)
	if p.HasCustomMainImage() {
		paths = append(paths, p.MainImage)
	}
	paths = append(paths, p.AdditionalImages...)

	for _, path := range paths {
		if !m.bestEffortDelete(ctx, p.ID, path) {
			failed++
		}
	}
	return failed
}

func (m *Manager) save(ctx context.Context, f File) (string, error) {
	if f.Content == nil {
		return "", apperr.ValidationField("photo", "No photo uploaded")
	}
	p, err := m.blobs.Save(ctx, blob.DirProperties, f.Name, f.Content)
	if err != nil {
		if err == blob.ErrUnsupportedFormat {
			return "", apperr.ValidationField("photo", err.Error())
		}
		return "", apperr.Storage("failed to store image", err)
	}
	return p, nil
}

// persist saves p, removing the freshly stored blob if the write fails.
func (m *Manager) persist(ctx context.Context, p *models.Property, newPath string) error {
	if err := m.update(ctx, p); err != nil {
		m.bestEffortDelete(ctx, p.ID, newPath)
		return err
	}
	return nil
}

// update writes the image fields. Unclassified database errors are reported
// as storage failures.
func (m *Manager) update(ctx context.Context, p *models.Property) error {
	err := m.repo.UpdatePropertyImages(ctx, p)
	if err != nil && apperr.KindOf(err) == apperr.KindInternal {
		return apperr.Storage("failed to save property images", err)
	}
	return err
}

func (m *Manager) bestEffortDelete(ctx context.Context, propertyID int64, path string) bool {
	if path == models.DefaultPropertyImage {
		return true
	}
	if _, err := m.blobs.Delete(ctx, path); err != nil {
		slog.Warn("Failed to delete property image", "property_id", propertyID, "path", path, "error", err)
		return false
	}
	return true
}
