// Package service holds the application use cases shared by the public site,
// the user area and the admin back office.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/alextreichler/estatehub/internal/apperr"
	"github.com/alextreichler/estatehub/internal/cache"
	"github.com/alextreichler/estatehub/internal/models"
	"github.com/alextreichler/estatehub/internal/photos"
	"github.com/alextreichler/estatehub/internal/search"
)

const (
	homeFeaturedLimit = 3
	homeLatestLimit   = 6
)

type PropertyStore interface {
	photos.Repository
	SearchProperties(ctx context.Context, params search.Params) (*search.Result, error)
	GetPropertyByID(ctx context.Context, id int64) (*models.Property, error)
	CreateProperty(ctx context.Context, p *models.Property) error
	UpdateProperty(ctx context.Context, p *models.Property) error
	UpdatePropertyStatus(ctx context.Context, id int64, status models.PropertyStatus) error
	ToggleFeatured(ctx context.Context, id int64) (bool, error)
	IncrementViewCount(ctx context.Context, id int64) error
	DeleteProperty(ctx context.Context, id int64) error
	FeaturedProperties(ctx context.Context, limit int) ([]models.Property, error)
	LatestProperties(ctx context.Context, limit int) ([]models.Property, error)
	ActiveCities(ctx context.Context) ([]models.City, error)
	GetHomeStats(ctx context.Context) (*models.HomeStats, error)
}

// PropertyInput is the listing form shared by create and edit.
type PropertyInput struct {
	Title        string   `form:"title" validate:"required,max=200"`
	Description  string   `form:"description" validate:"required"`
	PropertyType string   `form:"property_type" validate:"required,oneof=House Apartment Villa Commercial Land"`
	ListingType  string   `form:"listing_type" validate:"required,oneof=Sale Rent"`
	Price        float64  `form:"price" validate:"gt=0"`
	Address      string   `form:"address" validate:"required,max=300"`
	City         string   `form:"city" validate:"required,max=100"`
	State        string   `form:"state" validate:"required,max=100"`
	ZipCode      string   `form:"zip_code" validate:"required,max=20"`
	Bedrooms     *int     `form:"bedrooms" validate:"omitempty,gte=0,lte=100"`
	Bathrooms    *int     `form:"bathrooms" validate:"omitempty,gte=0,lte=100"`
	SquareFeet   *float64 `form:"square_feet" validate:"omitempty,gt=0"`
	YearBuilt    *int     `form:"year_built" validate:"omitempty,gte=1800,lte=2100"`
	Parking      string   `form:"parking" validate:"max=100"`
	Features     string   `form:"features" validate:"max=2000"`
	Status       string   `form:"status" validate:"omitempty,oneof=Available Pending Sold Cancelled"`
	IsFeatured   bool     `form:"is_featured"`
}

func (in *PropertyInput) apply(p *models.Property) {
	p.Title = strings.TrimSpace(in.Title)
	p.Description = strings.TrimSpace(in.Description)
	p.PropertyType = models.PropertyType(in.PropertyType)
	p.ListingType = models.ListingType(in.ListingType)
	p.Price = in.Price
	p.Address = strings.TrimSpace(in.Address)
	p.City = strings.TrimSpace(in.City)
	p.State = strings.TrimSpace(in.State)
	p.ZipCode = strings.TrimSpace(in.ZipCode)
	p.Bedrooms = in.Bedrooms
	p.Bathrooms = in.Bathrooms
	p.SquareFeet = in.SquareFeet
	p.YearBuilt = in.YearBuilt
	p.Parking = strings.TrimSpace(in.Parking)
	p.Features = strings.TrimSpace(in.Features)
	if in.Status != "" {
		p.Status = models.PropertyStatus(in.Status)
	}
	p.IsFeatured = in.IsFeatured
}

// PropertyPhotos are the optional uploads sent with the listing form.
type PropertyPhotos struct {
	Main               *photos.File
	Additional         []photos.File
	KeepExistingImages bool
}

// Home is the landing page content.
type Home struct {
	Featured []models.Property
	Latest   []models.Property
	Cities   []models.City
	Stats    *models.HomeStats
}

type Properties struct {
	store  PropertyStore
	photos *photos.Manager
	cache  cache.SearchCache
}

func NewProperties(store PropertyStore, photoManager *photos.Manager, searchCache cache.SearchCache) *Properties {
	if searchCache == nil {
		searchCache = cache.Noop{}
	}
	return &Properties{store: store, photos: photoManager, cache: searchCache}
}

// Search runs the listing pipeline. Public searches are served from the
// cache when possible.
func (s *Properties) Search(ctx context.Context, params search.Params) (*search.Result, error) {
	params = params.Normalize()
	cacheable := params.Visibility == search.VisibilityAvailable
	if cacheable {
		if r, ok := s.cache.Get(ctx, params); ok {
			return r, nil
		}
	}
	r, err := s.store.SearchProperties(ctx, params)
	if err != nil {
		return nil, err
	}
	if cacheable {
		s.cache.Set(ctx, params, r)
	}
	return r, nil
}

func (s *Properties) Get(ctx context.Context, id int64) (*models.Property, error) {
	return s.store.GetPropertyByID(ctx, id)
}

// View loads an Available property for the public detail page and counts
// the visit. Listings in any other status are reported as not found.
func (s *Properties) View(ctx context.Context, id int64) (*models.Property, error) {
	p, err := s.store.GetPropertyByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PropertyAvailable {
		return nil, apperr.NotFound("property")
	}
	if err := s.store.IncrementViewCount(ctx, id); err != nil {
		slog.Warn("Failed to increment view count", "property_id", id, "error", err)
	} else {
		p.ViewCount++
	}
	return p, nil
}

func (s *Properties) Home(ctx context.Context) (*Home, error) {
	featured, err := s.store.FeaturedProperties(ctx, homeFeaturedLimit)
	if err != nil {
		return nil, err
	}
	latest, err := s.store.LatestProperties(ctx, homeLatestLimit)
	if err != nil {
		return nil, err
	}
	cities, err := s.store.ActiveCities(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.GetHomeStats(ctx)
	if err != nil {
		return nil, err
	}
	return &Home{Featured: featured, Latest: latest, Cities: cities, Stats: stats}, nil
}

// Create validates in, inserts the listing owned by ownerID and stores the
// uploaded photos. The listing is kept when a photo fails; the error is
// returned so the caller can report it.
func (s *Properties) Create(ctx context.Context, ownerID int64, in PropertyInput, files PropertyPhotos) (*models.Property, error) {
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	p := &models.Property{
		OwnerID:   ownerID,
		Status:    models.PropertyAvailable,
		MainImage: models.DefaultPropertyImage,
	}
	in.apply(p)
	if err := s.store.CreateProperty(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	slog.Info("Property created", "property_id", p.ID, "owner_id", ownerID)

	if err := s.attachPhotos(ctx, p, files); err != nil {
		return p, err
	}
	return p, nil
}

// Update saves the listing fields, replaces the main image when a new one is
// uploaded and appends or replaces the additional images.
func (s *Properties) Update(ctx context.Context, id int64, in PropertyInput, files PropertyPhotos) (*models.Property, error) {
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	p, err := s.store.GetPropertyByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	if err := s.store.UpdateProperty(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	if err := s.attachPhotos(ctx, p, files); err != nil {
		return p, err
	}
	return p, nil
}

func (s *Properties) attachPhotos(ctx context.Context, p *models.Property, files PropertyPhotos) error {
	if files.Main != nil {
		if _, err := s.photos.SetMainImage(ctx, p, *files.Main); err != nil {
			return err
		}
	}
	if len(files.Additional) > 0 {
		if err := s.photos.ReplaceAllAdditionalImages(ctx, p, files.Additional, files.KeepExistingImages); err != nil {
			return err
		}
	}
	if files.Main != nil || len(files.Additional) > 0 {
		s.invalidate(ctx)
	}
	return nil
}

// Delete removes the listing's photos, then the listing with its bookings.
// Inquiries about it are kept and detached.
func (s *Properties) Delete(ctx context.Context, id int64) error {
	p, err := s.store.GetPropertyByID(ctx, id)
	if err != nil {
		return err
	}
	if failed := s.photos.DeleteAll(ctx, p); failed > 0 {
		slog.Warn("Some property images could not be deleted", "property_id", id, "failed", failed)
	}
	if err := s.store.DeleteProperty(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	slog.Info("Property deleted", "property_id", id)
	return nil
}

func (s *Properties) SetStatus(ctx context.Context, id int64, status models.PropertyStatus) error {
	if !status.Valid() {
		return apperr.ValidationField("status", "Invalid status")
	}
	if err := s.store.UpdatePropertyStatus(ctx, id, status); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Cancel withdraws a listing from the public site.
func (s *Properties) Cancel(ctx context.Context, id int64) error {
	return s.SetStatus(ctx, id, models.PropertyCancelled)
}

func (s *Properties) ToggleFeatured(ctx context.Context, id int64) (bool, error) {
	featured, err := s.store.ToggleFeatured(ctx, id)
	if err != nil {
		return false, err
	}
	s.invalidate(ctx)
	return featured, nil
}

// AddPhoto uploads f as the main image or appends it to the additional images.
func (s *Properties) AddPhoto(ctx context.Context, id int64, f photos.File, isMain bool) (string, error) {
	p, err := s.store.GetPropertyByID(ctx, id)
	if err != nil {
		return "", err
	}
	var path string
	if isMain {
		path, err = s.photos.SetMainImage(ctx, p, f)
	} else {
		path, err = s.photos.AddAdditionalImage(ctx, p, f)
	}
	if err != nil {
		return "", err
	}
	s.invalidate(ctx)
	return path, nil
}

// DeletePhoto removes the main image (resetting it to the default) or one
// additional image.
func (s *Properties) DeletePhoto(ctx context.Context, id int64, path string, isMain bool) error {
	p, err := s.store.GetPropertyByID(ctx, id)
	if err != nil {
		return err
	}
	if isMain {
		err = s.photos.DeleteMainImage(ctx, p)
	} else {
		if path == "" {
			return apperr.ValidationField("path", "Image path is required")
		}
		err = s.photos.RemoveAdditionalImage(ctx, p, path)
	}
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Properties) invalidate(ctx context.Context) {
	// Detach from request cancellation so a closed connection does not leave stale pages behind.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	s.cache.Invalidate(ctx)
}
