package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/alextreichler/estatehub/internal/apperr"
	"github.com/alextreichler/estatehub/internal/models"
	"github.com/alextreichler/estatehub/internal/photos"
	"github.com/alextreichler/estatehub/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngFile(t *testing.T, name string) photos.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return photos.File{Name: name, Content: &buf}
}

func TestCreatePropertyValidation(t *testing.T) {
	env := newTestEnv(t)
	admin := env.admin(t)

	in := validProperty()
	in.Title = ""
	in.PropertyType = "Castle"
	in.Price = 0
	_, err := env.properties.Create(context.Background(), admin.ID, in, PropertyPhotos{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	fields := apperr.FieldsOf(err)
	assert.Equal(t, "Title is required", fields["title"])
	assert.Contains(t, fields["property_type"], "must be one of")
	assert.Contains(t, fields, "price")
}

func TestCreatePropertyWithPhotos(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.admin(t)

	main := pngFile(t, "front.png")
	p, err := env.properties.Create(ctx, admin.ID, validProperty(), PropertyPhotos{
		Main:       &main,
		Additional: []photos.File{pngFile(t, "a.png"), pngFile(t, "b.png")},
	})
	require.NoError(t, err)
	assert.Equal(t, models.PropertyAvailable, p.Status)

	got, err := env.properties.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.HasCustomMainImage())
	assert.Len(t, got.AdditionalImages, 2)
	assert.True(t, env.blobs.Exists(ctx, got.MainImage))
}

func TestCreateKeepsListingWhenPhotoFails(t *testing.T) {
	env := newTestEnv(t)
	admin := env.admin(t)

	bad := photos.File{Name: "scan.gif", Content: bytes.NewReader([]byte("GIF89a"))}
	p, err := env.properties.Create(context.Background(), admin.ID, validProperty(), PropertyPhotos{Main: &bad})
	require.Error(t, err)
	require.NotNil(t, p, "the listing is saved before its photos")
	assert.Equal(t, models.DefaultPropertyImage, p.MainImage)
}

func TestSearchUsesCacheForPublicListings(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.admin(t)
	env.property(t, admin.ID, nil)

	r, err := env.properties.Search(ctx, search.Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, r.TotalCount)

	_, err = env.properties.Search(ctx, search.Params{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, env.cache.hits, "the normalised request is served from cache")

	_, err = env.properties.Search(ctx, search.Params{Visibility: search.VisibilityAll})
	require.NoError(t, err)
	_, err = env.properties.Search(ctx, search.Params{Visibility: search.VisibilityAll})
	require.NoError(t, err)
	assert.Equal(t, 1, env.cache.hits, "admin searches bypass the cache")

	before := env.cache.invalidated
	env.property(t, admin.ID, func(in *PropertyInput) { in.Title = "Second" })
	assert.Greater(t, env.cache.invalidated, before)

	r, err = env.properties.Search(ctx, search.Params{})
	require.NoError(t, err)
	assert.Equal(t, 2, r.TotalCount, "writes invalidate cached pages")
}

func TestViewCountsAndHidesUnavailable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.admin(t)
	p := env.property(t, admin.ID, nil)

	v, err := env.properties.View(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, v.ViewCount)

	require.NoError(t, env.properties.Cancel(ctx, p.ID))
	_, err = env.properties.View(ctx, p.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	got, err := env.properties.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PropertyCancelled, got.Status)
	assert.Equal(t, 1, got.ViewCount)
}

func TestSetStatusRejectsUnknown(t *testing.T) {
	env := newTestEnv(t)
	admin := env.admin(t)
	p := env.property(t, admin.ID, nil)

	err := env.properties.SetStatus(context.Background(), p.ID, "Archived")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUpdateProperty(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.admin(t)
	p := env.property(t, admin.ID, nil)

	_, err := env.properties.AddPhoto(ctx, p.ID, pngFile(t, "old.png"), false)
	require.NoError(t, err)

	in := validProperty()
	in.Title = "Lake house, renovated"
	in.Status = "Pending"
	updated, err := env.properties.Update(ctx, p.ID, in, PropertyPhotos{
		Additional: []photos.File{pngFile(t, "new.png")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Lake house, renovated", updated.Title)
	assert.Equal(t, models.PropertyPending, updated.Status)
	require.Len(t, updated.AdditionalImages, 1, "without keep_existing the list is replaced")

	_, err = env.properties.Update(ctx, 9999, in, PropertyPhotos{})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestPhotoOperations(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.admin(t)
	p := env.property(t, admin.ID, nil)

	mainPath, err := env.properties.AddPhoto(ctx, p.ID, pngFile(t, "main.png"), true)
	require.NoError(t, err)
	extra, err := env.properties.AddPhoto(ctx, p.ID, pngFile(t, "extra.png"), false)
	require.NoError(t, err)

	got, err := env.properties.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, mainPath, got.MainImage)
	assert.Equal(t, models.ImageList{extra}, got.AdditionalImages)

	require.NoError(t, env.properties.DeletePhoto(ctx, p.ID, extra, false))
	require.NoError(t, env.properties.DeletePhoto(ctx, p.ID, "", true))
	got, err = env.properties.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPropertyImage, got.MainImage)
	assert.Empty(t, got.AdditionalImages)
	assert.False(t, env.blobs.Exists(ctx, mainPath))
	assert.False(t, env.blobs.Exists(ctx, extra))

	err = env.properties.DeletePhoto(ctx, p.ID, "", false)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestDeletePropertyRemovesPhotos(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.admin(t)
	p := env.property(t, admin.ID, nil)
	path, err := env.properties.AddPhoto(ctx, p.ID, pngFile(t, "main.png"), true)
	require.NoError(t, err)

	require.NoError(t, env.properties.Delete(ctx, p.ID))
	assert.False(t, env.blobs.Exists(ctx, path))
	_, err = env.properties.Get(ctx, p.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestHome(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.admin(t)
	for i := 0; i < 8; i++ {
		env.property(t, admin.ID, func(in *PropertyInput) { in.IsFeatured = i%2 == 0 })
	}

	home, err := env.properties.Home(ctx)
	require.NoError(t, err)
	assert.Len(t, home.Featured, 3)
	assert.Len(t, home.Latest, 6)
	assert.Equal(t, 8, home.Stats.TotalProperties)
	assert.NotEmpty(t, home.Cities)
}

func TestToggleFeatured(t *testing.T) {
	env := newTestEnv(t)
	admin := env.admin(t)
	p := env.property(t, admin.ID, nil)

	featured, err := env.properties.ToggleFeatured(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, featured)
	featured, err = env.properties.ToggleFeatured(context.Background(), p.ID)
	require.NoError(t, err)
	assert.False(t, featured)
}
