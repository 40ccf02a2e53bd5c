package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/alextreichler/estatehub/internal/apperr"
	"github.com/alextreichler/estatehub/internal/models"
	"github.com/alextreichler/estatehub/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore opens a migrated SQLite database whose clock advances one
// second per write, so "newest first" orderings are deterministic.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DialectSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := time.Now().UTC().Truncate(time.Second)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func seedUser(t *testing.T, s *Store, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{FullName: "Test " + email, Email: email, PasswordHash: "x", Role: role, IsActive: true}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func seedProperty(t *testing.T, s *Store, ownerID int64, mutate func(p *models.Property)) *models.Property {
	t.Helper()
	p := &models.Property{
		Title:        "Sea view apartment",
		Description:  "Bright flat near the beach",
		PropertyType: models.TypeApartment,
		ListingType:  models.ListingSale,
		Price:        100000,
		Address:      "1 Beach Road",
		City:         "Goa",
		State:        "Goa",
		Bedrooms:     intp(2),
		Bathrooms:    intp(1),
		Status:       models.PropertyAvailable,
		OwnerID:      ownerID,
	}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, s.CreateProperty(context.Background(), p))
	return p
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	cities, err := s.ActiveCities(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, cities, "seed migration inserts cities")

	// Reopening the same file must not re-run applied migrations.
	path := filepath.Join(t.TempDir(), "again.db")
	first, err := Open(context.Background(), DialectSQLite, path)
	require.NoError(t, err)
	first.Close()
	second, err := Open(context.Background(), DialectSQLite, path)
	require.NoError(t, err)
	second.Close()
}

func TestCreateAndGetProperty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := seedUser(t, s, "owner@example.com", models.RoleAdmin)

	p := seedProperty(t, s, owner.ID, func(p *models.Property) {
		p.MainImage = ""
		p.AdditionalImages = models.ImageList{"/images/properties/a.jpg", "/images/properties/b.jpg"}
		p.SquareFeet = floatp(850.5)
	})

	got, err := s.GetPropertyByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPropertyImage, got.MainImage)
	assert.Equal(t, p.AdditionalImages, got.AdditionalImages)
	assert.Equal(t, owner.FullName, got.OwnerName)
	assert.Equal(t, 0, got.ViewCount)
	require.NotNil(t, got.SquareFeet)
	assert.Equal(t, 850.5, *got.SquareFeet)
	assert.Nil(t, got.YearBuilt)

	_, err = s.GetPropertyByID(ctx, 9999)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	bad := &models.Property{Title: "x", AdditionalImages: models.ImageList{"a,b"}}
	assert.Error(t, s.CreateProperty(ctx, bad))
}

func TestSearchProperties(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := seedUser(t, s, "owner@example.com", models.RoleAdmin)

	cheap := seedProperty(t, s, owner.ID, func(p *models.Property) {
		p.Title = "Cosy studio"
		p.Description = "Studio with 100% natural light"
		p.Price = 900
		p.ListingType = models.ListingRent
		p.Bedrooms = intp(1)
		p.City = "Pune"
	})
	mid := seedProperty(t, s, owner.ID, func(p *models.Property) {
		p.Title = "Family house"
		p.PropertyType = models.TypeHouse
		p.Price = 250000
		p.Bedrooms = intp(4)
		p.Bathrooms = intp(3)
	})
	luxury := seedProperty(t, s, owner.ID, func(p *models.Property) {
		p.Title = "Cliff villa"
		p.PropertyType = models.TypeVilla
		p.Price = 2000000
		p.Bedrooms = nil
	})
	seedProperty(t, s, owner.ID, func(p *models.Property) {
		p.Title = "Sold bungalow"
		p.Status = models.PropertySold
		p.City = "Mumbai"
	})

	require.NoError(t, s.IncrementViewCount(ctx, luxury.ID))
	require.NoError(t, s.IncrementViewCount(ctx, luxury.ID))
	require.NoError(t, s.IncrementViewCount(ctx, cheap.ID))

	ids := func(r *search.Result) []int64 {
		var out []int64
		for _, p := range r.Items {
			out = append(out, p.ID)
		}
		return out
	}

	t.Run("public visibility hides non-available", func(t *testing.T) {
		r, err := s.SearchProperties(ctx, search.Params{})
		require.NoError(t, err)
		assert.Equal(t, 3, r.TotalCount)
		assert.Equal(t, []int64{luxury.ID, mid.ID, cheap.ID}, ids(r), "newest first")
	})

	t.Run("admin visibility shows all", func(t *testing.T) {
		r, err := s.SearchProperties(ctx, search.Params{Visibility: search.VisibilityAll})
		require.NoError(t, err)
		assert.Equal(t, 4, r.TotalCount)
	})

	t.Run("text search", func(t *testing.T) {
		r, err := s.SearchProperties(ctx, search.Params{SearchTerm: "villa"})
		require.NoError(t, err)
		assert.Equal(t, []int64{luxury.ID}, ids(r))
	})

	t.Run("text search matches wildcards literally", func(t *testing.T) {
		r, err := s.SearchProperties(ctx, search.Params{SearchTerm: "%"})
		require.NoError(t, err)
		assert.Equal(t, []int64{cheap.ID}, ids(r))

		r, err = s.SearchProperties(ctx, search.Params{SearchTerm: "100% natural"})
		require.NoError(t, err)
		assert.Equal(t, []int64{cheap.ID}, ids(r))

		for _, term := range []string{"_", "1_0", `\`, "100%%"} {
			r, err = s.SearchProperties(ctx, search.Params{SearchTerm: term})
			require.NoError(t, err)
			assert.Zero(t, r.TotalCount, term)
			assert.Empty(t, r.Items, term)
		}
	})

	t.Run("price range", func(t *testing.T) {
		r, err := s.SearchProperties(ctx, search.Params{MinPrice: floatp(1000), MaxPrice: floatp(300000)})
		require.NoError(t, err)
		assert.Equal(t, []int64{mid.ID}, ids(r))
	})

	t.Run("minimum bedrooms excludes unknown", func(t *testing.T) {
		r, err := s.SearchProperties(ctx, search.Params{MinBedrooms: intp(1)})
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{cheap.ID, mid.ID}, ids(r))
	})

	t.Run("type and listing filters", func(t *testing.T) {
		r, err := s.SearchProperties(ctx, search.Params{ListingType: "Rent"})
		require.NoError(t, err)
		assert.Equal(t, []int64{cheap.ID}, ids(r))

		r, err = s.SearchProperties(ctx, search.Params{PropertyType: "House", City: "Goa"})
		require.NoError(t, err)
		assert.Equal(t, []int64{mid.ID}, ids(r))
	})

	t.Run("sorts", func(t *testing.T) {
		r, err := s.SearchProperties(ctx, search.Params{Sort: search.SortPriceAsc})
		require.NoError(t, err)
		assert.Equal(t, []int64{cheap.ID, mid.ID, luxury.ID}, ids(r))

		r, err = s.SearchProperties(ctx, search.Params{Sort: search.SortPopular})
		require.NoError(t, err)
		assert.Equal(t, []int64{luxury.ID, cheap.ID, mid.ID}, ids(r))

		r, err = s.SearchProperties(ctx, search.Params{Sort: search.SortOldest})
		require.NoError(t, err)
		assert.Equal(t, []int64{cheap.ID, mid.ID, luxury.ID}, ids(r))

		r, err = s.SearchProperties(ctx, search.Params{Sort: search.SortPriceDesc})
		require.NoError(t, err)
		assert.Equal(t, []int64{luxury.ID, mid.ID, cheap.ID}, ids(r))
	})

	t.Run("paging", func(t *testing.T) {
		r, err := s.SearchProperties(ctx, search.Params{PageSize: 2, Page: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, r.TotalCount)
		assert.Equal(t, 2, r.TotalPages)
		assert.Equal(t, []int64{cheap.ID}, ids(r))

		r, err = s.SearchProperties(ctx, search.Params{PageSize: 2, Page: 9})
		require.NoError(t, err)
		assert.Empty(t, r.Items, "a page past the end is empty, not an error")
		assert.Equal(t, 3, r.TotalCount)

		for _, page := range []int{math.MaxInt, 1 << 62, search.MaxPage + 1} {
			r, err = s.SearchProperties(ctx, search.Params{Page: page})
			require.NoError(t, err, page)
			assert.Empty(t, r.Items, page)
			assert.Equal(t, 3, r.TotalCount)
			assert.Equal(t, 1, r.TotalPages)
		}

		r, err = s.SearchProperties(ctx, search.Params{Page: math.MaxInt, PageSize: search.MaxPageSize, Visibility: search.VisibilityAll})
		require.NoError(t, err)
		assert.Empty(t, r.Items)
		assert.Equal(t, 4, r.TotalCount)
	})

	t.Run("facets", func(t *testing.T) {
		r, err := s.SearchProperties(ctx, search.Params{SearchTerm: "no such listing"})
		require.NoError(t, err)
		assert.Equal(t, 0, r.TotalCount)
		assert.Equal(t, []string{"Goa", "Pune"}, r.Facets.Cities, "only available listings contribute cities")
		assert.Equal(t, []string{"Apartment", "House", "Villa"}, r.Facets.PropertyTypes)
		assert.Equal(t, []string{"Rent", "Sale"}, r.Facets.ListingTypes)
	})
}

func TestPropertyMutations(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := seedUser(t, s, "owner@example.com", models.RoleAdmin)
	p := seedProperty(t, s, owner.ID, nil)

	featured, err := s.ToggleFeatured(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, featured)

	require.NoError(t, s.IncrementViewCount(ctx, p.ID))
	top, err := s.FeaturedProperties(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 1, top[0].ViewCount)

	require.NoError(t, s.UpdatePropertyStatus(ctx, p.ID, models.PropertyPending))
	top, err = s.FeaturedProperties(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, top, "only available listings are featured on the home page")

	p.Title = "Renamed"
	p.Status = models.PropertyAvailable
	require.NoError(t, s.UpdateProperty(ctx, p))
	got, err := s.GetPropertyByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, 1, got.ViewCount, "updates keep the view count")
	assert.NotNil(t, got.UpdatedAt)

	got.MainImage = "/images/properties/new.jpg"
	got.AdditionalImages = models.ImageList{"/images/properties/x.jpg"}
	require.NoError(t, s.UpdatePropertyImages(ctx, got))
	again, err := s.GetPropertyByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "/images/properties/new.jpg", again.MainImage)
	assert.Equal(t, models.ImageList{"/images/properties/x.jpg"}, again.AdditionalImages)

	assert.True(t, errors.Is(s.UpdatePropertyStatus(ctx, 9999, models.PropertySold), apperr.ErrNotFound))
}

func TestDeletePropertyCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := seedUser(t, s, "owner@example.com", models.RoleAdmin)
	visitor := seedUser(t, s, "visitor@example.com", models.RoleUser)
	p := seedProperty(t, s, owner.ID, nil)

	b := &models.Booking{PropertyID: p.ID, UserID: visitor.ID, BookingDate: time.Now().AddDate(0, 0, 3), BookingTime: "10:00"}
	require.NoError(t, s.CreateBooking(ctx, b))
	in := &models.Inquiry{PropertyID: &p.ID, Name: "V", Email: "visitor@example.com", Message: "Is it available?"}
	require.NoError(t, s.CreateInquiry(ctx, in))

	require.NoError(t, s.DeleteProperty(ctx, p.ID))

	_, err := s.GetPropertyByID(ctx, p.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	_, err = s.GetBookingByID(ctx, b.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "bookings are removed with the property")

	kept, err := s.GetInquiryByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.PropertyID, "inquiries are detached, not deleted")

	assert.True(t, errors.Is(s.DeleteProperty(ctx, p.ID), apperr.ErrNotFound))
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "jane@example.com", models.RoleUser)
	seedUser(t, s, "admin@example.com", models.RoleAdmin)

	err := s.CreateUser(ctx, &models.User{FullName: "Dup", Email: "jane@example.com", PasswordHash: "x", Role: models.RoleUser})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	got, err := s.GetUserByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	active, err := s.ToggleUserActive(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, active)

	got.Phone = "+91 98765 43210"
	got.ProfileImage = "/images/users/jane.jpg"
	require.NoError(t, s.UpdateUserProfile(ctx, got))
	require.NoError(t, s.UpdateUserPassword(ctx, u.ID, "new-hash"))
	got, err = s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.Equal(t, "/images/users/jane.jpg", got.ProfileImage)
	assert.False(t, got.IsActive)

	users, err := s.ListUsers(ctx, models.RoleUser)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "jane@example.com", users[0].Email)
}

func TestBookingsConditionalCancel(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := seedUser(t, s, "owner@example.com", models.RoleAdmin)
	visitor := seedUser(t, s, "visitor@example.com", models.RoleUser)
	other := seedUser(t, s, "other@example.com", models.RoleUser)
	p := seedProperty(t, s, owner.ID, nil)

	b := &models.Booking{PropertyID: p.ID, UserID: visitor.ID, BookingDate: time.Now().AddDate(0, 0, 1), BookingTime: "11:00", Message: "Morning please"}
	require.NoError(t, s.CreateBooking(ctx, b))
	assert.Equal(t, models.BookingPending, b.Status)

	changed, err := s.CancelBooking(ctx, b.ID, other.ID, models.BookingPending)
	require.NoError(t, err)
	assert.False(t, changed, "another user cannot cancel")

	changed, err = s.CancelBooking(ctx, b.ID, visitor.ID, models.BookingPending)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.CancelBooking(ctx, b.ID, visitor.ID, models.BookingPending)
	require.NoError(t, err)
	assert.False(t, changed, "a cancelled booking is not pending anymore")

	got, err := s.GetBookingByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, got.Status)
	assert.Equal(t, p.Title, got.PropertyTitle)
	assert.Equal(t, visitor.Email, got.UserEmail)

	require.NoError(t, s.UpdateBookingStatus(ctx, b.ID, models.BookingCancelled, "Visitor withdrew"))
	list, err := s.ListBookingsByUser(ctx, visitor.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Visitor withdrew", list[0].AdminNotes)

	n, err := s.CountBookingsByProperty(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.DeleteBooking(ctx, b.ID))
	assert.True(t, errors.Is(s.DeleteBooking(ctx, b.ID), apperr.ErrNotFound))
}

func TestInquiryReplyOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	visitor := seedUser(t, s, "visitor@example.com", models.RoleUser)

	in := &models.Inquiry{UserID: &visitor.ID, Name: "Visitor", Email: "visitor@example.com", Message: "Do you list in Goa?"}
	require.NoError(t, s.CreateInquiry(ctx, in))
	assert.Equal(t, models.InquiryNew, in.Status)

	changed, err := s.ReplyInquiry(ctx, in.ID, "Yes we do.", time.Now())
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.ReplyInquiry(ctx, in.ID, "Second answer", time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := s.GetInquiryByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InquiryReplied, got.Status)
	assert.Equal(t, "Yes we do.", got.AdminReply)
	assert.NotNil(t, got.RepliedAt)
	assert.Nil(t, got.PropertyID)

	mine, err := s.ListInquiriesByUser(ctx, visitor.ID, 5)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	admin := seedUser(t, s, "admin@example.com", models.RoleAdmin)
	visitor := seedUser(t, s, "visitor@example.com", models.RoleUser)
	p := seedProperty(t, s, admin.ID, func(p *models.Property) { p.IsFeatured = true })
	seedProperty(t, s, admin.ID, func(p *models.Property) {
		p.PropertyType = models.TypeLand
		p.Status = models.PropertySold
	})
	require.NoError(t, s.IncrementViewCount(ctx, p.ID))
	require.NoError(t, s.CreateBooking(ctx, &models.Booking{PropertyID: p.ID, UserID: visitor.ID, BookingDate: time.Now(), BookingTime: "09:00"}))
	require.NoError(t, s.CreateInquiry(ctx, &models.Inquiry{PropertyID: &p.ID, UserID: &visitor.ID, Name: "V", Email: "v@example.com", Message: "Hi"}))

	dash, err := s.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dash.TotalUsers, "admins are not counted as users")
	assert.Equal(t, 2, dash.TotalProperties)
	assert.Equal(t, 1, dash.AvailableProperties)
	assert.Equal(t, 1, dash.PendingBookings)
	assert.Equal(t, 1, dash.NewInquiries)
	assert.Equal(t, 1, dash.FeaturedCount)
	assert.Equal(t, 1, dash.TotalViews)
	assert.Equal(t, 2, dash.ActiveUsers)
	assert.Equal(t, 1, dash.PropertiesByType[models.TypeLand])
	assert.Equal(t, 0, dash.PropertiesByType[models.TypeVilla])
	assert.Len(t, dash.RecentBookings, 1)

	mine, err := s.GetUserDashboardStats(ctx, visitor.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, mine.Bookings)
	assert.Equal(t, 1, mine.PendingBookings)
	assert.Equal(t, 1, mine.Inquiries)
	assert.Equal(t, 0, mine.RepliedInquiries)

	home, err := s.GetHomeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, home.TotalProperties)
	assert.Equal(t, 1, home.TotalUsers)
	assert.Equal(t, 1, home.FeaturedCount)
}

func TestCities(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	admin := seedUser(t, s, "admin@example.com", models.RoleAdmin)

	require.NoError(t, s.UpsertCity(ctx, &models.City{Name: "Goa", State: "Goa", IsActive: true}))
	seedProperty(t, s, admin.ID, nil)
	seedProperty(t, s, admin.ID, nil)
	seedProperty(t, s, admin.ID, func(p *models.Property) { p.Status = models.PropertySold })

	n, err := s.RefreshCityCounts(ctx)
	require.NoError(t, err)
	assert.Positive(t, n)

	cities, err := s.ActiveCities(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, cities)
	assert.Equal(t, "Goa", cities[0].Name, "largest count first")
	assert.Equal(t, 2, cities[0].PropertyCount)
}

func TestRebind(t *testing.T) {
	s := &Store{dialect: DialectPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", s.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))
	s.dialect = DialectSQLite
	assert.Equal(t, "a = ?", s.rebind("a = ?"))
}
