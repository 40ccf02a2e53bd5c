package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alextreichler/estatehub/internal/blob"
	"github.com/alextreichler/estatehub/internal/models"
	"github.com/alextreichler/estatehub/internal/photos"
	"github.com/alextreichler/estatehub/internal/search"
	"github.com/alextreichler/estatehub/internal/store"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingMailer struct {
	mu       sync.Mutex
	bookings []models.Booking
	replies  []models.Inquiry
	err      error
}

func (m *recordingMailer) InquiryReplied(ctx context.Context, in *models.Inquiry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, *in)
	return m.err
}

func (m *recordingMailer) BookingStatusChanged(ctx context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings = append(m.bookings, *b)
	return m.err
}

type memoryCache struct {
	mu          sync.Mutex
	entries     map[string]*search.Result
	hits        int
	invalidated int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]*search.Result{}}
}

func (c *memoryCache) Get(ctx context.Context, p search.Params) (*search.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[p.CacheKey()]
	if ok {
		c.hits++
	}
	return r, ok
}

func (c *memoryCache) Set(ctx context.Context, p search.Params, r *search.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[p.CacheKey()] = r
}

func (c *memoryCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]*search.Result{}
	c.invalidated++
}

type testEnv struct {
	db         *store.Store
	blobs      *blob.FileStore
	cache      *memoryCache
	mailer     *recordingMailer
	accounts   *Accounts
	properties *Properties
	bookings   *Bookings
	inquiries  *Inquiries
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := store.Open(context.Background(), store.DialectSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:     db,
		blobs:  blob.NewFileStore(t.TempDir(), "/images"),
		cache:  newMemoryCache(),
		mailer: &recordingMailer{},
	}
	env.accounts = NewAccounts(db, env.blobs)
	env.accounts.cost = bcrypt.MinCost
	env.properties = NewProperties(db, photos.NewManager(env.blobs, db), env.cache)
	env.bookings = NewBookings(db, env.mailer)
	env.inquiries = NewInquiries(db, env.mailer)
	return env
}

func (env *testEnv) admin(t *testing.T) *models.User {
	t.Helper()
	_, err := env.accounts.EnsureAdmin(context.Background(), "Admin", "admin@example.com", "secret123")
	require.NoError(t, err)
	u, err := env.db.GetUserByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	return u
}

func (env *testEnv) user(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := env.accounts.Register(context.Background(), RegisterInput{
		FullName:        "Test User",
		Email:           email,
		Password:        "secret123",
		ConfirmPassword: "secret123",
	})
	require.NoError(t, err)
	return u
}

func validProperty() PropertyInput {
	beds := 3
	return PropertyInput{
		Title:        "Lake house",
		Description:  "Quiet house by the lake",
		PropertyType: "House",
		ListingType:  "Sale",
		Price:        150000,
		Address:      "12 Lake Road",
		City:         "Pune",
		State:        "Maharashtra",
		ZipCode:      "411001",
		Bedrooms:     &beds,
	}
}

func (env *testEnv) property(t *testing.T, ownerID int64, mutate func(in *PropertyInput)) *models.Property {
	t.Helper()
	in := validProperty()
	if mutate != nil {
		mutate(&in)
	}
	p, err := env.properties.Create(context.Background(), ownerID, in, PropertyPhotos{})
	require.NoError(t, err)
	return p
}
