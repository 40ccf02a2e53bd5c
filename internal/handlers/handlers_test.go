package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alextreichler/estatehub/internal/apperr"
	"github.com/alextreichler/estatehub/internal/auth"
	"github.com/alextreichler/estatehub/internal/blob"
	"github.com/alextreichler/estatehub/internal/cache"
	"github.com/alextreichler/estatehub/internal/models"
	"github.com/alextreichler/estatehub/internal/notify"
	"github.com/alextreichler/estatehub/internal/photos"
	"github.com/alextreichler/estatehub/internal/service"
	"github.com/alextreichler/estatehub/internal/store"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeMarshal(t *testing.T) {
	b, err := json.Marshal(Envelope{Success: true, Message: "ok", Extra: map[string]any{"booking_id": 3}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"message":"ok","booking_id":3}`, string(b))

	b, err = json.Marshal(Envelope{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false}`, string(b))
}

func TestJSONError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{apperr.Validation(map[string]string{"phone": "Invalid phone number", "email": "Invalid email address"}), http.StatusBadRequest,
			`{"success":false,"message":"Invalid email address Invalid phone number","errors":{"email":"Invalid email address","phone":"Invalid phone number"}}`},
		{apperr.NotFound("booking"), http.StatusNotFound, `{"success":false,"message":"booking not found"}`},
		{apperr.Unauthorized("nope"), http.StatusForbidden, `{"success":false,"message":"Unauthorized"}`},
		{apperr.Conflict("", "Inquiry has already been replied to"), http.StatusConflict, `{"success":false,"message":"Inquiry has already been replied to"}`},
		{apperr.Storage("failed to store image", errors.New("disk full")), http.StatusInternalServerError, `{"success":false,"message":"failed to store image: disk full"}`},
		{assert.AnError, http.StatusInternalServerError, `{"success":false,"message":"` + genericError + `"}`},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		jsonError(rec, httptest.NewRequest(http.MethodPost, "/x", nil), c.err)
		assert.Equal(t, c.status, rec.Code, c.err.Error())
		assert.JSONEq(t, c.body, rec.Body.String())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, float64(20000), ToINR(800))
	assert.Equal(t, float64(2_500_000), ToINR(5_000))
	assert.Equal(t, float64(10_000_000), ToINR(50_000))
	assert.Equal(t, float64(15_000_000), ToINR(500_000))
	assert.Equal(t, float64(30_000_000), ToINR(2_000_000))

	assert.Equal(t, "₹15,000,000", FormatPrice(500_000))
	assert.Equal(t, "₹0", FormatPrice(0))
	assert.Equal(t, "1,234", FormatCount(1234))
	assert.Equal(t, "New Delhi", TitleCase("new delhi"))
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/account/bookings", safeNext("/account/bookings"))
	assert.Equal(t, "", safeNext("https://evil.example"))
	assert.Equal(t, "", safeNext("//evil.example"))
	assert.Equal(t, "", safeNext(`/\evil.example`))
	assert.Equal(t, "", safeNext(""))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(time.Minute)
	defer rl.Stop()
	calls := 0
	h := rl.Middleware(func(w http.ResponseWriter, r *http.Request) { calls++ })

	req := func(addr string, jsonReq bool) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/contact", nil)
		r.RemoteAddr = addr
		if jsonReq {
			r.Header.Set("Accept", "application/json")
		}
		rec := httptest.NewRecorder()
		h(rec, r)
		return rec
	}

	assert.Equal(t, http.StatusOK, req("10.0.0.1:1000", false).Code)
	assert.Equal(t, http.StatusTooManyRequests, req("10.0.0.1:2000", false).Code)
	rec := req("10.0.0.1:3000", true)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Too many requests. Please try again later."}`, rec.Body.String())
	assert.Equal(t, http.StatusOK, req("10.0.0.2:1000", false).Code)
	assert.Equal(t, 2, calls)
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	const given = "9b2f1c0e-3d4a-4c55-8e9f-0a1b2c3d4e5f"
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, given)
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, given, seen)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "<script>")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.NotEqual(t, "<script>", seen)
}

type app struct {
	handler    http.Handler
	db         *store.Store
	accounts   *service.Accounts
	properties *service.Properties
}

func newApp(t *testing.T) *app {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, store.DialectSQLite, filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	blobs := blob.NewFileStore(t.TempDir(), "/images")
	accounts := service.NewAccounts(db, blobs)
	properties := service.NewProperties(db, photos.NewManager(blobs, db), cache.Noop{})
	bookings := service.NewBookings(db, notify.LogMailer{})
	inquiries := service.NewInquiries(db, notify.LogMailer{})

	templates := NewTemplateCache()
	require.NoError(t, templates.Load("../../templates"))
	authorizer, err := auth.NewAuthorizer("../../configs/rbac_model.conf", "../../configs/policy.csv")
	require.NoError(t, err)
	sess := auth.NewSessions(sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef")))

	base := Base{Sessions: sess, Templates: templates}
	router := NewRouter(Routes{
		Home:      &HomeHandler{Base: base, Properties: properties, Inquiries: inquiries},
		Account:   &AccountHandler{Base: base, Accounts: accounts},
		User:      &UserHandler{Base: base, Accounts: accounts, Bookings: bookings, Inquiries: inquiries},
		Admin:     &AdminHandler{Base: base, Accounts: accounts, Properties: properties, Bookings: bookings, Inquiries: inquiries},
		StaticDir: "../../static",
		ImageDir:  t.TempDir(),
	}, sess.Authenticate(db.GetUserByID), authorizer.Middleware)

	return &app{handler: router, db: db, accounts: accounts, properties: properties}
}

func (a *app) do(r *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		r.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, r)
	return rec
}

func formRequest(method, target string, form url.Values) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func jsonForm(target string, form url.Values) *http.Request {
	r := formRequest(http.MethodPost, target, form)
	r.Header.Set("Accept", "application/json")
	r.Header.Set("X-Requested-With", "XMLHttpRequest")
	return r
}

// login signs in through the login form and returns the session cookie.
func (a *app) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	rec := a.do(formRequest(http.MethodPost, "/login", url.Values{"email": {email}, "password": {password}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionName {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func (a *app) listing(t *testing.T, ownerID int64) *models.Property {
	t.Helper()
	beds := 2
	p, err := a.properties.Create(context.Background(), ownerID, service.PropertyInput{
		Title:        "Sea view flat",
		Description:  "Two bedrooms near the beach",
		PropertyType: "Apartment",
		ListingType:  "Rent",
		Price:        900,
		Address:      "4 Beach Road",
		City:         "Chennai",
		State:        "Tamil Nadu",
		ZipCode:      "600001",
		Bedrooms:     &beds,
	}, service.PropertyPhotos{})
	require.NoError(t, err)
	return p
}

func TestRouterPublicPages(t *testing.T) {
	a := newApp(t)

	rec := a.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"ok"}`, rec.Body.String())

	rec = a.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(httptest.NewRequest(http.MethodGet, "/no-such-page", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(httptest.NewRequest(http.MethodGet, "/properties/999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterSearchJSON(t *testing.T) {
	a := newApp(t)
	admin, err := a.accounts.EnsureAdmin(context.Background(), "Admin", "admin@example.com", "secret123")
	require.NoError(t, err)
	require.True(t, admin)
	owner, err := a.db.GetUserByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	p := a.listing(t, owner.ID)

	r := httptest.NewRequest(http.MethodGet, "/properties?city=Chennai", nil)
	r.Header.Set("Accept", "application/json")
	rec := a.do(r)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sea view flat")

	rec = a.do(httptest.NewRequest(http.MethodGet, "/properties/"+itoa(p.ID), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sea view flat")
}

func TestRouterAccessControl(t *testing.T) {
	a := newApp(t)

	rec := a.do(httptest.NewRequest(http.MethodGet, "/account/bookings", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Faccount%2Fbookings", rec.Header().Get("Location"))

	_, err := a.accounts.Register(context.Background(), service.RegisterInput{
		FullName: "Jane Doe", Email: "jane@example.com", Password: "secret123", ConfirmPassword: "secret123",
	})
	require.NoError(t, err)
	cookie := a.login(t, "jane@example.com", "secret123")

	rec = a.do(httptest.NewRequest(http.MethodGet, "/admin", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = a.do(jsonForm("/admin/inquiries/1/reply", url.Values{"reply": {"hi"}}), cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouterBookingFlow(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	_, err := a.accounts.EnsureAdmin(ctx, "Admin", "admin@example.com", "secret123")
	require.NoError(t, err)
	owner, err := a.db.GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	p := a.listing(t, owner.ID)

	_, err = a.accounts.Register(ctx, service.RegisterInput{
		FullName: "Jane Doe", Email: "jane@example.com", Password: "secret123", ConfirmPassword: "secret123",
	})
	require.NoError(t, err)
	cookie := a.login(t, "jane@example.com", "secret123")

	date := time.Now().AddDate(0, 0, 3).Format("2006-01-02")
	rec := a.do(jsonForm("/account/bookings", url.Values{
		"property_id":  {itoa(p.ID)},
		"booking_date": {date},
		"booking_time": {"10:30"},
	}), cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Success   bool  `json:"success"`
		BookingID int64 `json:"booking_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.NotZero(t, body.BookingID)

	rec = a.do(jsonForm("/account/bookings", url.Values{
		"property_id":  {itoa(p.ID)},
		"booking_date": {"2001-01-01"},
		"booking_time": {"10:30"},
	}), cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(jsonForm("/account/bookings/"+itoa(body.BookingID)+"/cancel", nil), cookie)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(jsonForm("/account/bookings/"+itoa(body.BookingID)+"/cancel", nil), cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouterContactJSON(t *testing.T) {
	a := newApp(t)

	rec := a.do(jsonForm("/contact", url.Values{
		"name":    {"Ravi"},
		"email":   {"ravi@example.com"},
		"message": {"Looking for a flat in Pune"},
	}))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(jsonForm("/contact", url.Values{"name": {"Ravi"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errors"`)
}

func TestPathID(t *testing.T) {
	r := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "42"})
	id, ok := pathID(r)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	r = mux.SetURLVars(r, map[string]string{"id": "0"})
	_, ok = pathID(r)
	assert.False(t, ok)
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
