package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes bundles the handlers mounted by NewRouter.
type Routes struct {
	Home    *HomeHandler
	Account *AccountHandler
	User    *UserHandler
	Admin   *AdminHandler
	Limiter *RateLimiter

	StaticDir string
	// ImageDir is served under /images/ and must match the blob store root.
	ImageDir string
}

// NewRouter mounts every route. Middleware in mw runs for matched routes only,
// in the given order.
func NewRouter(rt Routes, mw ...mux.MiddlewareFunc) *mux.Router {
	router := mux.NewRouter()
	router.Use(mw...)
	router.NotFoundHandler = http.HandlerFunc(rt.Home.notFound)

	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(rt.StaticDir)))).Methods(http.MethodGet, http.MethodHead)
	router.PathPrefix("/images/").Handler(http.StripPrefix("/images/", http.FileServer(http.Dir(rt.ImageDir)))).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, "ok", nil)
	}).Methods(http.MethodGet)

	limit := func(h http.HandlerFunc) http.HandlerFunc {
		if rt.Limiter == nil {
			return h
		}
		return rt.Limiter.Middleware(h)
	}

	// Public Routes
	router.HandleFunc("/", rt.Home.Index).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/properties", rt.Home.ListProperties).Methods(http.MethodGet)
	router.HandleFunc("/properties/{id:[0-9]+}", rt.Home.PropertyDetail).Methods(http.MethodGet)
	router.HandleFunc("/properties/{id:[0-9]+}/inquiries", limit(rt.Home.SubmitPropertyInquiry)).Methods(http.MethodPost)
	router.HandleFunc("/contact", rt.Home.ContactForm).Methods(http.MethodGet)
	router.HandleFunc("/contact", limit(rt.Home.SubmitContact)).Methods(http.MethodPost)

	router.HandleFunc("/login", rt.Account.LoginGet).Methods(http.MethodGet)
	router.HandleFunc("/login", rt.Account.LoginPost).Methods(http.MethodPost)
	router.HandleFunc("/register", rt.Account.RegisterGet).Methods(http.MethodGet)
	router.HandleFunc("/register", rt.Account.RegisterPost).Methods(http.MethodPost)
	router.HandleFunc("/logout", rt.Account.Logout).Methods(http.MethodPost)

	// User Routes
	router.HandleFunc("/account", rt.User.Dashboard).Methods(http.MethodGet)
	router.HandleFunc("/account/bookings", rt.User.MyBookings).Methods(http.MethodGet)
	router.HandleFunc("/account/bookings", rt.User.Book).Methods(http.MethodPost)
	router.HandleFunc("/account/bookings/{id:[0-9]+}/cancel", rt.User.CancelBooking).Methods(http.MethodPost)
	router.HandleFunc("/account/inquiries", rt.User.MyInquiries).Methods(http.MethodGet)
	router.HandleFunc("/account/profile", rt.User.Profile).Methods(http.MethodGet)
	router.HandleFunc("/account/profile", rt.User.UpdateProfile).Methods(http.MethodPost)
	router.HandleFunc("/account/password", rt.User.ChangePassword).Methods(http.MethodPost)

	// Admin Routes
	admin := router.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("", rt.Admin.Dashboard).Methods(http.MethodGet)
	admin.HandleFunc("/properties", rt.Admin.ListProperties).Methods(http.MethodGet)
	admin.HandleFunc("/properties", rt.Admin.CreateProperty).Methods(http.MethodPost)
	admin.HandleFunc("/properties/new", rt.Admin.NewPropertyForm).Methods(http.MethodGet)
	admin.HandleFunc("/properties/{id:[0-9]+}/edit", rt.Admin.EditPropertyForm).Methods(http.MethodGet)
	admin.HandleFunc("/properties/{id:[0-9]+}", rt.Admin.UpdateProperty).Methods(http.MethodPost)
	admin.HandleFunc("/properties/{id:[0-9]+}/delete", rt.Admin.DeleteProperty).Methods(http.MethodPost)
	admin.HandleFunc("/properties/{id:[0-9]+}/cancel", rt.Admin.CancelProperty).Methods(http.MethodPost)
	admin.HandleFunc("/properties/{id:[0-9]+}/featured", rt.Admin.ToggleFeatured).Methods(http.MethodPost)
	admin.HandleFunc("/properties/{id:[0-9]+}/status", rt.Admin.UpdatePropertyStatus).Methods(http.MethodPost)
	admin.HandleFunc("/properties/{id:[0-9]+}/photos", rt.Admin.AddPhoto).Methods(http.MethodPost)
	admin.HandleFunc("/properties/{id:[0-9]+}/photos/delete", rt.Admin.DeletePhoto).Methods(http.MethodPost)
	admin.HandleFunc("/bookings", rt.Admin.ListBookings).Methods(http.MethodGet)
	admin.HandleFunc("/bookings/{id:[0-9]+}/status", rt.Admin.UpdateBookingStatus).Methods(http.MethodPost)
	admin.HandleFunc("/bookings/{id:[0-9]+}/delete", rt.Admin.DeleteBooking).Methods(http.MethodPost)
	admin.HandleFunc("/users", rt.Admin.ListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id:[0-9]+}/toggle", rt.Admin.ToggleUser).Methods(http.MethodPost)
	admin.HandleFunc("/inquiries", rt.Admin.ListInquiries).Methods(http.MethodGet)
	admin.HandleFunc("/inquiries/{id:[0-9]+}/reply", rt.Admin.ReplyInquiry).Methods(http.MethodPost)

	return router
}
