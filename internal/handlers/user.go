package handlers

import (
	"net/http"

	"github.com/alextreichler/estatehub/internal/auth"
	"github.com/alextreichler/estatehub/internal/service"
)

// UserHandler serves the signed-in user's area.
type UserHandler struct {
	Base
	Accounts  *service.Accounts
	Bookings  *service.Bookings
	Inquiries *service.Inquiries
}

func (h *UserHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	stats, err := h.Accounts.UserDashboard(r.Context(), id.UserID)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "account.html", map[string]any{
		"Stats": stats,
	})
}

func (h *UserHandler) MyBookings(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	bookings, err := h.Bookings.ListByUser(r.Context(), id.UserID)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "account_bookings.html", map[string]any{
		"Bookings": bookings,
	})
}

// Book requests a viewing and answers with a JSON envelope.
func (h *UserHandler) Book(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, Envelope{Message: "Invalid form data."})
		return
	}
	id := auth.FromContext(r.Context())
	b, err := h.Bookings.Book(r.Context(), id.UserID, service.BookingInput{
		PropertyID:  formInt64(r, "property_id"),
		BookingDate: r.FormValue("booking_date"),
		BookingTime: r.FormValue("booking_time"),
		Message:     r.FormValue("message"),
	})
	if err != nil {
		jsonError(w, r, err)
		return
	}
	jsonOK(w, "Your viewing request has been sent.", map[string]any{"booking_id": b.ID})
}

// CancelBooking withdraws the user's own Pending booking.
func (h *UserHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, Envelope{Message: "Invalid booking id."})
		return
	}
	id := auth.FromContext(r.Context())
	if err := h.Bookings.CancelByOwner(r.Context(), bookingID, id.UserID); err != nil {
		jsonError(w, r, err)
		return
	}
	jsonOK(w, "Booking cancelled.", nil)
}

func (h *UserHandler) MyInquiries(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	inquiries, err := h.Inquiries.ListByUser(r.Context(), id.UserID)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "account_inquiries.html", map[string]any{
		"Inquiries": inquiries,
	})
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	user, err := h.Accounts.Get(r.Context(), id.UserID)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "account_profile.html", map[string]any{
		"User": user,
	})
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	const back = "/account/profile"
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && err != http.ErrNotMultipart {
		h.redirectWithFlash(w, r, back, "error", "File too large.")
		return
	}

	var files uploads
	defer files.Close()
	image, err := files.single(r, "profile_image")
	if err != nil {
		h.redirectWithFlash(w, r, back, "error", "Could not read the uploaded image.")
		return
	}

	id := auth.FromContext(r.Context())
	user, err := h.Accounts.UpdateProfile(r.Context(), id.UserID, service.ProfileInput{
		FullName: r.FormValue("full_name"),
		Phone:    r.FormValue("phone"),
		Address:  r.FormValue("address"),
		City:     r.FormValue("city"),
		State:    r.FormValue("state"),
		ZipCode:  r.FormValue("zip_code"),
	}, image)
	if err != nil {
		h.formError(w, r, err, back)
		return
	}
	// Keep the display name in the session current.
	if err := h.Sessions.SignIn(w, r, user); err != nil {
		h.pageError(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, back, "success", "Profile updated successfully!")
}

// ChangePassword answers with a JSON envelope.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, Envelope{Message: "Invalid form data."})
		return
	}
	id := auth.FromContext(r.Context())
	err := h.Accounts.ChangePassword(r.Context(), id.UserID, service.PasswordInput{
		CurrentPassword: r.FormValue("current_password"),
		NewPassword:     r.FormValue("new_password"),
		ConfirmPassword: r.FormValue("confirm_password"),
	})
	if err != nil {
		jsonError(w, r, err)
		return
	}
	jsonOK(w, "Password changed successfully.", nil)
}
