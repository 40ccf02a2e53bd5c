package handlers

import (
	"net/http"

	"github.com/alextreichler/estatehub/internal/models"
)

func (h *AdminHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Bookings.List(r.Context())
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_bookings.html", map[string]any{
		"Bookings": bookings,
		"Statuses": []models.BookingStatus{models.BookingPending, models.BookingConfirmed, models.BookingCancelled, models.BookingCompleted},
	})
}

// UpdateBookingStatus applies a status change and notes from the bookings page.
func (h *AdminHandler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	status := models.BookingStatus(r.FormValue("status"))
	if _, err := h.Bookings.UpdateStatus(r.Context(), id, status, r.FormValue("admin_notes")); err != nil {
		h.formError(w, r, err, "/admin/bookings")
		return
	}
	h.redirectWithFlash(w, r, "/admin/bookings", "success", "Booking updated!")
}

func (h *AdminHandler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	if err := h.Bookings.Delete(r.Context(), id); err != nil {
		h.formError(w, r, err, "/admin/bookings")
		return
	}
	h.redirectWithFlash(w, r, "/admin/bookings", "success", "Booking deleted.")
}
