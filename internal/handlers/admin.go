package handlers

import (
	"net/http"

	"github.com/alextreichler/estatehub/internal/auth"
	"github.com/alextreichler/estatehub/internal/service"
)

// AdminHandler serves the back office.
type AdminHandler struct {
	Base
	Accounts   *service.Accounts
	Properties *service.Properties
	Bookings   *service.Bookings
	Inquiries  *service.Inquiries
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Accounts.AdminDashboard(r.Context())
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin.html", map[string]any{
		"Stats": stats,
	})
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Accounts.ListUsers(r.Context())
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_users.html", map[string]any{
		"Users": users,
	})
}

func (h *AdminHandler) ToggleUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	actor := auth.FromContext(r.Context())
	active, err := h.Accounts.ToggleActive(r.Context(), actor.UserID, userID)
	if err != nil {
		h.formError(w, r, err, "/admin/users")
		return
	}
	msg := "User deactivated."
	if active {
		msg = "User activated."
	}
	h.redirectWithFlash(w, r, "/admin/users", "success", msg)
}

func (h *AdminHandler) ListInquiries(w http.ResponseWriter, r *http.Request) {
	inquiries, err := h.Inquiries.List(r.Context())
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_inquiries.html", map[string]any{
		"Inquiries": inquiries,
	})
}

// ReplyInquiry answers an inquiry and returns a JSON envelope.
func (h *AdminHandler) ReplyInquiry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, Envelope{Message: "Invalid inquiry id."})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, Envelope{Message: "Invalid form data."})
		return
	}
	in, err := h.Inquiries.Reply(r.Context(), id, service.ReplyInput{Reply: r.FormValue("reply")})
	if err != nil {
		jsonError(w, r, err)
		return
	}
	jsonOK(w, "Reply sent.", map[string]any{
		"status":     in.Status,
		"replied_at": in.RepliedAt,
	})
}
