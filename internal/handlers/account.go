package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/alextreichler/estatehub/internal/auth"
	"github.com/alextreichler/estatehub/internal/models"
	"github.com/alextreichler/estatehub/internal/service"
)

// AccountHandler signs visitors in and out and registers new users.
type AccountHandler struct {
	Base
	Accounts *service.Accounts
}

func (h *AccountHandler) LoginGet(w http.ResponseWriter, r *http.Request) {
	if id := auth.FromContext(r.Context()); id.Authenticated() {
		http.Redirect(w, r, homeFor(id.Role), http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "login.html", map[string]any{
		"Next": safeNext(r.URL.Query().Get("next")),
	})
}

func (h *AccountHandler) LoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirectWithFlash(w, r, "/login", "error", "Invalid form data.")
		return
	}
	user, err := h.Accounts.Login(r.Context(), service.LoginInput{
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	})
	if err != nil {
		h.formError(w, r, err, "/login")
		return
	}

	if err := h.Sessions.SignIn(w, r, user); err != nil {
		slog.Error("Failed to save session", "error", err)
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	target := safeNext(r.FormValue("next"))
	if target == "" {
		target = homeFor(user.Role)
	}
	h.redirectWithFlash(w, r, target, "success", "Welcome back, "+user.FullName+"!")
}

func (h *AccountHandler) RegisterGet(w http.ResponseWriter, r *http.Request) {
	if id := auth.FromContext(r.Context()); id.Authenticated() {
		http.Redirect(w, r, homeFor(id.Role), http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "register.html", nil)
}

func (h *AccountHandler) RegisterPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirectWithFlash(w, r, "/register", "error", "Invalid form data.")
		return
	}
	user, err := h.Accounts.Register(r.Context(), service.RegisterInput{
		FullName:        r.FormValue("full_name"),
		Email:           r.FormValue("email"),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirm_password"),
		Phone:           r.FormValue("phone"),
	})
	if err != nil {
		h.formError(w, r, err, "/register")
		return
	}
	if err := h.Sessions.SignIn(w, r, user); err != nil {
		slog.Error("Failed to save session", "error", err)
		h.redirectWithFlash(w, r, "/login", "success", "Registration successful. Please sign in.")
		return
	}
	h.redirectWithFlash(w, r, "/account", "success", "Welcome to EstateHub, "+user.FullName+"!")
}

func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.SignOut(w, r); err != nil {
		slog.Error("Failed to clear session", "error", err)
	}
	h.redirectWithFlash(w, r, "/", "success", "Logged out successfully!")
}

func homeFor(role models.Role) string {
	if role == models.RoleAdmin {
		return "/admin"
	}
	return "/account"
}

// safeNext only accepts local absolute paths as post-login targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}
