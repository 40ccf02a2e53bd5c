package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/casbin/casbin"
)

// Authorizer checks routes against the casbin role policy.
type Authorizer struct {
	enforcer *casbin.Enforcer
}

func NewAuthorizer(modelPath, policyPath string) (*Authorizer, error) {
	e, err := casbin.NewEnforcerSafe(modelPath, policyPath)
	if err != nil {
		return nil, err
	}
	return &Authorizer{enforcer: e}, nil
}

// Allowed reports whether the identity may call method on path.
func (a *Authorizer) Allowed(id Identity, path, method string) (bool, error) {
	return a.enforcer.EnforceSafe(id.Subject(), path, method)
}

// Middleware rejects requests the identity's role is not allowed to make.
// JSON callers get a 403 envelope; browsers are sent to the login page.
func (a *Authorizer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := FromContext(r.Context())
		ok, err := a.Allowed(id, r.URL.Path, r.Method)
		if err != nil {
			slog.Error("Enforce error", "path", r.URL.Path, "error", err)
		}
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		slog.Info("Access denied", "path", r.URL.Path, "method", r.Method, "role", id.Subject())
		if WantsJSON(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Unauthorized"})
			return
		}
		target := "/login"
		if r.Method == http.MethodGet {
			target += "?next=" + url.QueryEscape(r.URL.RequestURI())
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	})
}

// WantsJSON reports whether the caller expects a JSON envelope rather than a page.
func WantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
