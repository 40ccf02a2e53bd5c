package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alextreichler/estatehub/internal/apperr"
	"github.com/alextreichler/estatehub/internal/models"
	"github.com/gorilla/sessions"
)

const SessionName = "estatehub-session"

const (
	keyUserID = "user_id"
	keyName   = "name"
	keyEmail  = "email"
	keyRole   = "role"
)

// UserLookup reloads the account behind a session.
type UserLookup func(ctx context.Context, id int64) (*models.User, error)

type Sessions struct {
	Store sessions.Store
}

func NewSessions(store sessions.Store) *Sessions {
	return &Sessions{Store: store}
}

// Session returns the raw session, creating a new one when the cookie is
// missing or unreadable.
func (s *Sessions) Session(r *http.Request) *sessions.Session {
	session, err := s.Store.Get(r, SessionName)
	if err != nil {
		slog.Debug("Discarding unreadable session cookie", "error", err)
	}
	return session
}

// SignIn stores u's identity in the session.
func (s *Sessions) SignIn(w http.ResponseWriter, r *http.Request, u *models.User) error {
	session := s.Session(r)
	session.Values[keyUserID] = u.ID
	session.Values[keyName] = u.FullName
	session.Values[keyEmail] = u.Email
	session.Values[keyRole] = string(u.Role)
	session.Options.MaxAge = 7 * 24 * 60 * 60
	return session.Save(r, w)
}

// SignOut drops the identity but keeps the cookie for flashes.
func (s *Sessions) SignOut(w http.ResponseWriter, r *http.Request) error {
	session := s.Session(r)
	delete(session.Values, keyUserID)
	delete(session.Values, keyName)
	delete(session.Values, keyEmail)
	delete(session.Values, keyRole)
	return session.Save(r, w)
}

// Identity decodes the identity stored in the session.
func (s *Sessions) Identity(r *http.Request) Identity {
	session := s.Session(r)
	userID, ok := session.Values[keyUserID].(int64)
	if !ok || userID <= 0 {
		return Identity{}
	}
	name, _ := session.Values[keyName].(string)
	email, _ := session.Values[keyEmail].(string)
	role, _ := session.Values[keyRole].(string)
	return Identity{UserID: userID, Name: name, Email: email, Role: models.Role(role)}
}

// Authenticate resolves the identity once per request and stores it in the
// request context. When lookup is set, sessions of deleted or deactivated
// accounts are dropped.
func (s *Sessions) Authenticate(lookup UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := s.Identity(r)
			if id.Authenticated() && lookup != nil {
				u, err := lookup(r.Context(), id.UserID)
				switch {
				case err == nil && u.IsActive:
					id = IdentityOf(u)
				case err == nil || errors.Is(err, apperr.ErrNotFound):
					slog.Info("Signing out inactive session", "user_id", id.UserID)
					if err := s.SignOut(w, r); err != nil {
						slog.Error("Failed to clear session", "error", err)
					}
					id = Identity{}
				default:
					slog.Error("Failed to load session user", "user_id", id.UserID, "error", err)
				}
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
