// Package auth resolves the request identity from the session cookie and
// enforces role based access to routes.
package auth

import (
	"context"

	"github.com/alextreichler/estatehub/internal/models"
)

// RoleAnonymous is the casbin subject for visitors without a session.
const RoleAnonymous = "anonymous"

// Identity is the signed-in user as seen by one request.
type Identity struct {
	UserID int64
	Name   string
	Email  string
	Role   models.Role
}

func IdentityOf(u *models.User) Identity {
	return Identity{UserID: u.ID, Name: u.FullName, Email: u.Email, Role: u.Role}
}

func (id Identity) Authenticated() bool { return id.UserID > 0 }

func (id Identity) IsAdmin() bool { return id.Authenticated() && id.Role == models.RoleAdmin }

// Subject is the casbin subject for the identity.
func (id Identity) Subject() string {
	if !id.Authenticated() {
		return RoleAnonymous
	}
	return string(id.Role)
}

// UserIDPtr returns the user id, or nil for anonymous visitors.
func (id Identity) UserIDPtr() *int64 {
	if !id.Authenticated() {
		return nil
	}
	v := id.UserID
	return &v
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request identity. Requests that did not pass
// through Authenticate are anonymous.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}
