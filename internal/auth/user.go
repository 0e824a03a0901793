package auth

import (
	"context"
	"slices"
)

const (
	RoleAdmin         = "admin"
	RoleEditor        = "editor"
	RoleAuthenticated = "authenticated"
)

// User is the verified caller. Built per request, never persisted.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type userKey struct{}

func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the authenticated caller, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userKey{}).(*User)
	return u, ok && u != nil
}

// HasRole reports whether u holds one of roles.
func HasRole(u *User, roles ...string) bool {
	return u != nil && slices.Contains(roles, u.Role)
}
