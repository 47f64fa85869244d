// Package session keeps track of who is signed in. A Session is created at
// sign-in and removed at sign-out; the access token handed to the client only
// carries the session id, so revoking the session revokes the token.
package session

import (
	"context"
	"errors"
	"time"
)

// Role of a signed-in user. It mirrors the profile discriminator.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleShop     Role = "shop"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleCustomer || r == RoleShop }

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Identity is the authenticated principal attached to a request.
type Identity struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Role      Role   `json:"role"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// IsShop reports whether the identity belongs to a shop owner.
func (i Identity) IsShop() bool { return i.Role == RoleShop }

// Session is a stored Identity with its lifetime.
type Session struct {
	Identity
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store persists sessions.
type Store interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// Limiter counts failed sign-in attempts per key within a sliding window.
type Limiter interface {
	// Fail records one failure and returns the failures counted in the window.
	Fail(ctx context.Context, key string) (int, error)
	// Count returns the failures currently counted for key.
	Count(ctx context.Context, key string) (int, error)
	// Reset forgets key, typically after a successful sign-in.
	Reset(ctx context.Context, key string) error
}

// ── context ───────────────────────────────────────────────────────────────────

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity attached by the auth middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
