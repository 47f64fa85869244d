package auth

import (
	"context"
	"time"

	"github.com/georgemunganga/prepick-backend/internal/modules/user"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

// Service defines the interface for authentication-related business logic.
type Service interface {
	// SignUp registers a user and signs them in. Shop owners get their shop
	// opened from the seed.
	SignUp(ctx context.Context, req SignUpRequest) (*Result, error)

	// SignIn checks an email and password.
	SignIn(ctx context.Context, req SignInRequest) (*Result, error)

	// SignInWithIDToken signs in with an identity-provider token, creating
	// the profile on first use.
	SignInWithIDToken(ctx context.Context, req IDTokenRequest) (*Result, error)

	// SignOut revokes the session of id and releases everything held for it.
	SignOut(ctx context.Context, id session.Identity) error

	// Current resolves an access token to its live session.
	Current(ctx context.Context, token string) (session.Identity, error)
}

type SignUpRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Name     string         `json:"name"`
	Phone    string         `json:"phone"`
	Role     session.Role   `json:"role"`
	Seed     *user.ShopSeed `json:"shop,omitempty"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// IDTokenRequest carries a provider token. Role, Name and Seed are only
// used when the profile does not exist yet.
type IDTokenRequest struct {
	IDToken string         `json:"idToken"`
	Role    session.Role   `json:"role,omitempty"`
	Name    string         `json:"name,omitempty"`
	Seed    *user.ShopSeed `json:"shop,omitempty"`
}

// Result is a signed-in session.
type Result struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Profile   *user.Profile `json:"profile"`
}

// ExternalIdentity is what an identity provider vouches for.
type ExternalIdentity struct {
	UID   string
	Email string
	Name  string
}

// TokenVerifier checks identity-provider ID tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*ExternalIdentity, error)
}

// SignOutHook releases per-identity state when a session ends.
type SignOutHook func(ctx context.Context, id session.Identity)
