package user

import "context"

// Service defines the interface for user-profile business logic.
type Service interface {
	// Create stores a new profile. The email must not be registered yet.
	Create(ctx context.Context, nu NewUser) (*Profile, error)

	// Get returns the profile of id.
	Get(ctx context.Context, id string) (*Profile, error)

	// UpdateProfile edits name, phone and, for shop owners, the shop seed.
	UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*Profile, error)

	// ToggleFavorite adds shopID to a customer's favorites, or removes it
	// when already present.
	ToggleFavorite(ctx context.Context, id, shopID string) (*Profile, error)
}
