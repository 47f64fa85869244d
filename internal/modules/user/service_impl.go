package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

// ErrEmailTaken is returned by Create for an already registered email.
var ErrEmailTaken = fmt.Errorf("email already registered: %w", apperr.ErrConflict)

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new user service.
func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email parses as a bare address.
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func (s *service) Create(ctx context.Context, nu NewUser) (*Profile, error) {
	nu.Email = NormalizeEmail(nu.Email)
	nu.Name = strings.TrimSpace(nu.Name)

	verr := apperr.NewValidation()
	if !nu.Role.Valid() {
		verr.Add("role", "must be customer or shop")
	}
	if nu.Name == "" {
		verr.Add("name", "is required")
	}
	if !ValidEmail(nu.Email) {
		verr.Add("email", "is not a valid address")
	}
	if nu.Role == session.RoleShop {
		if nu.Seed == nil || strings.TrimSpace(nu.Seed.ShopName) == "" {
			verr.Add("shopName", "is required for shop owners")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	_, err := s.repo.GetByEmail(ctx, nu.Email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	now := s.now().UTC()
	rec := &Record{
		ID:           nu.ID,
		Role:         nu.Role,
		Name:         nu.Name,
		Email:        nu.Email,
		Phone:        strings.TrimSpace(nu.Phone),
		PasswordHash: nu.PasswordHash,
		Provider:     nu.Provider,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if nu.Role == session.RoleShop {
		rec.setSeed(*nu.Seed)
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist user: %w", err)
	}
	return rec.Profile(), nil
}

func (s *service) Get(ctx context.Context, id string) (*Profile, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Profile(), nil
}

func (s *service) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*Profile, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.Invalid("name", "is required")
		}
		rec.Name = name
		fields["name"] = name
	}
	if req.Phone != nil {
		rec.Phone = strings.TrimSpace(*req.Phone)
		fields["phone"] = rec.Phone
	}
	if req.Seed != nil {
		if rec.Role != session.RoleShop {
			return nil, fmt.Errorf("only shop owners have shop details: %w", apperr.ErrForbidden)
		}
		if strings.TrimSpace(req.Seed.ShopName) == "" {
			return nil, apperr.Invalid("shopName", "is required for shop owners")
		}
		rec.setSeed(*req.Seed)
		for k, v := range seedFields(req.Seed) {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		return rec.Profile(), nil
	}

	rec.UpdatedAt = s.now().UTC()
	fields["updatedAt"] = rec.UpdatedAt
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	return rec.Profile(), nil
}

func (s *service) ToggleFavorite(ctx context.Context, id, shopID string) (*Profile, error) {
	if shopID == "" {
		return nil, apperr.Invalid("shopId", "is required")
	}
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Role != session.RoleCustomer {
		return nil, fmt.Errorf("only customers keep favorites: %w", apperr.ErrForbidden)
	}

	favs := make([]string, 0, len(rec.Favorites)+1)
	removed := false
	for _, f := range rec.Favorites {
		if f == shopID {
			removed = true
			continue
		}
		favs = append(favs, f)
	}
	if !removed {
		favs = append(favs, shopID)
	}

	rec.Favorites = favs
	rec.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, id, map[string]any{
		"favorites": favs,
		"updatedAt": rec.UpdatedAt,
	}); err != nil {
		return nil, err
	}
	return rec.Profile(), nil
}

// seedFields lists every seed key, empty values included.
func seedFields(seed *ShopSeed) map[string]any {
	return map[string]any{
		"shopName":         seed.ShopName,
		"shopCategory":     seed.ShopCategory,
		"shopPhone":        seed.ShopPhone,
		"shopGpayNumber":   seed.ShopGpayNumber,
		"shopAddress":      seed.ShopAddress,
		"shopOpeningHours": seed.ShopOpeningHours,
	}
}
