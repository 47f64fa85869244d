package shop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/gateway"
	"github.com/georgemunganga/prepick-backend/internal/modules/user"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

// ErrShopExists is returned when an owner already runs a shop.
var ErrShopExists = fmt.Errorf("owner already has a shop: %w", apperr.ErrConflict)

// Service defines shop business logic.
type Service interface {
	// Create opens the owner's shop from the details given at sign-up. The
	// shop starts unverified and online.
	Create(ctx context.Context, owner session.Identity, seed user.ShopSeed) (*Shop, error)

	Get(ctx context.Context, id string) (*Shop, error)

	// List returns shops matching f, verified only unless f says otherwise.
	List(ctx context.Context, f ListFilter) ([]*Shop, error)

	// ForOwner returns the shop run by ownerID.
	ForOwner(ctx context.Context, ownerID string) (*Shop, error)

	// Update edits a shop; only its owner may do so.
	Update(ctx context.Context, owner session.Identity, id string, req UpdateShopRequest) (*Shop, error)

	// SetStatus switches a shop online or offline; only its owner may do so.
	SetStatus(ctx context.Context, owner session.Identity, id string, status Status) (*Shop, error)

	// Verify marks a shop as verified so customers can see it.
	Verify(ctx context.Context, id string) (*Shop, error)

	// Watch streams the shop collection until ctx ends.
	Watch(ctx context.Context) (*gateway.Subscription, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new shop service.
func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Create(ctx context.Context, owner session.Identity, seed user.ShopSeed) (*Shop, error) {
	if !owner.IsShop() {
		return nil, fmt.Errorf("only shop owners can open a shop: %w", apperr.ErrForbidden)
	}
	name := strings.TrimSpace(seed.ShopName)
	if name == "" {
		return nil, apperr.Invalid("shopName", "is required")
	}

	existing, err := s.repo.List(ctx, "ownerId", owner.UserID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrShopExists
	}

	now := s.now().UTC()
	sh := &Shop{
		Name:         name,
		Category:     strings.TrimSpace(seed.ShopCategory),
		OwnerID:      owner.UserID,
		OwnerName:    owner.Name,
		OwnerEmail:   owner.Email,
		Verified:     false,
		Status:       StatusOnline,
		Phone:        seed.ShopPhone,
		GpayNumber:   seed.ShopGpayNumber,
		Address:      seed.ShopAddress,
		OpeningHours: seed.ShopOpeningHours,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, sh); err != nil {
		return nil, fmt.Errorf("failed to persist shop: %w", err)
	}
	return sh, nil
}

func (s *service) Get(ctx context.Context, id string) (*Shop, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, f ListFilter) ([]*Shop, error) {
	var (
		shops []*Shop
		err   error
	)
	if f.IncludeUnverified {
		shops, err = s.repo.List(ctx, "", nil)
	} else {
		shops, err = s.repo.List(ctx, "verified", true)
	}
	if err != nil {
		return nil, err
	}
	out := shops[:0]
	for _, sh := range shops {
		if f.match(sh) {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (s *service) ForOwner(ctx context.Context, ownerID string) (*Shop, error) {
	shops, err := s.repo.List(ctx, "ownerId", ownerID)
	if err != nil {
		return nil, err
	}
	if len(shops) == 0 {
		return nil, fmt.Errorf("shop of owner %s: %w", ownerID, apperr.ErrNotFound)
	}
	return shops[0], nil
}

func (s *service) Update(ctx context.Context, owner session.Identity, id string, req UpdateShopRequest) (*Shop, error) {
	sh, err := s.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	set := func(key string, dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
			fields[key] = *dst
		}
	}
	set("name", &sh.Name, req.Name)
	set("category", &sh.Category, req.Category)
	set("phone", &sh.Phone, req.Phone)
	set("gpayNumber", &sh.GpayNumber, req.GpayNumber)
	set("address", &sh.Address, req.Address)
	set("openingHours", &sh.OpeningHours, req.OpeningHours)
	if req.Location != nil {
		sh.Location = req.Location
		fields["location"] = req.Location
	}
	if req.Name != nil && sh.Name == "" {
		return nil, apperr.Invalid("name", "is required")
	}
	if len(fields) == 0 {
		return sh, nil
	}
	return sh, s.save(ctx, sh, fields)
}

func (s *service) SetStatus(ctx context.Context, owner session.Identity, id string, status Status) (*Shop, error) {
	if status != StatusOnline && status != StatusOffline {
		return nil, apperr.Invalid("status", "must be online or offline")
	}
	sh, err := s.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	sh.Status = status
	return sh, s.save(ctx, sh, map[string]any{"status": status})
}

func (s *service) Verify(ctx context.Context, id string) (*Shop, error) {
	sh, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh.Verified {
		return sh, nil
	}
	sh.Verified = true
	return sh, s.save(ctx, sh, map[string]any{"verified": true})
}

func (s *service) Watch(ctx context.Context) (*gateway.Subscription, error) {
	return s.repo.Subscribe(ctx)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// owned loads shop id and checks it belongs to owner.
func (s *service) owned(ctx context.Context, owner session.Identity, id string) (*Shop, error) {
	sh, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh.OwnerID != owner.UserID {
		return nil, fmt.Errorf("shop %s belongs to another owner: %w", id, apperr.ErrForbidden)
	}
	return sh, nil
}

func (s *service) save(ctx context.Context, sh *Shop, fields map[string]any) error {
	sh.UpdatedAt = s.now().UTC()
	fields["updatedAt"] = sh.UpdatedAt
	return s.repo.Update(ctx, sh.ID, fields)
}
