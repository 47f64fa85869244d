package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/logger"
	"github.com/georgemunganga/prepick-backend/internal/modules/shop"
	"github.com/georgemunganga/prepick-backend/internal/modules/user"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

const minPasswordLen = 6

// Shops opens the shop of a newly registered owner.
type Shops interface {
	Create(ctx context.Context, owner session.Identity, seed user.ShopSeed) (*shop.Shop, error)
}

// Options tunes token and throttling behaviour.
type Options struct {
	Secret      []byte
	SessionTTL  time.Duration
	MaxAttempts int
	// HashCost defaults to bcrypt.DefaultCost.
	HashCost int
}

// Deps are the collaborators of the auth service. Verifier may be nil when
// no identity provider is configured.
type Deps struct {
	Users     user.Service
	Records   user.Repository
	Shops     Shops
	Sessions  session.Store
	Limiter   session.Limiter
	Verifier  TokenVerifier
	OnSignOut []SignOutHook
}

type service struct {
	Deps
	opts Options
	now  func() time.Time
}

// NewService creates a new auth service.
func NewService(d Deps, opts Options) Service {
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	return &service{Deps: d, opts: opts, now: time.Now}
}

func (s *service) SignUp(ctx context.Context, req SignUpRequest) (*Result, error) {
	email := user.NormalizeEmail(req.Email)
	if !user.ValidEmail(email) {
		return nil, fail("Signup", ErrInvalidEmail)
	}
	if len(req.Password) < minPasswordLen {
		return nil, fail("Signup", ErrWeakPassword)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.opts.HashCost)
	if err != nil {
		return nil, fail("Signup", err)
	}

	p, err := s.Users.Create(ctx, user.NewUser{
		Role:         req.Role,
		Name:         req.Name,
		Email:        email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Provider:     "password",
		Seed:         req.Seed,
	})
	if err != nil {
		return nil, fail("Signup", err)
	}
	s.openShop(ctx, p, req.Seed)

	res, err := s.start(ctx, p)
	if err != nil {
		return nil, fail("Signup", err)
	}
	return res, nil
}

func (s *service) SignIn(ctx context.Context, req SignInRequest) (*Result, error) {
	email := user.NormalizeEmail(req.Email)
	if !user.ValidEmail(email) {
		return nil, fail("Login", ErrInvalidEmail)
	}
	key := "signin:" + email
	if s.throttled(ctx, key) {
		return nil, fail("Login", ErrTooManyAttempts)
	}

	rec, err := s.Records.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		s.failed(ctx, key)
		return nil, fail("Login", ErrUserNotFound)
	case err != nil:
		return nil, fail("Login", err)
	}
	if rec.PasswordHash == "" {
		s.failed(ctx, key)
		return nil, fail("Login", ErrInvalidCredential)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(req.Password)); err != nil {
		s.failed(ctx, key)
		return nil, fail("Login", ErrWrongPassword)
	}
	if s.Limiter != nil {
		if err := s.Limiter.Reset(ctx, key); err != nil {
			logger.FromCtx(ctx).Warn("auth: reset attempts", "error", err)
		}
	}

	res, err := s.start(ctx, rec.Profile())
	if err != nil {
		return nil, fail("Login", err)
	}
	return res, nil
}

func (s *service) SignInWithIDToken(ctx context.Context, req IDTokenRequest) (*Result, error) {
	if s.Verifier == nil {
		return nil, fail("Login", ErrNoVerifier)
	}
	ext, err := s.Verifier.Verify(ctx, req.IDToken)
	if err != nil {
		logger.FromCtx(ctx).Info("auth: id token rejected", "error", err)
		return nil, fail("Login", ErrInvalidCredential)
	}

	p, err := s.Users.Get(ctx, ext.UID)
	if errors.Is(err, apperr.ErrNotFound) {
		name := strings.TrimSpace(req.Name)
		if name == "" {
			name = ext.Name
		}
		if name == "" {
			name, _, _ = strings.Cut(ext.Email, "@")
		}
		p, err = s.Users.Create(ctx, user.NewUser{
			ID:       ext.UID,
			Role:     req.Role,
			Name:     name,
			Email:    ext.Email,
			Provider: "firebase",
			Seed:     req.Seed,
		})
		if err == nil {
			s.openShop(ctx, p, req.Seed)
		}
	}
	if err != nil {
		return nil, fail("Login", err)
	}

	res, err := s.start(ctx, p)
	if err != nil {
		return nil, fail("Login", err)
	}
	return res, nil
}

func (s *service) SignOut(ctx context.Context, id session.Identity) error {
	if err := s.Sessions.Delete(ctx, id.SessionID); err != nil {
		return apperr.Unavailable("delete session", err)
	}
	for _, hook := range s.OnSignOut {
		hook(ctx, id)
	}
	logger.FromCtx(ctx).Info("auth: signed out", "user_id", id.UserID)
	return nil
}

func (s *service) Current(ctx context.Context, token string) (session.Identity, error) {
	claims, err := parseToken(s.opts.Secret, token)
	if err != nil {
		return session.Identity{}, fmt.Errorf("%w: %v", apperr.ErrUnauthorized, err)
	}
	sess, err := s.Sessions.Get(ctx, claims.Id)
	if errors.Is(err, session.ErrNotFound) {
		return session.Identity{}, fmt.Errorf("session revoked: %w", apperr.ErrUnauthorized)
	}
	if err != nil {
		return session.Identity{}, apperr.Unavailable("get session", err)
	}
	if sess.UserID != claims.Subject {
		return session.Identity{}, fmt.Errorf("session user mismatch: %w", apperr.ErrUnauthorized)
	}
	return sess.Identity, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// start records a new session for p and issues its token.
func (s *service) start(ctx context.Context, p *user.Profile) (*Result, error) {
	now := s.now().UTC()
	sess := session.Session{
		Identity: session.Identity{
			SessionID: uuid.New().String(),
			UserID:    p.ID,
			Role:      p.Role,
			Name:      p.Name,
			Email:     p.Email,
		},
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.SessionTTL),
	}
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return nil, apperr.Unavailable("save session", err)
	}
	token, err := issueToken(s.opts.Secret, p.ID, sess.SessionID, now, sess.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	logger.FromCtx(ctx).Info("auth: signed in", "user_id", p.ID, "role", p.Role)
	return &Result{Token: token, ExpiresAt: sess.ExpiresAt, Profile: p}, nil
}

// openShop opens the seeded shop of a new owner. A failure leaves the owner
// without a shop; they can open it from the dashboard.
func (s *service) openShop(ctx context.Context, p *user.Profile, seed *user.ShopSeed) {
	if p.Role != session.RoleShop || seed == nil || s.Shops == nil {
		return
	}
	owner := session.Identity{UserID: p.ID, Role: p.Role, Name: p.Name, Email: p.Email}
	if _, err := s.Shops.Create(ctx, owner, *seed); err != nil {
		logger.FromCtx(ctx).Error("auth: open shop for new owner", "user_id", p.ID, "error", err)
	}
}

func (s *service) throttled(ctx context.Context, key string) bool {
	if s.Limiter == nil || s.opts.MaxAttempts <= 0 {
		return false
	}
	n, err := s.Limiter.Count(ctx, key)
	if err != nil {
		logger.FromCtx(ctx).Warn("auth: count attempts", "error", err)
		return false
	}
	return n >= s.opts.MaxAttempts
}

func (s *service) failed(ctx context.Context, key string) {
	if s.Limiter == nil {
		return
	}
	if _, err := s.Limiter.Fail(ctx, key); err != nil {
		logger.FromCtx(ctx).Warn("auth: record failed attempt", "error", err)
	}
}
