package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/gateway"
	"github.com/georgemunganga/prepick-backend/internal/modules/shop"
	"github.com/georgemunganga/prepick-backend/internal/modules/user"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

type mockVerifier struct{ mock.Mock }

func (m *mockVerifier) Verify(ctx context.Context, idToken string) (*ExternalIdentity, error) {
	args := m.Called(ctx, idToken)
	if id, ok := args.Get(0).(*ExternalIdentity); ok {
		return id, args.Error(1)
	}
	return nil, args.Error(1)
}

type fixture struct {
	svc       Service
	shops     shop.Service
	verifier  *mockVerifier
	signedOut []session.Identity
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gw := gateway.NewMemory()
	t.Cleanup(func() { gw.Close() })
	records := user.NewGatewayRepository(gw)
	f := &fixture{
		shops:    shop.NewService(shop.NewGatewayRepository(gw)),
		verifier: &mockVerifier{},
	}
	f.svc = NewService(Deps{
		Users:    user.NewService(records),
		Records:  records,
		Shops:    f.shops,
		Sessions: session.NewMemoryStore(),
		Limiter:  session.NewMemoryLimiter(time.Minute),
		Verifier: f.verifier,
		OnSignOut: []SignOutHook{func(_ context.Context, id session.Identity) {
			f.signedOut = append(f.signedOut, id)
		}},
	}, Options{
		Secret:      []byte("test-secret"),
		SessionTTL:  time.Hour,
		MaxAttempts: 3,
		HashCost:    bcrypt.MinCost,
	})
	return f
}

func (f *fixture) signUpAsha(t *testing.T) *Result {
	t.Helper()
	res, err := f.svc.SignUp(context.Background(), SignUpRequest{
		Email: "Asha@Example.com", Password: "secret1", Name: "Asha", Role: session.RoleCustomer,
	})
	require.NoError(t, err)
	return res
}

func TestSignUp_IssuesWorkingToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	res := f.signUpAsha(t)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "asha@example.com", res.Profile.Email)
	assert.Equal(t, session.RoleCustomer, res.Profile.Role)

	id, err := f.svc.Current(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Profile.ID, id.UserID)
	assert.Equal(t, session.RoleCustomer, id.Role)

	require.NoError(t, f.svc.SignOut(ctx, id))
	require.Len(t, f.signedOut, 1)
	assert.Equal(t, id.SessionID, f.signedOut[0].SessionID)

	_, err = f.svc.Current(ctx, res.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestSignUp_ShopOwnerGetsShop(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	res, err := f.svc.SignUp(ctx, SignUpRequest{
		Email: "ravi@example.com", Password: "secret1", Name: "Ravi", Role: session.RoleShop,
		Seed: &user.ShopSeed{ShopName: "Ravi Kirana", ShopCategory: "Grocery", ShopGpayNumber: "9876543210"},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Profile.Owner)

	sh, err := f.shops.ForOwner(ctx, res.Profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kirana", sh.Name)
	assert.False(t, sh.Verified)
}

func TestSignUp_Failures(t *testing.T) {
	f := setup(t)
	f.signUpAsha(t)

	tests := []struct {
		name    string
		req     SignUpRequest
		message string
		kind    error
	}{
		{"duplicate email", SignUpRequest{Email: "asha@example.com", Password: "secret1", Name: "A", Role: session.RoleCustomer},
			"This email is already registered. Please login instead.", apperr.ErrConflict},
		{"weak password", SignUpRequest{Email: "new@example.com", Password: "123", Name: "N", Role: session.RoleCustomer},
			"Password is too weak. Use at least 6 characters.", apperr.ErrUnprocessable},
		{"invalid email", SignUpRequest{Email: "not-an-email", Password: "secret1", Name: "N", Role: session.RoleCustomer},
			"Invalid email address", apperr.ErrUnprocessable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SignUp(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.message, err.Error())
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestSignUp_MissingRoleIsValidation(t *testing.T) {
	f := setup(t)
	_, err := f.svc.SignUp(context.Background(), SignUpRequest{Email: "x@example.com", Password: "secret1", Name: "X"})
	var verr *apperr.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSignIn(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.signUpAsha(t)

	res, err := f.svc.SignIn(ctx, SignInRequest{Email: " asha@example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Asha", res.Profile.Name)

	_, err = f.svc.SignIn(ctx, SignInRequest{Email: "asha@example.com", Password: "wrong-pass"})
	assert.EqualError(t, err, "Incorrect password")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.svc.SignIn(ctx, SignInRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.EqualError(t, err, "No account found with this email")
}

func TestSignIn_Throttled(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.signUpAsha(t)

	for i := 0; i < 3; i++ {
		_, err := f.svc.SignIn(ctx, SignInRequest{Email: "asha@example.com", Password: "nope-nope"})
		require.ErrorIs(t, err, ErrWrongPassword)
	}
	_, err := f.svc.SignIn(ctx, SignInRequest{Email: "asha@example.com", Password: "secret1"})
	assert.EqualError(t, err, "Too many failed attempts. Please try again later.")
	assert.ErrorIs(t, err, apperr.ErrTooManyRequests)
}

func TestSignInWithIDToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.verifier.On("Verify", mock.Anything, "good-token").
		Return(&ExternalIdentity{UID: "fb-uid-1", Email: "meena@example.com", Name: "Meena"}, nil)
	f.verifier.On("Verify", mock.Anything, "bad-token").
		Return(nil, errors.New("token expired"))

	first, err := f.svc.SignInWithIDToken(ctx, IDTokenRequest{IDToken: "good-token", Role: session.RoleCustomer})
	require.NoError(t, err)
	assert.Equal(t, "fb-uid-1", first.Profile.ID)
	assert.Equal(t, "Meena", first.Profile.Name)

	again, err := f.svc.SignInWithIDToken(ctx, IDTokenRequest{IDToken: "good-token"})
	require.NoError(t, err)
	assert.Equal(t, first.Profile.ID, again.Profile.ID)
	assert.NotEqual(t, first.Token, again.Token)

	_, err = f.svc.SignInWithIDToken(ctx, IDTokenRequest{IDToken: "bad-token"})
	assert.EqualError(t, err, "Invalid email or password")
	f.verifier.AssertExpectations(t)
}

func TestCurrent_RejectsForeignToken(t *testing.T) {
	f := setup(t)
	res := f.signUpAsha(t)

	other := NewService(Deps{Sessions: session.NewMemoryStore()}, Options{Secret: []byte("other-secret")})
	_, err := other.Current(context.Background(), res.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.svc.Current(context.Background(), "garbage")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestMessage_Fallback(t *testing.T) {
	assert.Equal(t, "Login failed: boom", Message("Login", errors.New("boom")))
	assert.Equal(t, "Signup failed: boom", Message("Signup", errors.New("boom")))
}

func TestHandler_SignInErrorBody(t *testing.T) {
	f := setup(t)
	f.signUpAsha(t)
	r := chi.NewRouter()
	NewHandler(f.svc).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin",
		strings.NewReader(`{"email":"asha@example.com","password":"wrong-pass"}`))
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Incorrect password"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/signout", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
