package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"worklog/middleware"
	"worklog/models"
)

const testSecret = "unit-test-jwt-secret-0123456789abcdef"

type stubVerifier struct {
	user models.User
	err  error
}

func (s stubVerifier) GetUser(ctx context.Context, token string) (models.User, error) {
	return s.user, s.err
}

func signToken(t *testing.T, claims *middleware.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return signed
}

func protectedHandler(captured **models.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = middleware.GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareLocalVerification(t *testing.T) {
	userID := uuid.New()
	claims := &middleware.Claims{
		Email: "dev@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	claims.UserMetadata.FullName = "Dev Example"

	auth := middleware.NewAuthenticator(testSecret, stubVerifier{}, nil, zap.NewNop())

	var got *models.User
	srv := auth.Middleware(protectedHandler(&got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, claims))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got == nil {
		t.Fatal("user not injected into context")
	}
	if got.ID != userID || got.Email != "dev@example.com" || got.Name != "Dev Example" {
		t.Errorf("user = %+v", got)
	}
}

func TestMiddlewareRejections(t *testing.T) {
	auth := middleware.NewAuthenticator(testSecret, stubVerifier{}, nil, zap.NewNop())
	var got *models.User
	srv := auth.Middleware(protectedHandler(&got))

	expired := &middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "not bearer", header: "Basic abc"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
		{name: "expired token", header: "Bearer " + signToken(t, expired)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestMiddlewareRemoteVerification(t *testing.T) {
	userID := uuid.New()
	verifier := stubVerifier{user: models.User{ID: userID, Email: "remote@example.com"}}
	auth := middleware.NewAuthenticator("", verifier, nil, zap.NewNop())

	var got *models.User
	srv := auth.Middleware(protectedHandler(&got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer any-opaque-token")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got == nil || got.Email != "remote@example.com" {
		t.Errorf("user = %+v", got)
	}
}

func TestMiddlewareRemoteRejection(t *testing.T) {
	auth := middleware.NewAuthenticator("", stubVerifier{err: errors.New("nope")}, nil, zap.NewNop())
	var got *models.User
	srv := auth.Middleware(protectedHandler(&got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer any")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
