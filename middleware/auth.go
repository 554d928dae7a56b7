package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"worklog/models"
)

type contextKey string

// UserContextKey carries the authenticated user through the request context.
const UserContextKey contextKey = "user"

// TokenVerifier resolves a bearer token to a user via the identity provider.
type TokenVerifier interface {
	GetUser(ctx context.Context, accessToken string) (models.User, error)
}

// AdminLookup fetches a full user record by id with provider admin
// privileges. Optional capability; may be absent.
type AdminLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

// Claims is the provider-issued JWT payload we care about.
type Claims struct {
	Email        string `json:"email"`
	UserMetadata struct {
		FullName  string `json:"full_name"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
		Picture   string `json:"picture"`
	} `json:"user_metadata"`
	AppMetadata struct {
		Provider string `json:"provider"`
	} `json:"app_metadata"`
	jwt.RegisteredClaims
}

// Authenticator turns bearer tokens into request-scoped users. When a JWT
// secret is configured, tokens are verified locally (HS256); otherwise each
// token costs one identity-provider round trip.
type Authenticator struct {
	secret   []byte
	verifier TokenVerifier
	admin    AdminLookup
	log      *zap.Logger
}

// NewAuthenticator builds the middleware. jwtSecret and admin may be empty.
func NewAuthenticator(jwtSecret string, verifier TokenVerifier, admin AdminLookup, log *zap.Logger) *Authenticator {
	var secret []byte
	if jwtSecret != "" {
		secret = []byte(jwtSecret)
	}
	return &Authenticator{secret: secret, verifier: verifier, admin: admin, log: log}
}

// Middleware rejects requests without a valid bearer token and injects the
// resolved user into the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			unauthorized(w, "missing authentication token")
			return
		}

		var user models.User
		var err error
		if a.secret != nil {
			user, err = a.verifyLocal(r.Context(), token)
		} else {
			user, err = a.verifier.GetUser(r.Context(), token)
		}
		if err != nil {
			a.log.Debug("bearer token rejected", zap.Error(err))
			unauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, &user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// verifyLocal checks the token signature and expiry against the configured
// secret and builds the user from the claims. Tokens minted without profile
// claims are enriched through the admin lookup when one is available.
func (a *Authenticator) verifyLocal(ctx context.Context, tokenString string) (models.User, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.User{}, err
	}
	if !token.Valid {
		return models.User{}, jwt.ErrSignatureInvalid
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:       id,
		Email:    claims.Email,
		Provider: claims.AppMetadata.Provider,
	}
	user.Name = claims.UserMetadata.FullName
	if user.Name == "" {
		user.Name = claims.UserMetadata.Name
	}
	user.AvatarURL = claims.UserMetadata.AvatarURL
	if user.AvatarURL == "" {
		user.AvatarURL = claims.UserMetadata.Picture
	}

	if user.Email == "" && a.admin != nil {
		if full, err := a.admin.GetUserByID(ctx, id); err == nil {
			user = full
		} else {
			a.log.Warn("admin user enrichment failed", zap.Error(err))
		}
	}
	return user, nil
}

// BearerToken extracts the token from the Authorization header, or "".
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// GetUserFromContext returns the authenticated user, or nil outside the
// auth middleware.
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
