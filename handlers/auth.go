package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"worklog/identity"
	"worklog/middleware"
	"worklog/models"
)

// IdentityService is the sign-in flow contract implemented by identity.Client.
type IdentityService interface {
	AuthorizeURL(redirectURL, codeChallenge string) string
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*identity.TokenResponse, error)
	RefreshSession(ctx context.Context, refreshToken string) (*identity.TokenResponse, error)
	SignOut(ctx context.Context, accessToken string)
}

// AuthHandler serves the OAuth sign-in flow and session endpoints.
type AuthHandler struct {
	identity    IdentityService
	frontendURL string
	log         *zap.Logger
}

func NewAuthHandler(svc IdentityService, frontendURL string, log *zap.Logger) *AuthHandler {
	return &AuthHandler{identity: svc, frontendURL: frontendURL, log: log}
}

// GoogleAuth returns the provider authorize URL for the PKCE flow. The client
// supplies its S256 code challenge and keeps the verifier until the callback.
func (h *AuthHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	challenge := r.URL.Query().Get("code_challenge")
	if challenge == "" {
		respondValidation(w, models.ValidationErrors{{Field: "code_challenge", Message: "code_challenge is required"}})
		return
	}
	redirect := r.URL.Query().Get("redirect_url")
	if redirect == "" {
		redirect = h.frontendURL + "/auth/callback"
	}
	respondJSON(w, http.StatusOK, identity.AuthResponse{URL: h.identity.AuthorizeURL(redirect, challenge)})
}

// GoogleRedirect sends the browser straight to the provider.
func (h *AuthHandler) GoogleRedirect(w http.ResponseWriter, r *http.Request) {
	challenge := r.URL.Query().Get("code_challenge")
	if challenge == "" {
		respondValidation(w, models.ValidationErrors{{Field: "code_challenge", Message: "code_challenge is required"}})
		return
	}
	redirect := r.URL.Query().Get("redirect_url")
	if redirect == "" {
		redirect = h.frontendURL + "/auth/callback"
	}
	http.Redirect(w, r, h.identity.AuthorizeURL(redirect, challenge), http.StatusSeeOther)
}

// Callback exchanges the authorization code plus PKCE verifier for tokens.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var req identity.CallbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" || req.CodeVerifier == "" {
		respondValidation(w, models.ValidationErrors{{Field: "code", Message: "code and code_verifier are required"}})
		return
	}

	tokens, err := h.identity.ExchangeCode(r.Context(), req.Code, req.CodeVerifier)
	if err != nil {
		h.log.Warn("code exchange failed", zap.Error(err))
		respondError(w, http.StatusBadRequest, "Authentication failed")
		return
	}
	respondJSON(w, http.StatusOK, tokens)
}

// Refresh trades a refresh token for a new session.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		respondValidation(w, models.ValidationErrors{{Field: "refresh_token", Message: "refresh_token is required"}})
		return
	}

	tokens, err := h.identity.RefreshSession(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Session expired")
		return
	}
	respondJSON(w, http.StatusOK, tokens)
}

// Logout revokes the caller's session with the provider. Revocation is best
// effort; the response is always a success so clients can clear local state.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.BearerToken(r); token != "" {
		h.identity.SignOut(r.Context(), token)
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
