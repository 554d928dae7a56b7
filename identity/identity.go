// Package identity is the REST client for the external identity provider
// (a Supabase-style GoTrue service). It resolves bearer tokens to users and
// drives the OAuth/PKCE login, refresh, and sign-out flows. All provider
// response shapes are decoded into local types at this boundary.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"worklog/models"
)

// ErrUnauthorized marks a missing, invalid, or expired bearer token.
var ErrUnauthorized = errors.New("invalid or expired token")

// TokenResponse is the session pair returned by code exchange and refresh.
type TokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"`
	TokenType    string      `json:"token_type"`
	User         models.User `json:"user"`
}

// AuthResponse carries the provider authorization URL for the client to open.
type AuthResponse struct {
	URL string `json:"url"`
}

// CallbackRequest is the OAuth callback payload: authorization code plus the
// PKCE verifier generated before the flow started.
type CallbackRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
}

// Client talks to the identity provider on behalf of end users.
type Client struct {
	baseURL string
	apiKey  string
	oauth   *oauth2.Config
	http    *http.Client
	log     *zap.Logger
}

// NewClient builds a provider client for the given project URL and
// publishable API key.
func NewClient(baseURL, apiKey string, log *zap.Logger) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		oauth: &oauth2.Config{
			ClientID: apiKey,
			Endpoint: oauth2.Endpoint{
				AuthURL:  baseURL + "/auth/v1/authorize",
				TokenURL: baseURL + "/auth/v1/token",
			},
		},
		http: &http.Client{Timeout: 15 * time.Second},
		log:  log,
	}
}

// AuthorizeURL returns the Google OAuth authorization URL. If codeChallenge
// is set the PKCE S256 parameters are included.
func (c *Client) AuthorizeURL(redirectURL, codeChallenge string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("provider", "google"),
		oauth2.SetAuthURLParam("redirect_to", redirectURL),
	}
	if codeChallenge != "" {
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", codeChallenge),
			oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		)
	} else {
		c.log.Warn("building authorize URL without a PKCE code challenge")
	}
	return c.oauth.AuthCodeURL("", opts...)
}

// ExchangeCode trades an authorization code and PKCE verifier for a session.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier string) (*TokenResponse, error) {
	body := map[string]string{
		"auth_code":     code,
		"code_verifier": codeVerifier,
	}
	return c.tokenRequest(ctx, "pkce", body)
}

// RefreshSession trades a refresh token for a new session pair.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	body := map[string]string{"refresh_token": refreshToken}
	resp, err := c.tokenRequest(ctx, "refresh_token", body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return resp, nil
}

func (c *Client) tokenRequest(ctx context.Context, grantType string, body map[string]string) (*TokenResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/auth/v1/token?grant_type=%s", c.baseURL, grantType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("token grant rejected",
			zap.String("grant_type", grantType),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("token grant failed with status %d: %s", resp.StatusCode, errorMessage(raw))
	}

	var session sessionResponse
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	user, err := session.User.toUser()
	if err != nil {
		return nil, err
	}
	tokenType := session.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}
	return &TokenResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
		TokenType:    tokenType,
		User:         user,
	}, nil
}

// GetUser resolves a bearer token to the user it belongs to.
func (c *Client) GetUser(ctx context.Context, accessToken string) (models.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return models.User{}, err
	}
	c.setHeaders(req, accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return models.User{}, fmt.Errorf("user lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return models.User{}, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return models.User{}, fmt.Errorf("user lookup failed with status %d", resp.StatusCode)
	}

	var gu providerUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return models.User{}, fmt.Errorf("decoding user response: %w", err)
	}
	return gu.toUser()
}

// SignOut invalidates the session behind the access token. Failures are
// logged and swallowed: a dead session is the desired end state either way.
func (c *Client) SignOut(ctx context.Context, accessToken string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return
	}
	c.setHeaders(req, accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("sign-out request failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		c.log.Warn("sign-out rejected", zap.Int("status", resp.StatusCode))
	}
}

func (c *Client) setHeaders(req *http.Request, accessToken string) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
}

// AdminClient performs privileged provider operations with the service role
// key. It is an optional capability: construct it once at startup iff the
// key is configured.
type AdminClient struct {
	baseURL string
	key     string
	http    *http.Client
}

// NewAdminClient returns nil when no service role key is configured.
func NewAdminClient(baseURL, serviceRoleKey string) *AdminClient {
	if serviceRoleKey == "" {
		return nil
	}
	return &AdminClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		key:     serviceRoleKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// GetUserByID fetches a user record through the provider admin API.
func (a *AdminClient) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	url := fmt.Sprintf("%s/auth/v1/admin/users/%s", a.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.User{}, err
	}
	req.Header.Set("apikey", a.key)
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return models.User{}, fmt.Errorf("admin user lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.User{}, fmt.Errorf("admin user lookup failed with status %d", resp.StatusCode)
	}
	var gu providerUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return models.User{}, fmt.Errorf("decoding admin user response: %w", err)
	}
	return gu.toUser()
}

// providerUser is the provider's wire shape for an account record.
type providerUser struct {
	ID           string `json:"id"`
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
}

func (p providerUser) toUser() (models.User, error) {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return models.User{}, fmt.Errorf("provider returned invalid user id %q", p.ID)
	}
	name := p.UserMetadata.FullName
	if name == "" {
		name = p.UserMetadata.Name
	}
	avatar := p.UserMetadata.AvatarURL
	if avatar == "" {
		avatar = p.UserMetadata.Picture
	}
	return models.User{
		ID:        id,
		Email:     p.Email,
		Name:      name,
		AvatarURL: avatar,
		Provider:  p.AppMetadata.Provider,
	}, nil
}

// sessionResponse is the provider's wire shape for a granted session.
type sessionResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	TokenType    string       `json:"token_type"`
	User         providerUser `json:"user"`
}

// errorMessage extracts the provider's error description from a failed
// response, falling back to a bounded raw prefix.
func errorMessage(raw []byte) string {
	var e struct {
		Message          string `json:"msg"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.ErrorDescription != "" {
			return e.ErrorDescription
		}
	}
	if len(raw) > 200 {
		raw = raw[:200]
	}
	return string(raw)
}
