package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nexcart/commerce-core/internal/errors"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserinfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

	maxProviderResponseBytes = 1 << 20
)

// GoogleConfig holds the OAuth client registration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// GoogleProvider drives the redirect-based Google sign-in handshake and
// produces identity assertions for the resolver.
type GoogleProvider struct {
	cfg         GoogleConfig
	httpClient  *http.Client
	authURL     string
	tokenURL    string
	userinfoURL string
}

// NewGoogleProvider creates a provider from the given client registration.
func NewGoogleProvider(cfg GoogleConfig) (*GoogleProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, fmt.Errorf("google oauth client id, secret and redirect url are required")
	}

	return &GoogleProvider{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		authURL:     googleAuthURL,
		tokenURL:    googleTokenURL,
		userinfoURL: googleUserinfoURL,
	}, nil
}

// AuthCodeURL builds the provider redirect URL for the given CSRF state.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", p.cfg.ClientID)
	q.Set("redirect_uri", p.cfg.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid profile email")
	q.Set("prompt", "select_account")
	q.Set("state", state)
	return p.authURL + "?" + q.Encode()
}

// FetchAssertion exchanges an authorization code and fetches the user's
// profile, returning the resulting identity assertion.
func (p *GoogleProvider) FetchAssertion(ctx context.Context, code string) (Assertion, error) {
	accessToken, err := p.exchange(ctx, code)
	if err != nil {
		return Assertion{}, err
	}
	return p.userinfo(ctx, accessToken)
}

func (p *GoogleProvider) exchange(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	form.Set("redirect_uri", p.cfg.RedirectURL)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Dependency("build token exchange request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", errors.Dependency("exchange authorization code", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderResponseBytes))
	if err != nil {
		return "", errors.Dependency("read token exchange response", err)
	}
	if resp.StatusCode >= 400 {
		return "", errors.Dependency(fmt.Sprintf("token exchange failed with status %d", resp.StatusCode), nil)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", errors.Dependency("decode token exchange response", err)
	}
	if payload.AccessToken == "" {
		return "", errors.Dependency("token exchange returned no access token", nil)
	}
	return payload.AccessToken, nil
}

func (p *GoogleProvider) userinfo(ctx context.Context, accessToken string) (Assertion, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userinfoURL, nil)
	if err != nil {
		return Assertion{}, errors.Dependency("build userinfo request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Assertion{}, errors.Dependency("fetch userinfo", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderResponseBytes))
	if err != nil {
		return Assertion{}, errors.Dependency("read userinfo response", err)
	}
	if resp.StatusCode >= 400 {
		return Assertion{}, errors.Dependency(fmt.Sprintf("userinfo failed with status %d", resp.StatusCode), nil)
	}

	var payload struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Assertion{}, errors.Dependency("decode userinfo response", err)
	}

	return Assertion{ExternalID: payload.Sub, Email: payload.Email, Name: payload.Name}, nil
}
