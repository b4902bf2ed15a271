package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gitwatch-app/gitwatch/internal/pkg/env"
)

const (
	defaultAuthorizeURL = "https://github.com/login/oauth/authorize"
	defaultTokenURL     = "https://github.com/login/oauth/access_token"
	defaultAPIBaseURL   = "https://api.github.com"

	// Scopes needed to read private repos and manage their webhooks
	oauthScope = "repo,admin:repo_hook"
)

// OAuthClient performs the GitHub authorization-code flow and fetches the
// authenticated user's identity.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	AuthorizeURL string
	TokenURL     string
	APIBaseURL   string

	HTTPClient *http.Client
}

// AuthenticatedUser is the subset of the GitHub user resource this app
// needs.
type AuthenticatedUser struct {
	Login     string `json:"login"`
	ID        int64  `json:"id"`
	AvatarURL string `json:"avatar_url"`
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// NewOAuthClientFromEnv builds the client from GITHUB_CLIENT_ID,
// GITHUB_CLIENT_SECRET and PUBLIC_DOMAIN.
func NewOAuthClientFromEnv() *OAuthClient {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	redirectURI := strings.TrimSpace(env.GetEnv("GITHUB_REDIRECT_URI", ""))
	if redirectURI == "" && base != "" {
		redirectURI = base + "/api/auth/github/callback"
	}

	return &OAuthClient{
		ClientID:     strings.TrimSpace(env.GetEnv("GITHUB_CLIENT_ID", "")),
		ClientSecret: strings.TrimSpace(env.GetEnv("GITHUB_CLIENT_SECRET", "")),
		RedirectURI:  redirectURI,
		AuthorizeURL: strings.TrimSpace(env.GetEnv("GITHUB_AUTHORIZE_URL", defaultAuthorizeURL)),
		TokenURL:     strings.TrimSpace(env.GetEnv("GITHUB_TOKEN_URL", defaultTokenURL)),
		APIBaseURL:   strings.TrimSpace(env.GetEnv("GITHUB_API_BASE_URL", defaultAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// AuthorizeURLWithState returns the upstream authorization URL carrying
// the signed state parameter.
func (c *OAuthClient) AuthorizeURLWithState(state string) (string, error) {
	if strings.TrimSpace(c.ClientID) == "" {
		return "", errors.New("GITHUB_CLIENT_ID is not configured")
	}
	if strings.TrimSpace(c.RedirectURI) == "" {
		return "", errors.New("GITHUB_REDIRECT_URI is not configured")
	}
	u, err := url.Parse(c.AuthorizeURL)
	if err != nil {
		return "", fmt.Errorf("invalid GITHUB_AUTHORIZE_URL: %w", err)
	}
	q := u.Query()
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURI)
	q.Set("scope", oauthScope)
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExchangeCode trades the authorization code for an access token.
func (c *OAuthClient) ExchangeCode(ctx context.Context, code string) (string, error) {
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "" {
		return "", errors.New("GITHUB_CLIENT_ID/GITHUB_CLIENT_SECRET are not configured")
	}
	if strings.TrimSpace(code) == "" {
		return "", errors.New("oauth code is required")
	}

	payload, err := json.Marshal(map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"code":          strings.TrimSpace(code),
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(string(payload)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("github token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("github token exchange returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode github token response: %w", err)
	}
	if decoded.AccessToken == "" {
		if decoded.Error != "" {
			return "", fmt.Errorf("github token exchange rejected: %s (%s)", decoded.Error, decoded.ErrorDescription)
		}
		return "", errors.New("github token exchange returned no access token")
	}
	return decoded.AccessToken, nil
}

// FetchAuthenticatedUser resolves the token to its GitHub account.
func (c *OAuthClient) FetchAuthenticatedUser(ctx context.Context, accessToken string) (*AuthenticatedUser, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, errors.New("access token is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.APIBaseURL, "/")+"/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github user fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github user fetch returned %d", resp.StatusCode)
	}

	var user AuthenticatedUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode github user response: %w", err)
	}
	if user.Login == "" {
		return nil, errors.New("github user response missing login")
	}
	return &user, nil
}
