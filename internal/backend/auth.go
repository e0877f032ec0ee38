package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/campusudc/asesorias-api/internal/models"
	"github.com/campusudc/asesorias-api/pkg/config"
	appErrors "github.com/campusudc/asesorias-api/pkg/errors"
)

// AuthClient talks to the hosted authentication service. Tokens are minted on
// that side; the client verifies them locally with the shared signing secret.
type AuthClient struct {
	baseURL   string
	apiKey    string
	jwtSecret []byte
	http      *http.Client
}

// NewAuthClient constructs the auth client from configuration.
func NewAuthClient(cfg config.AuthConfig) *AuthClient {
	return &AuthClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		jwtSecret: []byte(cfg.JWTSecret),
		http:      &http.Client{Timeout: cfg.RequestTimeout},
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type authError struct {
	Message     string `json:"msg"`
	Description string `json:"error_description"`
}

// SignIn exchanges credentials for a session at the password-grant endpoint.
func (c *AuthClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, appErrors.Remote(err, "encode credentials")
	}

	url := c.baseURL + "/token?grant_type=password"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, appErrors.Remote(err, "build sign-in request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, appErrors.Remote(err, "sign-in call failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, appErrors.Remote(err, "read sign-in response")
	}

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		var apiErr authError
		_ = json.Unmarshal(body, &apiErr)
		msg := apiErr.Description
		if msg == "" {
			msg = apiErr.Message
		}
		if msg == "" {
			msg = "invalid credentials"
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, msg)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, appErrors.Remote(fmt.Errorf("auth service returned %d", resp.StatusCode), "sign-in failed")
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, appErrors.Remote(err, "decode sign-in response")
	}

	return &Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    token.ExpiresIn,
		Identity:     models.Identity{ID: token.User.ID, Email: token.User.Email},
	}, nil
}

// SignOut revokes the session behind the access token. A failure here still
// lets the caller clear local state; the error is reported for logging.
func (c *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/logout", nil)
	if err != nil {
		return appErrors.Remote(err, "build sign-out request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return appErrors.Remote(err, "sign-out call failed")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return appErrors.Remote(fmt.Errorf("auth service returned %d", resp.StatusCode), "sign-out failed")
	}
	return nil
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SessionFromToken verifies the access token and extracts the identity. An
// empty token means no session (nil identity, nil error); an invalid or
// expired one is equally "no session" from the session store's point of view.
func (c *AuthClient) SessionFromToken(accessToken string) (*models.Identity, error) {
	if accessToken == "" {
		return nil, nil
	}

	token, err := jwt.ParseWithClaims(accessToken, &accessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.jwtSecret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthenticated.Code, appErrors.ErrUnauthenticated.Status, "invalid token")
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "invalid token claims")
	}

	return &models.Identity{ID: claims.Subject, Email: claims.Email}, nil
}
