package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates against the backend and keeps the returned token for
// later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	data, err := c.do(ctx, http.MethodPost, "/auth/login", nil, loginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	var auth AuthResponse
	if err := decodeObject(data, &auth); err != nil {
		return nil, err
	}
	if auth.Token == "" {
		return nil, &APIError{Status: http.StatusOK, Message: "login response carried no token"}
	}

	c.SetToken(auth.Token, TokenExpiry(auth))
	return &auth, nil
}

// Logout tells the backend the token is no longer used. The local token and
// cache are dropped even when the call fails.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.ClearToken()
	c.cache.Clear()
	return err
}

func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	data, err := c.get(ctx, "/auth/me", TagUser)
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeObject(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// TokenExpiry prefers the explicit expiresAt field and falls back to the exp
// claim of the token. The signature is not verified; the backend owns that.
func TokenExpiry(auth AuthResponse) time.Time {
	if auth.ExpiresAt != "" {
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
			if parsed, err := time.Parse(layout, auth.ExpiresAt); err == nil {
				return parsed
			}
		}
	}

	if auth.Token == "" {
		return time.Time{}
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(auth.Token, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
