// Package authprovider talks to the hosted auth service that can send
// password reset emails and update a password for a recovery session.
package authprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotConfigured is returned by a zero Client.
var ErrNotConfigured = errors.New("auth provider not configured")

// Provider is the part of the hosted auth API the portal uses.
type Provider interface {
	SendRecoveryEmail(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, accessToken, newPassword string) (email string, err error)
	SignOut(ctx context.Context, accessToken string) error
}

// Client is a GoTrue-compatible REST client.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient returns nil when baseURL is empty so callers can treat the
// provider as optional.
func NewClient(baseURL, apiKey string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, http: &http.Client{Timeout: 10 * time.Second}}
}

// SendRecoveryEmail asks the provider to mail a reset link.
func (c *Client) SendRecoveryEmail(ctx context.Context, email, redirectTo string) error {
	if c == nil {
		return ErrNotConfigured
	}
	endpoint := c.baseURL + "/auth/v1/recover"
	if redirectTo != "" {
		endpoint += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	return c.do(ctx, http.MethodPost, endpoint, "", map[string]string{"email": email}, nil)
}

// UpdatePassword sets a new password for the user owning accessToken and
// returns that user's email.
func (c *Client) UpdatePassword(ctx context.Context, accessToken, newPassword string) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}
	var out struct {
		Email string `json:"email"`
	}
	if err := c.do(ctx, http.MethodPut, c.baseURL+"/auth/v1/user", accessToken, map[string]string{"password": newPassword}, &out); err != nil {
		return "", err
	}
	if out.Email == "" {
		return "", errors.New("auth provider returned no email")
	}
	return out.Email, nil
}

// SignOut ends the provider session created by the recovery link.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if c == nil {
		return ErrNotConfigured
	}
	return c.do(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", accessToken, nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint, bearer string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	} else if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("auth provider %s %s: status %d: %s", method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
