// Package signer is a client for a hosted signing service. The service holds
// the user's keys; callers authenticate with an access token and never see a
// private key.
package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/abcfe/hive-wallet/hive"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired covers expired, revoked and otherwise rejected tokens.
	ErrTokenExpired = errors.New("access token expired or revoked")
	ErrMissingToken = errors.New("access token is empty")
)

// APIError is a non-auth error reported by the signer.
type APIError struct {
	Status      int
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("signer error %d %s: %s", e.Status, e.Code, e.Description)
	}
	return fmt.Sprintf("signer error %d %s", e.Status, e.Code)
}

// TransportError means the signer could not be reached.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("signer unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

var authErrorCodes = map[string]bool{
	"invalid_grant":       true,
	"unauthorized_access": true,
	"unauthorized_client": true,
	"invalid_token":       true,
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	now        func() time.Time
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		now:        time.Now,
	}
}

type broadcastRequest struct {
	Operations hive.Operations `json:"operations"`
}

type broadcastResponse struct {
	Result *hive.BroadcastResult `json:"result"`
}

// Broadcast asks the signer to sign and submit ops for the token's user.
func (c *Client) Broadcast(ctx context.Context, ops hive.Operations) (*hive.BroadcastResult, error) {
	if err := c.checkToken(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(broadcastRequest{Operations: ops})
	if err != nil {
		return nil, fmt.Errorf("marshal broadcast: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/broadcast", bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || authErrorCodes[apiErr.Code] {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, apiErr)
		}
		return nil, apiErr
	}

	var out broadcastResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Result == nil {
		return &hive.BroadcastResult{}, nil
	}
	return out.Result, nil
}

// CustomJSON broadcasts a posting custom_json for username.
func (c *Client) CustomJSON(ctx context.Context, username, id string, payload interface{}) (*hive.BroadcastResult, error) {
	op, err := hive.NewCustomJSON(username, id, payload)
	if err != nil {
		return nil, err
	}
	return c.Broadcast(ctx, hive.Operations{op})
}

// checkToken fails fast on an empty token or a JWT whose exp has passed.
// Opaque tokens are left for the server to judge.
func (c *Client) checkToken() error {
	if c.token == "" {
		return ErrMissingToken
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.token, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(c.now()) {
		return fmt.Errorf("%w: exp %s", ErrTokenExpired, claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
	}
	return nil
}
