package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client talks to a running walletd REST API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for host:port
func NewClient(host string, port int) *Client {
	return NewClientURL(fmt.Sprintf("http://%s:%d", host, port))
}

func NewClientURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 150 * time.Second,
		},
	}
}

// WithToken sets the bearer token sent to signing routes
func (c *Client) WithToken(token string) *Client {
	c.token = token
	return c
}

// RestResp is the API response envelope
type RestResp struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Kind    string          `json:"kind,omitempty"`
}

// Error is a failed API call. Kind is the server's error kind name.
type Error struct {
	Status  int
	Kind    string
	Message string
}

func (e *Error) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Detection struct {
	Username   string `json:"username"`
	Role       string `json:"role"`
	Derivation string `json:"derivation"`
}

type Keys struct {
	Derivation string            `json:"derivation"`
	Paths      map[string]string `json:"paths,omitempty"`
	Public     map[string]string `json:"public"`
	Private    map[string]string `json:"private,omitempty"`
}

type BroadcastResult struct {
	Backend  string `json:"backend"`
	TxID     string `json:"txId"`
	BlockNum uint32 `json:"blockNum"`
	TrxNum   uint32 `json:"trxNum"`
}

// Detect asks the daemon how credential relates to username's keys
func (c *Client) Detect(username, credential, role string) (*Detection, error) {
	req := map[string]string{"username": username, "credential": credential, "role": role}
	var out Detection
	if err := c.post("/api/v1/keys/detect", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeriveLegacy derives the four role keys from a master password
func (c *Client) DeriveLegacy(username, password string) (*Keys, error) {
	req := map[string]string{"username": username, "password": password}
	var out Keys
	if err := c.post("/api/v1/keys/derive", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAccount returns the raw authority record of username
func (c *Client) GetAccount(username string) (json.RawMessage, error) {
	resp, err := c.do(http.MethodGet, "/api/v1/account/"+url.PathEscape(username), nil)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CustomJSON broadcasts a posting custom_json through the daemon
func (c *Client) CustomJSON(username, id string, payload json.RawMessage) (*BroadcastResult, error) {
	req := map[string]interface{}{"username": username, "id": id, "json": payload}
	var out BroadcastResult
	if err := c.post("/api/v1/broadcast/custom-json", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IsAlive checks whether the daemon answers
func (c *Client) IsAlive() bool {
	_, err := c.do(http.MethodGet, "/", nil)
	return err == nil
}

func (c *Client) post(path string, body, out interface{}) error {
	resp, err := c.do(http.MethodPost, path, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(method, path string, body interface{}) (*RestResp, error) {
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result RestResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if !result.Success {
		return nil, &Error{Status: resp.StatusCode, Kind: result.Kind, Message: result.Error}
	}

	return &result, nil
}
