package hive

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/abcfe/hive-wallet/common/crypto"
	"github.com/abcfe/hive-wallet/common/logger"
	"github.com/abcfe/hive-wallet/config"
)

var ErrAccountNotFound = errors.New("account not found")

// RPCError is an error returned by a node, including chain-level rejections
// of a broadcast transaction.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// TransportError means the node could not be reached or answered garbage.
type TransportError struct {
	Node string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      uint64      `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
	ID     uint64          `json:"id"`
}

// Client talks JSON-RPC to chain nodes. Reads fail over across nodes on
// transport errors; broadcasts only ever go to the first node.
type Client struct {
	nodes      []string
	httpClient *http.Client
	chainID    []byte
	expiration time.Duration
	reqID      atomic.Uint64
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithExpiration(d time.Duration) ClientOption {
	return func(c *Client) { c.expiration = d }
}

func WithChainID(chainID []byte) ClientOption {
	return func(c *Client) { c.chainID = chainID }
}

func NewClient(nodes []string, chainIDHex string, opts ...ClientOption) (*Client, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no rpc nodes configured")
	}
	chainID, err := hex.DecodeString(chainIDHex)
	if err != nil {
		return nil, fmt.Errorf("invalid chain id: %w", err)
	}
	c := &Client{
		nodes:      nodes,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		chainID:    chainID,
		expiration: time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func NewClientFromConfig(cfg *config.Config) (*Client, error) {
	return NewClient(cfg.Chain.Nodes, cfg.Chain.ChainID,
		WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Chain.TimeoutSec) * time.Second}),
		WithExpiration(time.Duration(cfg.Chain.ExpirationSec)*time.Second),
	)
}

func (c *Client) call(ctx context.Context, node, method string, params, result interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: c.reqID.Add(1)})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, node, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Node: node, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Node: node, Err: err}
	}
	defer resp.Body.Close()

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return &TransportError{Node: node, Err: fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)}
	}
	if out.Error != nil {
		return out.Error
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(out.Result, result); err != nil {
		return &TransportError{Node: node, Err: fmt.Errorf("decode %s result: %w", method, err)}
	}
	return nil
}

// read tries each node in order until one answers.
func (c *Client) read(ctx context.Context, method string, params, result interface{}) error {
	var lastErr error
	for _, node := range c.nodes {
		err := c.call(ctx, node, method, params, result)
		var te *TransportError
		if err == nil || !errors.As(err, &te) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		logger.Warn("rpc node failed, trying next: ", err)
		lastErr = err
	}
	return lastErr
}

func (c *Client) GetAccounts(ctx context.Context, names []string) ([]*Account, error) {
	var accounts []*Account
	if err := c.read(ctx, "condenser_api.get_accounts", []interface{}{names}, &accounts); err != nil {
		return nil, fmt.Errorf("get_accounts: %w", err)
	}
	return accounts, nil
}

// GetAccount returns ErrAccountNotFound when the chain has no such account.
func (c *Client) GetAccount(ctx context.Context, name string) (*Account, error) {
	accounts, err := c.GetAccounts(ctx, []string{name})
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if a != nil && a.Name == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, name)
}

func (c *Client) GetDynamicGlobalProperties(ctx context.Context) (*DynamicGlobalProperties, error) {
	var props DynamicGlobalProperties
	if err := c.read(ctx, "condenser_api.get_dynamic_global_properties", []interface{}{}, &props); err != nil {
		return nil, fmt.Errorf("get_dynamic_global_properties: %w", err)
	}
	return &props, nil
}

// BroadcastTransaction submits a signed transaction and waits for inclusion.
func (c *Client) BroadcastTransaction(ctx context.Context, tx *Transaction) (*BroadcastResult, error) {
	var res BroadcastResult
	if err := c.call(ctx, c.nodes[0], "condenser_api.broadcast_transaction_synchronous", []interface{}{tx}, &res); err != nil {
		return nil, fmt.Errorf("broadcast_transaction_synchronous: %w", err)
	}
	if res.ID == "" {
		if id, err := tx.ID(); err == nil {
			res.ID = id
		}
	}
	return &res, nil
}

// SendOperations builds, signs and broadcasts a transaction with key.
func (c *Client) SendOperations(ctx context.Context, ops Operations, key *crypto.PrivateKey) (*BroadcastResult, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("no operations to send")
	}
	props, err := c.GetDynamicGlobalProperties(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := NewTransaction(props, ops, c.expiration)
	if err != nil {
		return nil, err
	}
	if err := tx.Sign(key, c.chainID); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return c.BroadcastTransaction(ctx, tx)
}
