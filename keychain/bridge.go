// Package keychain talks to a browser-extension signer through a local
// WebSocket bridge. The extension prompts the user and signs with keys it
// holds itself.
package keychain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abcfe/hive-wallet/common/logger"
	"github.com/abcfe/hive-wallet/config"
	"github.com/abcfe/hive-wallet/hive"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const cancelCode = "user_cancel"

var (
	ErrUserCancel = errors.New("user cancelled the request")
	ErrNoBridge   = errors.New("keychain bridge url not configured")
)

// RejectedError is any non-cancel failure reported by the extension.
type RejectedError struct {
	Code    string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("keychain rejected: %s", e.Message)
	}
	return fmt.Sprintf("keychain rejected (%s): %s", e.Code, e.Message)
}

// TransportError means the bridge could not be reached or went away
// before answering.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("keychain bridge: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type Request struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Username   string          `json:"username"`
	Operations hive.Operations `json:"operations"`
	Method     string          `json:"method"`
}

type Response struct {
	ID      string                `json:"id"`
	Success bool                  `json:"success"`
	Result  *hive.BroadcastResult `json:"result,omitempty"`
	Error   string                `json:"error,omitempty"`
	Message string                `json:"message,omitempty"`
}

type Bridge struct {
	url     string
	timeout time.Duration
	dialer  *websocket.Dialer
}

func NewBridge(url string, timeout time.Duration) *Bridge {
	return &Bridge{
		url:     url,
		timeout: timeout,
		dialer:  websocket.DefaultDialer,
	}
}

func NewBridgeFromConfig(cfg *config.Config) *Bridge {
	return NewBridge(cfg.Keychain.BridgeURL, time.Duration(cfg.Keychain.TimeoutSec)*time.Second)
}

// Broadcast sends ops to the extension and waits for the user's answer.
// authority is "Posting" or "Active".
func (b *Bridge) Broadcast(ctx context.Context, username string, ops hive.Operations, authority string) (*hive.BroadcastResult, error) {
	if b.url == "" {
		return nil, ErrNoBridge
	}
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	conn, _, err := b.dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer conn.Close()

	// unblock ReadJSON when ctx ends
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	req := Request{
		ID:         uuid.NewString(),
		Type:       "broadcast",
		Username:   username,
		Operations: ops,
		Method:     authority,
	}
	if err := conn.WriteJSON(req); err != nil {
		return nil, &TransportError{Err: err}
	}
	logger.Debug("keychain request sent: ", req.ID, " user=", username)

	for {
		var resp Response
		if err := conn.ReadJSON(&resp); err != nil {
			if ctx.Err() != nil {
				return nil, &TransportError{Err: ctx.Err()}
			}
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				logger.Warn("keychain bridge sent malformed frame: ", err)
				continue
			}
			return nil, &TransportError{Err: err}
		}
		if resp.ID != req.ID {
			continue
		}
		if !resp.Success {
			if resp.Error == cancelCode {
				return nil, ErrUserCancel
			}
			return nil, &RejectedError{Code: resp.Error, Message: resp.Message}
		}
		if resp.Result == nil {
			return &hive.BroadcastResult{}, nil
		}
		return resp.Result, nil
	}
}
