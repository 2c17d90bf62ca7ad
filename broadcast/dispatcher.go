// Package broadcast gets operations signed and submitted with whichever
// credential a user has stored. Each call walks a short, linear state
// machine and never retries.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abcfe/hive-wallet/common/crypto"
	"github.com/abcfe/hive-wallet/common/errs"
	"github.com/abcfe/hive-wallet/common/logger"
	"github.com/abcfe/hive-wallet/credential"
	"github.com/abcfe/hive-wallet/hive"
	"github.com/abcfe/hive-wallet/keychain"
	"github.com/abcfe/hive-wallet/metrics"
	prt "github.com/abcfe/hive-wallet/protocol"
	"github.com/abcfe/hive-wallet/signer"
)

// State of a single dispatch.
type State string

const (
	StateResolve       State = "RESOLVE"
	StateSignLocal     State = "SIGN_LOCAL"
	StateSignExtension State = "SIGN_EXTENSION"
	StateSignHosted    State = "SIGN_HOSTED"
	StateDone          State = "DONE"
	StateFail          State = "FAIL"
)

func (s State) Terminal() bool {
	return s == StateDone || s == StateFail
}

// Backend names the signing path that produced a result.
type Backend string

const (
	BackendNone      Backend = ""
	BackendLocal     Backend = "local"
	BackendExtension Backend = "extension"
	BackendHosted    Backend = "hosted"
)

// ChainBroadcaster signs locally and submits to a node.
type ChainBroadcaster interface {
	SendOperations(ctx context.Context, ops hive.Operations, key *crypto.PrivateKey) (*hive.BroadcastResult, error)
}

// ExtensionBridge forwards operations to an out-of-process signer.
type ExtensionBridge interface {
	Broadcast(ctx context.Context, username string, ops hive.Operations, authority string) (*hive.BroadcastResult, error)
}

type HostedSigner interface {
	Broadcast(ctx context.Context, ops hive.Operations) (*hive.BroadcastResult, error)
}

// HostedSignerFactory builds a signer bound to one access token.
type HostedSignerFactory func(token string) HostedSigner

type Result struct {
	Backend  Backend               `json:"backend"`
	TxID     string                `json:"txId"`
	BlockNum uint32                `json:"blockNum"`
	TrxNum   uint32                `json:"trxNum"`
	Raw      *hive.BroadcastResult `json:"raw,omitempty"`
}

type Dispatcher struct {
	creds     credential.Reader
	chain     ChainBroadcaster
	extension ExtensionBridge
	hosted    HostedSignerFactory
	observer  func(from, to State)
}

type Option func(*Dispatcher)

func WithChain(c ChainBroadcaster) Option {
	return func(d *Dispatcher) { d.chain = c }
}

func WithExtension(b ExtensionBridge) Option {
	return func(d *Dispatcher) { d.extension = b }
}

func WithHostedSigner(f HostedSignerFactory) Option {
	return func(d *Dispatcher) { d.hosted = f }
}

// WithObserver is called on every transition, terminal ones included.
func WithObserver(fn func(from, to State)) Option {
	return func(d *Dispatcher) { d.observer = fn }
}

func NewDispatcher(creds credential.Reader, opts ...Option) *Dispatcher {
	d := &Dispatcher{creds: creds}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// run is the per-call state. It is never shared between calls.
type run struct {
	username string
	ops      hive.Operations
	record   credential.Record
	backend  Backend
	result   *hive.BroadcastResult
	err      error
}

type stepFn func(ctx context.Context, r *run) State

func (d *Dispatcher) step(s State) stepFn {
	switch s {
	case StateResolve:
		return d.resolve
	case StateSignLocal:
		return d.signLocal
	case StateSignExtension:
		return d.signExtension
	case StateSignHosted:
		return d.signHosted
	}
	return nil
}

// Dispatch signs and submits ops on behalf of username.
func (d *Dispatcher) Dispatch(ctx context.Context, username string, ops hive.Operations) (*Result, error) {
	if len(ops) == 0 {
		return nil, errs.Ef(errs.KindBroadcastRejected, "dispatch", "no operations")
	}

	r := &run{username: username, ops: ops}
	start := time.Now()

	state := StateResolve
	for !state.Terminal() {
		next := d.step(state)(ctx, r)
		if d.observer != nil {
			d.observer(state, next)
		}
		logger.Debug("dispatch ", username, ": ", state, " -> ", next)
		state = next
	}

	elapsed := time.Since(start).Seconds()
	if state == StateFail {
		metrics.ObserveBroadcast(string(r.backend), errs.KindOf(r.err).String(), elapsed)
		return nil, r.err
	}
	metrics.ObserveBroadcast(string(r.backend), "ok", elapsed)

	res := &Result{Backend: r.backend, Raw: r.result}
	if r.result != nil {
		res.TxID = r.result.ID
		res.BlockNum = r.result.BlockNum
		res.TrxNum = r.result.TrxNum
	}
	logger.Info("broadcast done: user=", username, " backend=", r.backend, " tx=", res.TxID)
	return res, nil
}

// DispatchJSON broadcasts a single custom_json signed with posting authority.
func (d *Dispatcher) DispatchJSON(ctx context.Context, username, id string, payload interface{}) (*Result, error) {
	ops, err := customJSONOps(username, id, payload)
	if err != nil {
		return nil, err
	}
	return d.Dispatch(ctx, username, ops)
}

// customJSONOps builds the single posting custom_json both dispatch paths send.
// A payload that is not valid JSON is rejected before any backend is chosen.
func customJSONOps(username, id string, payload interface{}) (hive.Operations, error) {
	op, err := hive.NewCustomJSON(username, id, payload)
	if err != nil {
		return nil, errs.E(errs.KindBroadcastRejected, "dispatch json", err)
	}
	return hive.Operations{op}, nil
}

func (r *run) fail(kind errs.Kind, op string, err error) State {
	r.err = errs.E(kind, op, err)
	return StateFail
}

// resolve picks a backend from stored credentials only.
func (d *Dispatcher) resolve(_ context.Context, r *run) State {
	rec, ok := d.creds.Get(r.username)
	if !ok {
		return r.fail(errs.KindNoCredential, "resolve", fmt.Errorf("no credential stored for %s", r.username))
	}
	r.record = rec

	switch {
	case rec.PostingKey != "":
		r.backend = BackendLocal
		return StateSignLocal
	case rec.LoginType == prt.LoginTypeKeychain:
		r.backend = BackendExtension
		return StateSignExtension
	case rec.AccessToken != "":
		r.backend = BackendHosted
		return StateSignHosted
	}
	return r.fail(errs.KindNoCredential, "resolve", fmt.Errorf("no usable credential for %s", r.username))
}

func (d *Dispatcher) signLocal(ctx context.Context, r *run) State {
	if d.chain == nil {
		return r.fail(errs.KindNoCredential, "sign local", errors.New("chain client not configured"))
	}
	key, err := crypto.ParseWIF(r.record.PostingKey)
	if err != nil {
		return r.fail(errs.KindNoCredential, "sign local", fmt.Errorf("stored posting key: %w", err))
	}
	res, err := d.chain.SendOperations(ctx, r.ops, key)
	if err != nil {
		return r.fail(classify(err), "sign local", err)
	}
	r.result = res
	return StateDone
}

func (d *Dispatcher) signExtension(ctx context.Context, r *run) State {
	if d.extension == nil {
		return r.fail(errs.KindNoCredential, "sign extension", errors.New("extension bridge not configured"))
	}
	res, err := d.extension.Broadcast(ctx, r.username, r.ops, prt.AuthorityPosting)
	if err != nil {
		return r.fail(classify(err), "sign extension", err)
	}
	r.result = res
	return StateDone
}

func (d *Dispatcher) signHosted(ctx context.Context, r *run) State {
	if d.hosted == nil {
		return r.fail(errs.KindNoCredential, "sign hosted", errors.New("hosted signer not configured"))
	}
	res, err := d.hosted(r.record.AccessToken).Broadcast(ctx, r.ops)
	if err != nil {
		return r.fail(classify(err), "sign hosted", err)
	}
	r.result = res
	return StateDone
}

// classify maps a backend error onto an error kind. Anything a backend
// reports that is not a transport, auth or user decision is a rejection.
func classify(err error) errs.Kind {
	if k := errs.KindOf(err); k != errs.KindUnknown {
		return k
	}

	var (
		hiveTransport   *hive.TransportError
		signerTransport *signer.TransportError
		bridgeTransport *keychain.TransportError
	)
	switch {
	case errors.Is(err, keychain.ErrUserCancel):
		return errs.KindUserDeclined
	case errors.Is(err, signer.ErrTokenExpired), errors.Is(err, signer.ErrMissingToken):
		return errs.KindAuthExpired
	case errors.Is(err, keychain.ErrNoBridge):
		return errs.KindNoCredential
	case errors.As(err, &hiveTransport),
		errors.As(err, &signerTransport),
		errors.As(err, &bridgeTransport),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return errs.KindUnavailable
	}
	return errs.KindBroadcastRejected
}
