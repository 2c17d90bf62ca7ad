package broadcast

import (
	"context"

	"github.com/abcfe/hive-wallet/common/logger"
	"github.com/abcfe/hive-wallet/hive"
	prt "github.com/abcfe/hive-wallet/protocol"
)

// Invalidator drops cached reads.
type Invalidator interface {
	Invalidate(keys ...string)
}

// Mutation wraps a Dispatcher with work to do after a successful broadcast.
// Nothing runs on failure, and nothing done here changes the result.
type Mutation struct {
	dispatcher  *Dispatcher
	invalidator Invalidator
	onSuccess   func(username string, res *Result)
}

type MutationOption func(*Mutation)

func WithInvalidator(inv Invalidator) MutationOption {
	return func(m *Mutation) { m.invalidator = inv }
}

func WithOnSuccess(fn func(username string, res *Result)) MutationOption {
	return func(m *Mutation) { m.onSuccess = fn }
}

func NewMutation(d *Dispatcher, opts ...MutationOption) *Mutation {
	m := &Mutation{dispatcher: d}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mutation) Dispatch(ctx context.Context, username string, ops hive.Operations) (*Result, error) {
	res, err := m.dispatcher.Dispatch(ctx, username, ops)
	if err != nil {
		return nil, err
	}
	m.after(username, ops, res)
	return res, nil
}

func (m *Mutation) DispatchJSON(ctx context.Context, username, id string, payload interface{}) (*Result, error) {
	ops, err := customJSONOps(username, id, payload)
	if err != nil {
		return nil, err
	}
	return m.Dispatch(ctx, username, ops)
}

// InvalidationKeys are the cache keys of every account ops touch.
func InvalidationKeys(ops hive.Operations) []string {
	names := hive.AffectedAccounts(ops)
	keys := make([]string, 0, len(names))
	for _, n := range names {
		keys = append(keys, prt.PrefixCacheAccount+n)
	}
	return keys
}

func (m *Mutation) after(username string, ops hive.Operations, res *Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("post-broadcast hook panicked: ", r)
		}
	}()
	if m.invalidator != nil {
		if keys := InvalidationKeys(ops); len(keys) > 0 {
			m.invalidator.Invalidate(keys...)
		}
	}
	if m.onSuccess != nil {
		m.onSuccess(username, res)
	}
}
