package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/abcfe/hive-wallet/common/errs"
	"github.com/abcfe/hive-wallet/common/logger"
	"github.com/abcfe/hive-wallet/hive"
	"github.com/abcfe/hive-wallet/metrics"
	prt "github.com/abcfe/hive-wallet/protocol"
)

// AccountFetcher returns an account's authority record, or an error wrapping
// hive.ErrAccountNotFound.
type AccountFetcher interface {
	GetAccount(ctx context.Context, username string) (*hive.Account, error)
}

// Detector classifies a credential against an account's on-chain keys.
// It never broadcasts and never writes.
type Detector struct {
	accounts     AccountFetcher
	accountIndex uint32
}

type DetectorOption func(*Detector)

// WithAccountIndex sets the hierarchical account index tried. Default 0.
func WithAccountIndex(i uint32) DetectorOption {
	return func(d *Detector) { d.accountIndex = i }
}

func NewDetector(accounts AccountFetcher, opts ...DetectorOption) *Detector {
	d := &Detector{accounts: accounts}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect reports which scheme, if any, derives a key registered for
// username. The hierarchical scheme is always checked first and wins over a
// simultaneous legacy match. An empty role means active.
func (d *Detector) Detect(ctx context.Context, username, credential string, role prt.Role) (Derivation, error) {
	const op = "wallet.Detect"

	if role == "" {
		role = prt.RoleActive
	}
	if !role.Valid() {
		return DerivationUnknown, fmt.Errorf("%s: unknown role %q", op, role)
	}

	account, err := d.accounts.GetAccount(ctx, username)
	if err != nil {
		if errors.Is(err, hive.ErrAccountNotFound) {
			return DerivationUnknown, errs.E(errs.KindAccountNotFound, op, err)
		}
		return DerivationUnknown, fmt.Errorf("%s: fetch %s: %w", op, username, err)
	}

	result := d.classify(account, username, credential, role)
	metrics.ObserveDetect(result.String())
	return result, nil
}

func (d *Detector) classify(account *hive.Account, username, credential string, role prt.Role) Derivation {
	if IsMnemonic(credential) {
		keys, err := DeriveHierarchical(credential, d.accountIndex)
		if err != nil {
			logger.Debug("hierarchical derivation skipped for ", username, ": ", err)
		} else if account.Active.HasKey(keys.Active.Public.String()) {
			return DerivationHierarchical
		}
	}

	legacy := DeriveLegacy(username, credential, role)
	if account.HasKey(role, legacy.Public.String()) {
		return DerivationLegacy
	}
	return DerivationUnknown
}
