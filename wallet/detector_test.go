package wallet

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/abcfe/hive-wallet/common/errs"
	"github.com/abcfe/hive-wallet/hive"
	"github.com/abcfe/hive-wallet/metrics"
	prt "github.com/abcfe/hive-wallet/protocol"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fakeAccounts struct {
	accounts map[string]*hive.Account
	err      error
	calls    int
}

func (f *fakeAccounts) GetAccount(_ context.Context, username string) (*hive.Account, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	acc, ok := f.accounts[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", hive.ErrAccountNotFound, username)
	}
	return acc, nil
}

func accountWith(name string, keys *KeySet) *hive.Account {
	auth := func(pub string) hive.Authority {
		return hive.Authority{WeightThreshold: 1, KeyAuths: []hive.KeyAuth{{Key: pub, Weight: 1}}}
	}
	return &hive.Account{
		Name:    name,
		Owner:   auth(keys.Owner.Public.String()),
		Active:  auth(keys.Active.Public.String()),
		Posting: auth(keys.Posting.Public.String()),
		MemoKey: keys.Memo.Public.String(),
	}
}

func TestDetectHierarchical(t *testing.T) {
	keys, err := DeriveHierarchical(testMnemonic, 0)
	require.NoError(t, err)
	fetcher := &fakeAccounts{accounts: map[string]*hive.Account{"bob": accountWith("bob", keys)}}

	got, err := NewDetector(fetcher).Detect(context.Background(), "bob", testMnemonic, prt.RoleActive)
	require.NoError(t, err)
	require.Equal(t, DerivationHierarchical, got)
	require.Equal(t, 1, fetcher.calls)
}

func TestDetectHierarchicalWinsOverLegacy(t *testing.T) {
	hd, err := DeriveHierarchical(testMnemonic, 0)
	require.NoError(t, err)
	legacy := DeriveLegacy("bob", testMnemonic, prt.RoleActive)

	acc := accountWith("bob", hd)
	acc.Active.KeyAuths = append(acc.Active.KeyAuths, hive.KeyAuth{Key: legacy.Public.String(), Weight: 1})
	fetcher := &fakeAccounts{accounts: map[string]*hive.Account{"bob": acc}}

	got, err := NewDetector(fetcher).Detect(context.Background(), "bob", testMnemonic, prt.RoleActive)
	require.NoError(t, err)
	require.Equal(t, DerivationHierarchical, got)
}

func TestDetectLegacy(t *testing.T) {
	password := "P5JmasterPasswordForAlice"
	fetcher := &fakeAccounts{accounts: map[string]*hive.Account{
		"alice": accountWith("alice", DeriveLegacyAll("alice", password)),
	}}
	d := NewDetector(fetcher)

	for _, role := range prt.Roles {
		got, err := d.Detect(context.Background(), "alice", password, role)
		require.NoError(t, err)
		require.Equal(t, DerivationLegacy, got, role)
	}
}

func TestDetectDefaultsToActiveRole(t *testing.T) {
	password := "P5Jpw"
	keys := DeriveLegacyAll("alice", password)
	acc := accountWith("alice", keys)
	acc.Posting.KeyAuths = nil
	fetcher := &fakeAccounts{accounts: map[string]*hive.Account{"alice": acc}}

	got, err := NewDetector(fetcher).Detect(context.Background(), "alice", password, "")
	require.NoError(t, err)
	require.Equal(t, DerivationLegacy, got)

	got, err = NewDetector(fetcher).Detect(context.Background(), "alice", password, prt.RolePosting)
	require.NoError(t, err)
	require.Equal(t, DerivationUnknown, got)
}

func TestDetectUnknown(t *testing.T) {
	fetcher := &fakeAccounts{accounts: map[string]*hive.Account{
		"alice": accountWith("alice", DeriveLegacyAll("alice", "right")),
	}}

	got, err := NewDetector(fetcher).Detect(context.Background(), "alice", "wrong", prt.RoleActive)
	require.NoError(t, err)
	require.Equal(t, DerivationUnknown, got)

	got, err = NewDetector(fetcher).Detect(context.Background(), "alice", testMnemonic, prt.RoleActive)
	require.NoError(t, err)
	require.Equal(t, DerivationUnknown, got)
}

func TestDetectAccountNotFound(t *testing.T) {
	fetcher := &fakeAccounts{accounts: map[string]*hive.Account{}}

	_, err := NewDetector(fetcher).Detect(context.Background(), "ghost", "pw", prt.RoleActive)
	require.ErrorIs(t, err, errs.ErrAccountNotFound)
	require.Equal(t, errs.KindAccountNotFound, errs.KindOf(err))
}

func TestDetectFetchErrorPropagates(t *testing.T) {
	boom := errors.New("node down")
	fetcher := &fakeAccounts{err: boom}

	_, err := NewDetector(fetcher).Detect(context.Background(), "alice", "pw", prt.RoleActive)
	require.ErrorIs(t, err, boom)
	require.Equal(t, errs.KindUnknown, errs.KindOf(err))
}

func TestDetectRejectsUnknownRole(t *testing.T) {
	fetcher := &fakeAccounts{}
	_, err := NewDetector(fetcher).Detect(context.Background(), "alice", "pw", prt.Role("admin"))
	require.Error(t, err)
	require.Equal(t, 0, fetcher.calls)
}

func TestDetectWithAccountIndex(t *testing.T) {
	keys, err := DeriveHierarchical(testMnemonic, 3)
	require.NoError(t, err)
	fetcher := &fakeAccounts{accounts: map[string]*hive.Account{"bob": accountWith("bob", keys)}}

	got, err := NewDetector(fetcher).Detect(context.Background(), "bob", testMnemonic, prt.RoleActive)
	require.NoError(t, err)
	require.Equal(t, DerivationUnknown, got)

	got, err = NewDetector(fetcher, WithAccountIndex(3)).Detect(context.Background(), "bob", testMnemonic, prt.RoleActive)
	require.NoError(t, err)
	require.Equal(t, DerivationHierarchical, got)
}

func TestDetectCountsOutcome(t *testing.T) {
	fetcher := &fakeAccounts{accounts: map[string]*hive.Account{"dave": accountWith("dave", DeriveLegacyAll("dave", "other"))}}
	before := testutil.ToFloat64(metrics.DetectCounter(DerivationUnknown.String()))

	got, err := NewDetector(fetcher).Detect(context.Background(), "dave", "wrong password", prt.RoleActive)
	require.NoError(t, err)
	require.Equal(t, DerivationUnknown, got)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.DetectCounter(DerivationUnknown.String())))
}
