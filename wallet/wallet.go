package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abcfe/hive-wallet/common/crypto"
	"github.com/abcfe/hive-wallet/common/errs"
	prt "github.com/abcfe/hive-wallet/protocol"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/tyler-smith/go-bip39"
)

var (
	ErrInvalidWordCount = errors.New("invalid word count for mnemonic")
	ErrInvalidMnemonic  = errors.New("invalid mnemonic")
)

// DeriveHierarchical expands mnemonic to a seed and derives the four role
// keys at m/44'/3054'/accountIndex'/0'/roleIndex'. Failures are never
// retried: a bad phrase or an unusable child is a hard DerivationError.
func DeriveHierarchical(mnemonic string, accountIndex uint32) (*KeySet, error) {
	const op = "wallet.DeriveHierarchical"

	seed, err := bip39.NewSeedWithErrorChecking(normalizeMnemonic(mnemonic), "")
	if err != nil {
		return nil, errs.E(errs.KindDerivation, op, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err))
	}

	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, errs.E(errs.KindDerivation, op, fmt.Errorf("master key: %w", err))
	}

	// m/44'/3054'/accountIndex'/0'
	account, err := derivePath(master,
		prt.HardenedOffset+prt.BIP44Purpose,
		prt.HardenedOffset+prt.BIP44CoinType,
		prt.HardenedOffset+accountIndex,
		prt.HardenedOffset+prt.BIP44Change,
	)
	if err != nil {
		return nil, errs.E(errs.KindDerivation, op, err)
	}

	set := new(KeySet)
	for _, role := range prt.Roles {
		child, err := account.Derive(prt.HardenedOffset + uint32(role.Index()))
		if err != nil {
			return nil, errs.E(errs.KindDerivation, op, fmt.Errorf("%s child: %w", role, err))
		}
		ecPriv, err := child.ECPrivKey()
		if err != nil {
			return nil, errs.E(errs.KindDerivation, op, fmt.Errorf("%s private key: %w", role, err))
		}
		priv, err := crypto.NewPrivateKey(ecPriv.Serialize())
		if err != nil {
			return nil, errs.E(errs.KindDerivation, op, fmt.Errorf("%s private key: %w", role, err))
		}
		set.set(newKeyPair(role, priv))
	}
	return set, nil
}

func derivePath(key *hdkeychain.ExtendedKey, path ...uint32) (*hdkeychain.ExtendedKey, error) {
	var err error
	for _, n := range path {
		key, err = key.Derive(n)
		if err != nil {
			return nil, fmt.Errorf("derive %d: %w", n, err)
		}
	}
	return key, nil
}

// DeriveLegacy derives a role key from the account name and master password
// as sha256(username + role + password). It is a pure function of its inputs.
func DeriveLegacy(username, password string, role prt.Role) KeyPair {
	return newKeyPair(role, crypto.PrivateKeyFromSeed(username+string(role)+password))
}

func DeriveLegacyAll(username, password string) *KeySet {
	set := new(KeySet)
	for _, role := range prt.Roles {
		set.set(DeriveLegacy(username, password, role))
	}
	return set
}

// NewMnemonic generates a phrase of 12, 15, 18, 21 or 24 words.
func NewMnemonic(words int) (string, error) {
	var size int
	switch words {
	case 12:
		size = 128
	case 15:
		size = 160
	case 18:
		size = 192
	case 21:
		size = 224
	case 24:
		size = 256
	default:
		return "", ErrInvalidWordCount
	}
	entropy, err := bip39.NewEntropy(size)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// IsMnemonic reports whether s is a checksum-valid phrase.
func IsMnemonic(s string) bool {
	return bip39.IsMnemonicValid(normalizeMnemonic(s))
}

func normalizeMnemonic(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
