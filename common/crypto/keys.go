package crypto

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	prt "github.com/abcfe/hive-wallet/protocol"
	"github.com/btcsuite/btcd/btcec"
	"github.com/mr-tron/base58"
)

const PrivateKeyLength = 32

var (
	ErrInvalidKeyLength = errors.New("invalid private key length")
	ErrKeyOutOfRange    = errors.New("private key out of curve range")
	ErrInvalidWIF       = errors.New("invalid wif")
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// PrivateKey is a secp256k1 private key.
type PrivateKey struct {
	key *btcec.PrivateKey
}

func GenerateKey() (*PrivateKey, error) {
	k, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &PrivateKey{key: k}, nil
}

// NewPrivateKey wraps a raw 32-byte scalar. Zero and values >= N are rejected.
func NewPrivateKey(raw []byte) (*PrivateKey, error) {
	if len(raw) != PrivateKeyLength {
		return nil, ErrInvalidKeyLength
	}
	d := new(big.Int).SetBytes(raw)
	if d.Sign() == 0 || d.Cmp(btcec.S256().N) >= 0 {
		return nil, ErrKeyOutOfRange
	}
	k, _ := btcec.PrivKeyFromBytes(btcec.S256(), raw)
	return &PrivateKey{key: k}, nil
}

// PrivateKeyFromSeed hashes an arbitrary string into a key, the way login
// keys are produced from account name, role and password.
func PrivateKeyFromSeed(seed string) *PrivateKey {
	h := sha256.Sum256([]byte(seed))
	k, _ := btcec.PrivKeyFromBytes(btcec.S256(), h[:])
	return &PrivateKey{key: k}
}

// ParseWIF decodes a base58check wallet import format string.
func ParseWIF(wif string) (*PrivateKey, error) {
	raw, err := base58.Decode(wif)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWIF, err)
	}
	if len(raw) != 1+PrivateKeyLength+4 {
		return nil, ErrInvalidWIF
	}
	if raw[0] != prt.WIFVersion {
		return nil, fmt.Errorf("%w: version byte %#x", ErrInvalidWIF, raw[0])
	}
	payload, sum := raw[:1+PrivateKeyLength], raw[1+PrivateKeyLength:]
	if !bytes.Equal(doubleSha256(payload)[:4], sum) {
		return nil, ErrChecksumMismatch
	}
	return NewPrivateKey(payload[1:])
}

func (p *PrivateKey) WIF() string {
	payload := make([]byte, 0, 1+PrivateKeyLength+4)
	payload = append(payload, prt.WIFVersion)
	payload = append(payload, p.Bytes()...)
	payload = append(payload, doubleSha256(payload)[:4]...)
	return base58.Encode(payload)
}

// Bytes returns the 32-byte big-endian scalar.
func (p *PrivateKey) Bytes() []byte {
	return p.key.Serialize()
}

func (p *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{key: p.key.PubKey(), prefix: prt.KeyPrefix}
}

func (p *PrivateKey) String() string {
	return p.WIF()
}

func doubleSha256(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}
