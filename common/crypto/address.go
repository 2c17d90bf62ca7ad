package crypto

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	prt "github.com/abcfe/hive-wallet/protocol"
	"github.com/btcsuite/btcd/btcec"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"
)

var ErrInvalidPublicKey = errors.New("invalid public key")

// PublicKey is a compressed secp256k1 point rendered with a chain prefix.
type PublicKey struct {
	key    *btcec.PublicKey
	prefix string
}

// ParsePublicKey decodes "STM" + base58(compressed || ripemd160[:4]).
func ParsePublicKey(s string) (*PublicKey, error) {
	return ParsePublicKeyWithPrefix(s, prt.KeyPrefix)
}

func ParsePublicKeyWithPrefix(s, prefix string) (*PublicKey, error) {
	if !strings.HasPrefix(s, prefix) {
		return nil, fmt.Errorf("%w: expected prefix %s", ErrInvalidPublicKey, prefix)
	}
	raw, err := base58.Decode(s[len(prefix):])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(raw) != btcec.PubKeyBytesLenCompressed+4 {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidPublicKey, len(raw))
	}
	point, sum := raw[:btcec.PubKeyBytesLenCompressed], raw[btcec.PubKeyBytesLenCompressed:]
	if !bytes.Equal(ripemd(point)[:4], sum) {
		return nil, ErrChecksumMismatch
	}
	key, err := btcec.ParsePubKey(point, btcec.S256())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return &PublicKey{key: key, prefix: prefix}, nil
}

// Bytes returns the 33-byte compressed point.
func (k *PublicKey) Bytes() []byte {
	return k.key.SerializeCompressed()
}

func (k *PublicKey) String() string {
	point := k.Bytes()
	payload := append(point, ripemd(point)[:4]...)
	return k.prefix + base58.Encode(payload)
}

// WithPrefix returns the same point rendered for another network.
func (k *PublicKey) WithPrefix(prefix string) *PublicKey {
	return &PublicKey{key: k.key, prefix: prefix}
}

func (k *PublicKey) Equal(o *PublicKey) bool {
	if k == nil || o == nil {
		return false
	}
	return bytes.Equal(k.Bytes(), o.Bytes())
}

func ripemd(b []byte) []byte {
	h := ripemd160.New()
	h.Write(b)
	return h.Sum(nil)
}
