package crypto

import (
	"errors"
	"fmt"

	prt "github.com/abcfe/hive-wallet/protocol"
	"github.com/btcsuite/btcd/btcec"
)

const CompactSignatureLength = 65

var ErrNonCanonical = errors.New("non-canonical signature")

// SignCompact produces a 65-byte recoverable signature over a 32-byte digest.
// The result is not guaranteed canonical; see IsCanonical.
func SignCompact(key *PrivateKey, digest []byte) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("private key is nil")
	}
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}
	sig, err := btcec.SignCompact(btcec.S256(), key.key, digest, true)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	return sig, nil
}

// IsCanonical reports whether r and s are both encoded without a leading
// sign bit or redundant zero byte, which nodes require.
func IsCanonical(sig []byte) bool {
	if len(sig) != CompactSignatureLength {
		return false
	}
	return sig[1]&0x80 == 0 &&
		!(sig[1] == 0 && sig[2]&0x80 == 0) &&
		sig[33]&0x80 == 0 &&
		!(sig[33] == 0 && sig[34]&0x80 == 0)
}

// RecoverCompact returns the public key that produced sig over digest.
func RecoverCompact(sig, digest []byte) (*PublicKey, error) {
	if len(sig) != CompactSignatureLength {
		return nil, fmt.Errorf("signature must be %d bytes, got %d", CompactSignatureLength, len(sig))
	}
	key, _, err := btcec.RecoverCompact(btcec.S256(), sig, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to recover public key: %w", err)
	}
	return &PublicKey{key: key, prefix: prt.KeyPrefix}, nil
}

// VerifyCompact checks that sig over digest was made by pub.
func VerifyCompact(pub *PublicKey, digest, sig []byte) bool {
	if pub == nil {
		return false
	}
	recovered, err := RecoverCompact(sig, digest)
	if err != nil {
		return false
	}
	return recovered.Equal(pub)
}
