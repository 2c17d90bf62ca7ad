package hive

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/abcfe/hive-wallet/common/crypto"
)

// maxCanonicalAttempts bounds the expiration bumps made while searching for
// a canonical signature. Each attempt succeeds with probability ~1/4.
const maxCanonicalAttempts = 64

var ErrNoCanonicalSignature = errors.New("no canonical signature found")

type Transaction struct {
	RefBlockNum    uint16        `json:"ref_block_num"`
	RefBlockPrefix uint32        `json:"ref_block_prefix"`
	Expiration     Time          `json:"expiration"`
	Operations     Operations    `json:"operations"`
	Extensions     []interface{} `json:"extensions"`
	Signatures     []string      `json:"signatures"`
}

// NewTransaction references the head block and expires ttl after its time.
func NewTransaction(props *DynamicGlobalProperties, ops Operations, ttl time.Duration) (*Transaction, error) {
	tx := &Transaction{
		Operations: ops,
		Extensions: []interface{}{},
		Signatures: []string{},
		Expiration: Time{props.Time.Add(ttl).UTC().Truncate(time.Second)},
	}
	if err := tx.SetReferenceBlock(props.HeadBlockNumber, props.HeadBlockID); err != nil {
		return nil, err
	}
	return tx, nil
}

// SetReferenceBlock fills the TaPoS fields from a block number and id.
func (tx *Transaction) SetReferenceBlock(num uint32, blockID string) error {
	id, err := hex.DecodeString(blockID)
	if err != nil {
		return fmt.Errorf("invalid block id %q: %w", blockID, err)
	}
	if len(id) < 8 {
		return fmt.Errorf("block id %q too short", blockID)
	}
	tx.RefBlockNum = uint16(num & 0xffff)
	tx.RefBlockPrefix = binary.LittleEndian.Uint32(id[4:8])
	return nil
}

// Serialize encodes the transaction without signatures.
func (tx *Transaction) Serialize() ([]byte, error) {
	var e Encoder
	e.Uint16(tx.RefBlockNum)
	e.Uint32(tx.RefBlockPrefix)
	e.Uint32(uint32(tx.Expiration.Unix()))
	e.Uvarint(uint64(len(tx.Operations)))
	for i, op := range tx.Operations {
		if err := EncodeOperation(&e, op); err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
	}
	e.Uvarint(0) // extensions
	return e.Bytes(), nil
}

// Digest is sha256(chainID || serialized transaction).
func (tx *Transaction) Digest(chainID []byte) ([]byte, error) {
	body, err := tx.Serialize()
	if err != nil {
		return nil, err
	}
	h := sha256.New()
	h.Write(chainID)
	h.Write(body)
	return h.Sum(nil), nil
}

// ID is the hex of the first 20 bytes of sha256(serialized transaction).
func (tx *Transaction) ID() (string, error) {
	body, err := tx.Serialize()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:20]), nil
}

// Sign appends a canonical signature. An unsigned transaction has its
// expiration bumped a second at a time until the deterministic signature is
// canonical; a partially signed one cannot be changed and fails instead.
func (tx *Transaction) Sign(key *crypto.PrivateKey, chainID []byte) error {
	for attempt := 0; attempt < maxCanonicalAttempts; attempt++ {
		digest, err := tx.Digest(chainID)
		if err != nil {
			return err
		}
		sig, err := crypto.SignCompact(key, digest)
		if err != nil {
			return err
		}
		if crypto.IsCanonical(sig) {
			tx.Signatures = append(tx.Signatures, hex.EncodeToString(sig))
			return nil
		}
		if len(tx.Signatures) > 0 {
			return crypto.ErrNonCanonical
		}
		tx.Expiration = Time{tx.Expiration.Add(time.Second)}
	}
	return ErrNoCanonicalSignature
}
