package wallet

import (
	"fmt"

	"github.com/abcfe/hive-wallet/common/crypto"
	prt "github.com/abcfe/hive-wallet/protocol"
)

// KeyPair is one role's private/public key.
type KeyPair struct {
	Role    prt.Role
	Private *crypto.PrivateKey
	Public  *crypto.PublicKey
}

func newKeyPair(role prt.Role, priv *crypto.PrivateKey) KeyPair {
	return KeyPair{Role: role, Private: priv, Public: priv.PublicKey()}
}

// KeySet holds the four role keys of an account. It is transient: nothing in
// this package stores it.
type KeySet struct {
	Owner   KeyPair
	Active  KeyPair
	Posting KeyPair
	Memo    KeyPair
}

func (s *KeySet) Get(role prt.Role) (KeyPair, bool) {
	switch role {
	case prt.RoleOwner:
		return s.Owner, true
	case prt.RoleActive:
		return s.Active, true
	case prt.RolePosting:
		return s.Posting, true
	case prt.RoleMemo:
		return s.Memo, true
	}
	return KeyPair{}, false
}

func (s *KeySet) set(kp KeyPair) {
	switch kp.Role {
	case prt.RoleOwner:
		s.Owner = kp
	case prt.RoleActive:
		s.Active = kp
	case prt.RolePosting:
		s.Posting = kp
	case prt.RoleMemo:
		s.Memo = kp
	}
}

// Publics maps each role to its public key string, the shape used when
// creating or updating account authorities.
func (s *KeySet) Publics() map[prt.Role]string {
	out := make(map[prt.Role]string, len(prt.Roles))
	for _, role := range prt.Roles {
		kp, _ := s.Get(role)
		out[role] = kp.Public.String()
	}
	return out
}

// Privates maps each role to its WIF.
func (s *KeySet) Privates() map[prt.Role]string {
	out := make(map[prt.Role]string, len(prt.Roles))
	for _, role := range prt.Roles {
		kp, _ := s.Get(role)
		out[role] = kp.Private.WIF()
	}
	return out
}

// Derivation is the scheme that produced a credential's keys.
type Derivation uint8

const (
	DerivationUnknown Derivation = iota
	DerivationHierarchical
	DerivationLegacy
)

func (d Derivation) String() string {
	switch d {
	case DerivationHierarchical:
		return "hierarchical"
	case DerivationLegacy:
		return "legacy-master-password"
	}
	return "unknown"
}

func (d Derivation) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// HierarchicalPath renders the BIP-44 path used for role at accountIndex.
func HierarchicalPath(accountIndex uint32, role prt.Role) string {
	return fmt.Sprintf("m/%d'/%d'/%d'/%d'/%d'",
		prt.BIP44Purpose, prt.BIP44CoinType, accountIndex, prt.BIP44Change, role.Index())
}
