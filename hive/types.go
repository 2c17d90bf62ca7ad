package hive

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	prt "github.com/abcfe/hive-wallet/protocol"
)

const TimeFormat = "2006-01-02T15:04:05"

// Time is a UTC timestamp in the node's second-precision format.
type Time struct {
	time.Time
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(TimeFormat))
}

func (t *Time) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseInLocation(TimeFormat, s, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid time %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// KeyAuth is a [public-key, weight] pair.
type KeyAuth struct {
	Key    string
	Weight uint16
}

func (k KeyAuth) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{k.Key, k.Weight})
}

func (k *KeyAuth) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("key auth: expected pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &k.Key); err != nil {
		return fmt.Errorf("key auth key: %w", err)
	}
	if err := json.Unmarshal(pair[1], &k.Weight); err != nil {
		return fmt.Errorf("key auth weight: %w", err)
	}
	return nil
}

// AccountAuth is an [account, weight] pair.
type AccountAuth struct {
	Account string
	Weight  uint16
}

func (a AccountAuth) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{a.Account, a.Weight})
}

func (a *AccountAuth) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("account auth: expected pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &a.Account); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &a.Weight)
}

type Authority struct {
	WeightThreshold uint32        `json:"weight_threshold"`
	AccountAuths    []AccountAuth `json:"account_auths"`
	KeyAuths        []KeyAuth     `json:"key_auths"`
}

func (a *Authority) HasKey(pub string) bool {
	for _, ka := range a.KeyAuths {
		if ka.Key == pub {
			return true
		}
	}
	return false
}

// Account is the subset of the on-chain account record needed to check
// credentials. It is never mutated locally.
type Account struct {
	Name                string    `json:"name"`
	Owner               Authority `json:"owner"`
	Active              Authority `json:"active"`
	Posting             Authority `json:"posting"`
	MemoKey             string    `json:"memo_key"`
	JSONMetadata        string    `json:"json_metadata"`
	PostingJSONMetadata string    `json:"posting_json_metadata"`
}

// Authority returns the role's authority; nil for memo, which is a single key.
func (a *Account) Authority(role prt.Role) *Authority {
	switch role {
	case prt.RoleOwner:
		return &a.Owner
	case prt.RoleActive:
		return &a.Active
	case prt.RolePosting:
		return &a.Posting
	}
	return nil
}

// HasKey reports whether pub is registered for role.
func (a *Account) HasKey(role prt.Role, pub string) bool {
	if role == prt.RoleMemo {
		return a.MemoKey == pub
	}
	auth := a.Authority(role)
	return auth != nil && auth.HasKey(pub)
}

type DynamicGlobalProperties struct {
	HeadBlockNumber uint32 `json:"head_block_number"`
	HeadBlockID     string `json:"head_block_id"`
	Time            Time   `json:"time"`
}

type BroadcastResult struct {
	ID       string `json:"id"`
	BlockNum uint32 `json:"block_num"`
	TrxNum   uint32 `json:"trx_num"`
	Expired  bool   `json:"expired"`
}

// Asset is a fixed-point amount such as "1.000 HIVE".
type Asset struct {
	Amount    int64
	Precision uint8
	Symbol    string
}

var assetPrecision = map[string]uint8{
	"HIVE":  3,
	"HBD":   3,
	"VESTS": 6,
	"STEEM": 3,
	"SBD":   3,
	"TESTS": 3,
	"TBD":   3,
}

func ParseAsset(s string) (Asset, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return Asset{}, fmt.Errorf("invalid asset %q", s)
	}
	symbol := parts[1]
	precision, ok := assetPrecision[symbol]
	if !ok {
		return Asset{}, fmt.Errorf("unknown asset symbol %q", symbol)
	}

	whole, frac, _ := strings.Cut(parts[0], ".")
	if len(frac) != int(precision) {
		return Asset{}, fmt.Errorf("asset %q: expected %d decimals", s, precision)
	}
	neg := strings.HasPrefix(whole, "-")
	digits := strings.TrimPrefix(whole, "-") + frac
	if digits == "" || strings.Trim(digits, "0123456789") != "" {
		return Asset{}, fmt.Errorf("invalid asset amount %q", parts[0])
	}
	amount, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Asset{}, fmt.Errorf("asset amount %q out of range: %w", parts[0], err)
	}
	if neg {
		amount = -amount
	}
	return Asset{Amount: amount, Precision: precision, Symbol: symbol}, nil
}

func (a Asset) String() string {
	amount := a.Amount
	sign := ""
	if amount < 0 {
		sign, amount = "-", -amount
	}
	if a.Precision == 0 {
		return fmt.Sprintf("%s%d %s", sign, amount, a.Symbol)
	}
	div := int64(1)
	for i := uint8(0); i < a.Precision; i++ {
		div *= 10
	}
	return fmt.Sprintf("%s%d.%0*d %s", sign, amount/div, int(a.Precision), amount%div, a.Symbol)
}

func (a Asset) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Asset) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseAsset(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// wireSymbol is the symbol as serialized on chain, which still carries the
// pre-fork names.
func (a Asset) wireSymbol() string {
	switch a.Symbol {
	case "HIVE":
		return "STEEM"
	case "HBD":
		return "SBD"
	}
	return a.Symbol
}
