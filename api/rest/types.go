package rest

import (
	"encoding/json"

	"github.com/abcfe/hive-wallet/hive"
	prt "github.com/abcfe/hive-wallet/protocol"
)

// General response structure
type RestResp struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"` // error kind, see common/errs
}

// Key derivation request. Either Mnemonic, or Username with Password.
type DeriveKeysReq struct {
	Mnemonic       string  `json:"mnemonic"`
	AccountIndex   *uint32 `json:"accountIndex"` // hierarchical only, defaults to config
	Username       string  `json:"username"`
	Password       string  `json:"password"`
	IncludePrivate bool    `json:"includePrivate"`
}

type DeriveKeysResp struct {
	Derivation string              `json:"derivation"`
	Paths      map[prt.Role]string `json:"paths,omitempty"`
	Public     map[prt.Role]string `json:"public"`
	Private    map[prt.Role]string `json:"private,omitempty"`
}

type DetectReq struct {
	Username   string `json:"username"`
	Credential string `json:"credential"`
	Role       string `json:"role"` // empty means active
}

type DetectResp struct {
	Username   string `json:"username"`
	Role       string `json:"role"`
	Derivation string `json:"derivation"`
}

// Account authority response
type AccountResp struct {
	Name    string         `json:"name"`
	Owner   hive.Authority `json:"owner"`
	Active  hive.Authority `json:"active"`
	Posting hive.Authority `json:"posting"`
	MemoKey string         `json:"memoKey"`
}

type BroadcastReq struct {
	Username   string          `json:"username"`
	Operations hive.Operations `json:"operations"`
}

type CustomJSONReq struct {
	Username string          `json:"username"`
	ID       string          `json:"id"`
	JSON     json.RawMessage `json:"json"`
}
