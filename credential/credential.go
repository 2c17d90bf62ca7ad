// Package credential holds the per-user credentials a broadcast can be
// signed with. Authentication flows write records; the dispatcher only
// reads them.
package credential

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/abcfe/hive-wallet/common/logger"
	prt "github.com/abcfe/hive-wallet/protocol"
	"github.com/abcfe/hive-wallet/storage"
)

// Record is what is kept for one username. Any field may be empty.
type Record struct {
	Username     string `json:"username"`
	PostingKey   string `json:"postingKey,omitempty"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	LoginType    string `json:"loginType,omitempty"`
}

// Reader never fails for a missing or unreadable entry; it returns the
// zero value instead.
type Reader interface {
	Get(username string) (Record, bool)
	GetPostingKey(username string) string
	GetAccessToken(username string) string
	GetRefreshToken(username string) string
	GetLoginType(username string) string
}

// Store is the write side used by authentication flows.
type Store interface {
	Reader
	Save(rec Record) error
	Remove(username string) error
}

type kvStore struct {
	kv storage.KV
}

// NewStore keeps records in kv as base64-encoded JSON.
func NewStore(kv storage.KV) Store {
	return &kvStore{kv: kv}
}

func userKey(username string) string {
	return prt.PrefixUser + username
}

// Get treats an entry that fails to decode as absent and logs it.
func (s *kvStore) Get(username string) (Record, bool) {
	raw, ok, err := s.kv.Get(userKey(username))
	if err != nil {
		logger.Error("credential read failed for ", username, ": ", err)
		return Record{}, false
	}
	if !ok {
		return Record{}, false
	}
	rec, err := decode(raw)
	if err != nil {
		logger.Warn("malformed credential record for ", username, ": ", err)
		return Record{}, false
	}
	rec.Username = username
	return rec, true
}

func (s *kvStore) GetPostingKey(username string) string {
	rec, _ := s.Get(username)
	return rec.PostingKey
}

func (s *kvStore) GetAccessToken(username string) string {
	rec, _ := s.Get(username)
	return rec.AccessToken
}

func (s *kvStore) GetRefreshToken(username string) string {
	rec, _ := s.Get(username)
	return rec.RefreshToken
}

func (s *kvStore) GetLoginType(username string) string {
	rec, _ := s.Get(username)
	return rec.LoginType
}

func (s *kvStore) Save(rec Record) error {
	if rec.Username == "" {
		return fmt.Errorf("credential record has no username")
	}
	raw, err := encode(rec)
	if err != nil {
		return err
	}
	return s.kv.Set(userKey(rec.Username), raw)
}

func (s *kvStore) Remove(username string) error {
	return s.kv.Remove(userKey(username))
}

func encode(rec Record) (string, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode credential: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func decode(raw string) (Record, error) {
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return Record{}, fmt.Errorf("base64: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, fmt.Errorf("json: %w", err)
	}
	return rec, nil
}
