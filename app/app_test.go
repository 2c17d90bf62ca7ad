package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/abcfe/hive-wallet/cache"
	"github.com/abcfe/hive-wallet/common/errs"
	conf "github.com/abcfe/hive-wallet/config"
	"github.com/abcfe/hive-wallet/credential"
	"github.com/abcfe/hive-wallet/hive"
	"github.com/abcfe/hive-wallet/storage"
	"github.com/abcfe/hive-wallet/wallet"
	"github.com/stretchr/testify/require"
)

type fakeNode struct {
	accounts   map[string]*hive.Account
	reads      atomic.Int32
	broadcasts atomic.Int32
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
		ID     uint64          `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var result interface{}
	switch req.Method {
	case "condenser_api.get_accounts":
		n.reads.Add(1)
		var p [][]string
		_ = json.Unmarshal(req.Params, &p)
		out := []*hive.Account{}
		if acc, ok := n.accounts[p[0][0]]; ok {
			out = append(out, acc)
		}
		result = out
	case "condenser_api.get_dynamic_global_properties":
		result = map[string]interface{}{
			"head_block_number": 1000,
			"head_block_id":     "000003e8b1c2d3e40000000000000000000000ff",
			"time":              "2024-01-02T03:04:05",
		}
	case "condenser_api.broadcast_transaction_synchronous":
		n.broadcasts.Add(1)
		result = map[string]interface{}{"id": "cafebabe", "block_num": 1001, "trx_num": 0, "expired": false}
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result})
}

func newTestApp(t *testing.T, node *fakeNode, opts ...func(*conf.Config)) *App {
	t.Helper()
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	cfg := conf.Default()
	cfg.Chain.Nodes = []string{srv.URL}
	cfg.Keychain.BridgeURL = ""
	for _, opt := range opts {
		opt(cfg)
	}

	db, err := storage.NewMemory(cfg.Storage.Prefix)
	require.NoError(t, err)

	a, err := NewWithDB(cfg, db)
	require.NoError(t, err)
	t.Cleanup(a.Cleanup)
	return a
}

func accountFor(name string, keys *wallet.KeySet) *hive.Account {
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

func TestDetectUsesCachedAccount(t *testing.T) {
	keys := wallet.DeriveLegacyAll("alice", "P5Jpass")
	node := &fakeNode{accounts: map[string]*hive.Account{"alice": accountFor("alice", keys)}}
	a := newTestApp(t, node)

	for i := 0; i < 3; i++ {
		d, err := a.Detector.Detect(context.Background(), "alice", "P5Jpass", "")
		require.NoError(t, err)
		require.Equal(t, wallet.DerivationLegacy, d)
	}
	require.Equal(t, int32(1), node.reads.Load())
}

func TestLocalBroadcastInvalidatesAccount(t *testing.T) {
	keys := wallet.DeriveLegacyAll("alice", "P5Jpass")
	node := &fakeNode{accounts: map[string]*hive.Account{"alice": accountFor("alice", keys)}}
	a := newTestApp(t, node)

	_, err := a.Accounts.GetAccount(context.Background(), "alice")
	require.NoError(t, err)
	_, cached := a.Cache.Get(cache.AccountKey("alice"))
	require.True(t, cached)

	require.NoError(t, a.Credentials.Save(credential.Record{Username: "alice", PostingKey: keys.Posting.Private.WIF()}))

	res, err := a.Mutation.DispatchJSON(context.Background(), "alice", "follow", `["follow",{"follower":"alice","following":"bob","what":["blog"]}]`)
	require.NoError(t, err)
	require.Equal(t, "cafebabe", res.TxID)
	require.Equal(t, uint32(1001), res.BlockNum)
	require.Equal(t, int32(1), node.broadcasts.Load())

	_, cached = a.Cache.Get(cache.AccountKey("alice"))
	require.False(t, cached)
}

func TestNoCredentialOverREST(t *testing.T) {
	node := &fakeNode{}
	a := newTestApp(t, node)

	body, _ := json.Marshal(map[string]interface{}{"username": "bob", "id": "follow", "json": json.RawMessage(`[]`)})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/broadcast/custom-json", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp struct {
		Kind string `json:"kind"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, errs.KindNoCredential.String(), resp.Kind)
	require.Equal(t, int32(0), node.broadcasts.Load())
}

func TestKeychainLoginWithoutBridgeIsNoCredential(t *testing.T) {
	a := newTestApp(t, &fakeNode{})
	require.NoError(t, a.Credentials.Save(credential.Record{Username: "bob", LoginType: "keychain"}))

	_, err := a.Dispatcher.DispatchJSON(context.Background(), "bob", "follow", "[]")
	require.ErrorIs(t, err, errs.ErrNoCredential)
}

func TestHostedSignerFactoryUsesConfig(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"result":{"id":"h1"}}`))
	}))
	defer srv.Close()

	cfg := conf.Default()
	cfg.HostedSigner.URL = srv.URL
	op, err := hive.NewCustomJSON("carol", "follow", "[]")
	require.NoError(t, err)

	res, err := hostedSignerFactory(cfg)("tok-1").Broadcast(context.Background(), hive.Operations{op})
	require.NoError(t, err)
	require.Equal(t, "h1", res.ID)
	require.Equal(t, "tok-1", gotAuth)
}

func TestRESTSigningIsGuarded(t *testing.T) {
	keys := wallet.DeriveLegacyAll("alice", "P5Jpass")
	node := &fakeNode{accounts: map[string]*hive.Account{"alice": accountFor("alice", keys)}}
	a := newTestApp(t, node, func(c *conf.Config) {
		c.Server.APIToken = "local-token"
	})
	require.NoError(t, a.Credentials.Save(credential.Record{Username: "alice", PostingKey: keys.Posting.Private.WIF()}))

	body, _ := json.Marshal(map[string]interface{}{"username": "alice", "id": "follow", "json": json.RawMessage(`["follow",{}]`)})
	send := func(contentType, origin, auth string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/broadcast/custom-json", bytes.NewReader(body))
		req.Header.Set("Content-Type", contentType)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusForbidden, send("text/plain", "https://evil.example", "Bearer local-token"))
	require.Equal(t, http.StatusUnsupportedMediaType, send("text/plain", "", "Bearer local-token"))
	require.Equal(t, http.StatusUnauthorized, send("application/json", "", ""))
	require.Equal(t, int32(0), node.broadcasts.Load())

	require.Equal(t, http.StatusOK, send("application/json", "", "Bearer local-token"))
	require.Equal(t, int32(1), node.broadcasts.Load())
}
