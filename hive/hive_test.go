package hive

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abcfe/hive-wallet/common/crypto"
	prt "github.com/abcfe/hive-wallet/protocol"
	"github.com/stretchr/testify/require"
)

func chainID(t *testing.T) []byte {
	id, err := hex.DecodeString(prt.HiveChainID)
	require.NoError(t, err)
	return id
}

func TestEncodeVoteOperation(t *testing.T) {
	var e Encoder
	err := EncodeOperation(&e, &VoteOperation{Voter: "alice", Author: "bob", Permlink: "post", Weight: 10000})
	require.NoError(t, err)
	require.Equal(t, "00"+"05616c696365"+"03626f62"+"04706f7374"+"1027", hex.EncodeToString(e.Bytes()))
}

func TestEncodeCustomJSONOperation(t *testing.T) {
	op, err := NewCustomJSON("alice", "follow", "[]")
	require.NoError(t, err)

	var e Encoder
	require.NoError(t, EncodeOperation(&e, op))
	require.Equal(t, "12"+"00"+"0105616c696365"+"06666f6c6c6f77"+"025b5d", hex.EncodeToString(e.Bytes()))
}

func TestNewCustomJSONRejectsInvalidPayload(t *testing.T) {
	_, err := NewCustomJSON("alice", "follow", "{not json")
	require.Error(t, err)

	op, err := NewCustomJSON("alice", "notify", map[string]interface{}{"date": "2024-01-01"})
	require.NoError(t, err)
	require.Equal(t, `{"date":"2024-01-01"}`, op.JSON)
}

func TestEncodeAssetUsesWireSymbol(t *testing.T) {
	a, err := ParseAsset("1.000 HIVE")
	require.NoError(t, err)

	var e Encoder
	require.NoError(t, e.Asset(a))
	require.Equal(t, "e803000000000000"+"03"+"535445454d0000", hex.EncodeToString(e.Bytes()))
}

func TestAssetFormatting(t *testing.T) {
	a, err := ParseAsset("12.345 HBD")
	require.NoError(t, err)
	require.Equal(t, int64(12345), a.Amount)
	require.Equal(t, "12.345 HBD", a.String())

	v, err := ParseAsset("0.000001 VESTS")
	require.NoError(t, err)
	require.Equal(t, "0.000001 VESTS", v.String())

	_, err = ParseAsset("1.0 HIVE")
	require.Error(t, err)
	_, err = ParseAsset("1.000 DOGE")
	require.Error(t, err)
}

func TestParseAssetRejectsOverflow(t *testing.T) {
	top, err := ParseAsset("9223372036854775.807 HIVE")
	require.NoError(t, err)
	require.Equal(t, int64(math.MaxInt64), top.Amount)

	for _, s := range []string{"9223372036854775.808 HIVE", "18446744073709551.617 HIVE", "-99999999999999999999.000 HBD"} {
		_, err := ParseAsset(s)
		require.Error(t, err, s)
	}

	var op TransferOperation
	err = json.Unmarshal([]byte(`{"from":"alice","to":"bob","amount":"18446744073709551.617 HIVE","memo":""}`), &op)
	require.Error(t, err)

	_, err = ParseAsset("--1.000 HIVE")
	require.Error(t, err)
}

func TestCommentOptionsBeneficiariesSorted(t *testing.T) {
	op := &CommentOptionsOperation{
		Author:               "alice",
		Permlink:             "p",
		MaxAcceptedPayout:    Asset{Amount: 1000000000, Precision: 3, Symbol: "HBD"},
		PercentHBD:           10000,
		AllowVotes:           true,
		AllowCurationRewards: true,
		Beneficiaries:        []Beneficiary{{Account: "zed", Weight: 100}, {Account: "ecency", Weight: 300}},
	}
	var e Encoder
	require.NoError(t, op.Encode(&e))
	tail := hex.EncodeToString(e.Bytes())
	// extensions: 1 entry, tag 0, 2 beneficiaries, "ecency" first
	require.Contains(t, tail, "0101"+"00"+"02"+"066563656e6379"+"2c01"+"037a6564"+"6400")

	raw, err := json.Marshal(Operations{op})
	require.NoError(t, err)
	var back Operations
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Len(t, back, 1)
	got := back[0].(*CommentOptionsOperation)
	require.Len(t, got.Beneficiaries, 2)
	require.Equal(t, "ecency", got.Beneficiaries[0].Account)
}

func TestOperationsJSONWireForm(t *testing.T) {
	ops := Operations{&VoteOperation{Voter: "alice", Author: "bob", Permlink: "post", Weight: 100}}
	raw, err := json.Marshal(ops)
	require.NoError(t, err)
	require.JSONEq(t, `[["vote",{"voter":"alice","author":"bob","permlink":"post","weight":100}]]`, string(raw))

	var back Operations
	require.NoError(t, json.Unmarshal([]byte(`[["transfer",{"from":"a","to":"b","amount":"0.001 HIVE","memo":""}]]`), &back))
	tr := back[0].(*TransferOperation)
	require.Equal(t, int64(1), tr.Amount.Amount)

	err = json.Unmarshal([]byte(`[["account_update",{}]]`), &back)
	require.Error(t, err)
}

func TestAffectedAccounts(t *testing.T) {
	custom, err := NewCustomJSON("carol", "follow", "[]")
	require.NoError(t, err)
	ops := Operations{
		&VoteOperation{Voter: "alice", Author: "bob"},
		&TransferOperation{From: "alice", To: "carol"},
		custom,
	}
	require.Equal(t, []string{"alice", "bob", "carol"}, AffectedAccounts(ops))
}

func TestTransactionSerialize(t *testing.T) {
	tx := &Transaction{
		RefBlockNum:    1,
		RefBlockPrefix: 2,
		Expiration:     Time{time.Unix(10, 0).UTC()},
		Operations:     Operations{&VoteOperation{Voter: "alice", Author: "bob", Permlink: "post", Weight: 10000}},
	}
	body, err := tx.Serialize()
	require.NoError(t, err)
	want := "0100" + "02000000" + "0a000000" + "01" +
		"00" + "05616c696365" + "03626f62" + "04706f7374" + "1027" + "00"
	require.Equal(t, want, hex.EncodeToString(body))

	id, err := tx.ID()
	require.NoError(t, err)
	require.Len(t, id, 40)
}

func TestSetReferenceBlock(t *testing.T) {
	tx := &Transaction{}
	require.NoError(t, tx.SetReferenceBlock(0x0001000a, "0001000a11223344aabbccdd"))
	require.Equal(t, uint16(0x000a), tx.RefBlockNum)
	require.Equal(t, uint32(0x44332211), tx.RefBlockPrefix)

	require.Error(t, tx.SetReferenceBlock(1, "zz"))
}

func TestTransactionSignIsCanonicalAndRecoverable(t *testing.T) {
	key := crypto.PrivateKeyFromSeed("alicepostingpassword")
	props := &DynamicGlobalProperties{
		HeadBlockNumber: 1000,
		HeadBlockID:     "000003e8b2b4dd1c3f0e8a5a5d1c0f8f3a6c7f00",
		Time:            Time{time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	}
	op, err := NewCustomJSON("alice", "follow", `["follow",{"follower":"alice","following":"bob","what":["blog"]}]`)
	require.NoError(t, err)
	tx, err := NewTransaction(props, Operations{op}, time.Minute)
	require.NoError(t, err)

	require.NoError(t, tx.Sign(key, chainID(t)))
	require.Len(t, tx.Signatures, 1)

	sig, err := hex.DecodeString(tx.Signatures[0])
	require.NoError(t, err)
	require.True(t, crypto.IsCanonical(sig))

	digest, err := tx.Digest(chainID(t))
	require.NoError(t, err)
	require.True(t, crypto.VerifyCompact(key.PublicKey(), digest, sig))
	require.False(t, tx.Expiration.Before(props.Time.Add(time.Minute)))
}

type rpcHandler func(method string, params json.RawMessage) (interface{}, *RPCError)

func newRPCServer(t *testing.T, h rpcHandler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
			ID     uint64          `json:"id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result, rpcErr := h(req.Method, req.Params)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetAccount(t *testing.T) {
	srv := newRPCServer(t, func(method string, params json.RawMessage) (interface{}, *RPCError) {
		require.Equal(t, "condenser_api.get_accounts", method)
		var p [][]string
		require.NoError(t, json.Unmarshal(params, &p))
		if p[0][0] != "bob" {
			return []interface{}{}, nil
		}
		return []interface{}{map[string]interface{}{
			"name":     "bob",
			"owner":    map[string]interface{}{"weight_threshold": 1, "account_auths": []interface{}{}, "key_auths": [][]interface{}{{"STM6owner", 1}}},
			"active":   map[string]interface{}{"weight_threshold": 1, "account_auths": []interface{}{}, "key_auths": [][]interface{}{{"STM6abc", 1}}},
			"posting":  map[string]interface{}{"weight_threshold": 1, "account_auths": [][]interface{}{{"ecency.app", 1}}, "key_auths": [][]interface{}{{"STM6post", 1}}},
			"memo_key": "STM6memo",
		}}, nil
	})

	c, err := NewClient([]string{srv.URL}, prt.HiveChainID)
	require.NoError(t, err)

	acc, err := c.GetAccount(context.Background(), "bob")
	require.NoError(t, err)
	require.True(t, acc.HasKey(prt.RoleActive, "STM6abc"))
	require.True(t, acc.HasKey(prt.RoleMemo, "STM6memo"))
	require.False(t, acc.HasKey(prt.RolePosting, "STM6abc"))
	require.Equal(t, "ecency.app", acc.Posting.AccountAuths[0].Account)

	_, err = c.GetAccount(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestReadFailsOverOnTransportError(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	calls := 0
	live := newRPCServer(t, func(method string, params json.RawMessage) (interface{}, *RPCError) {
		calls++
		return map[string]interface{}{"head_block_number": 5, "head_block_id": "00000005aabbccdd", "time": "2024-01-01T00:00:00"}, nil
	})

	c, err := NewClient([]string{deadURL, live.URL}, prt.HiveChainID)
	require.NoError(t, err)

	props, err := c.GetDynamicGlobalProperties(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint32(5), props.HeadBlockNumber)
	require.Equal(t, 1, calls)
}

func TestSendOperationsSurfacesRPCError(t *testing.T) {
	var broadcasted bool
	srv := newRPCServer(t, func(method string, params json.RawMessage) (interface{}, *RPCError) {
		switch method {
		case "condenser_api.get_dynamic_global_properties":
			return map[string]interface{}{"head_block_number": 5, "head_block_id": "00000005aabbccdd", "time": "2024-01-01T00:00:00"}, nil
		case "condenser_api.broadcast_transaction_synchronous":
			broadcasted = true
			var p []Transaction
			require.NoError(t, json.Unmarshal(params, &p))
			require.Len(t, p[0].Signatures, 1)
			return nil, &RPCError{Code: -32000, Message: "Duplicate transaction check failed"}
		}
		return nil, &RPCError{Code: -32601, Message: "method not found"}
	})

	c, err := NewClient([]string{srv.URL}, prt.HiveChainID)
	require.NoError(t, err)

	op, err := NewCustomJSON("alice", "follow", "[]")
	require.NoError(t, err)
	_, err = c.SendOperations(context.Background(), Operations{op}, crypto.PrivateKeyFromSeed("k"))
	require.True(t, broadcasted)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	require.Contains(t, rpcErr.Message, "Duplicate")
}
