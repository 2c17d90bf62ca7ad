package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/abcfe/hive-wallet/api"
	"github.com/abcfe/hive-wallet/broadcast"
	"github.com/abcfe/hive-wallet/common/errs"
	"github.com/abcfe/hive-wallet/hive"
	prt "github.com/abcfe/hive-wallet/protocol"
	"github.com/abcfe/hive-wallet/wallet"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

// AccountGetter reads on-chain account records
type AccountGetter interface {
	GetAccount(ctx context.Context, username string) (*hive.Account, error)
}

// Broadcaster submits operations for a user
type Broadcaster interface {
	Dispatch(ctx context.Context, username string, ops hive.Operations) (*broadcast.Result, error)
	DispatchJSON(ctx context.Context, username, id string, payload interface{}) (*broadcast.Result, error)
}

// get home response
func HomeHandler(w http.ResponseWriter, r *http.Request) {
	info := map[string]string{
		"name":    "Hive Wallet API",
		"version": "1.0.0",
	}
	sendResp(w, http.StatusOK, info, nil)
}

// DeriveKeys derives the four role keys from a mnemonic or a master password
func DeriveKeys(defaultIndex uint32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DeriveKeysReq
		if err := decodeBody(r, &req); err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}

		var (
			keys *wallet.KeySet
			resp DeriveKeysResp
		)
		switch {
		case req.Mnemonic != "":
			index := defaultIndex
			if req.AccountIndex != nil {
				index = *req.AccountIndex
			}
			var err error
			keys, err = wallet.DeriveHierarchical(req.Mnemonic, index)
			if err != nil {
				sendErr(w, err)
				return
			}
			resp.Derivation = wallet.DerivationHierarchical.String()
			resp.Paths = make(map[prt.Role]string, len(prt.Roles))
			for _, role := range prt.Roles {
				resp.Paths[role] = wallet.HierarchicalPath(index, role)
			}
		case req.Username != "" && req.Password != "":
			keys = wallet.DeriveLegacyAll(req.Username, req.Password)
			resp.Derivation = wallet.DerivationLegacy.String()
		default:
			sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("mnemonic or username and password required"))
			return
		}

		resp.Public = keys.Publics()
		if req.IncludePrivate {
			resp.Private = keys.Privates()
		}
		sendResp(w, http.StatusOK, resp, nil)
	}
}

// DetectDerivation reports how a credential relates to an on-chain account
func DetectDerivation(det *wallet.Detector, hub *api.WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DetectReq
		if err := decodeBody(r, &req); err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}
		if req.Username == "" || req.Credential == "" {
			sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("username and credential required"))
			return
		}
		role, ok := prt.ParseRole(req.Role)
		if !ok {
			sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("unknown role %q", req.Role))
			return
		}

		d, err := det.Detect(r.Context(), req.Username, req.Credential, role)
		if err != nil {
			sendErr(w, err)
			return
		}

		resp := DetectResp{Username: req.Username, Role: role.String(), Derivation: d.String()}
		if hub != nil {
			hub.Publish(api.EventDetected, resp)
		}
		sendResp(w, http.StatusOK, resp, nil)
	}
}

// GetAccount returns the authority record of an account
func GetAccount(accounts AccountGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := strings.ToLower(mux.Vars(r)["username"])

		acc, err := accounts.GetAccount(r.Context(), username)
		if err != nil {
			sendErr(w, err)
			return
		}

		sendResp(w, http.StatusOK, AccountResp{
			Name:    acc.Name,
			Owner:   acc.Owner,
			Active:  acc.Active,
			Posting: acc.Posting,
			MemoKey: acc.MemoKey,
		}, nil)
	}
}

// PostBroadcast signs and submits an operation set for a user
func PostBroadcast(b Broadcaster, hub *api.WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BroadcastReq
		if err := decodeBody(r, &req); err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}
		if req.Username == "" {
			sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("username required"))
			return
		}

		res, err := b.Dispatch(r.Context(), req.Username, req.Operations)
		if err != nil {
			publishFailure(hub, req.Username, err)
			sendErr(w, err)
			return
		}
		sendResp(w, http.StatusOK, res, nil)
	}
}

// PostCustomJSON broadcasts one custom_json with posting authority
func PostCustomJSON(b Broadcaster, hub *api.WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CustomJSONReq
		if err := decodeBody(r, &req); err != nil {
			sendResp(w, http.StatusBadRequest, nil, err)
			return
		}
		if req.Username == "" || req.ID == "" || len(req.JSON) == 0 {
			sendResp(w, http.StatusBadRequest, nil, fmt.Errorf("username, id and json required"))
			return
		}

		res, err := b.DispatchJSON(r.Context(), req.Username, req.ID, req.JSON)
		if err != nil {
			publishFailure(hub, req.Username, err)
			sendErr(w, err)
			return
		}
		sendResp(w, http.StatusOK, res, nil)
	}
}

// GetWSStatus gets WebSocket connection status
func GetWSStatus(hub *api.WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			sendResp(w, http.StatusInternalServerError, nil, fmt.Errorf("WebSocket hub not initialized"))
			return
		}

		status := map[string]interface{}{
			"connected_clients": hub.GetClientCount(),
			"endpoint":          "/ws",
		}

		sendResp(w, http.StatusOK, status, nil)
	}
}

func publishFailure(hub *api.WSHub, username string, err error) {
	if hub != nil {
		hub.BroadcastFailed(username, kindOf(err).String())
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// kindOf also classifies chain client errors that reach a handler without
// passing through the dispatcher.
func kindOf(err error) errs.Kind {
	if k := errs.KindOf(err); k != errs.KindUnknown {
		return k
	}
	var te *hive.TransportError
	switch {
	case errors.Is(err, hive.ErrAccountNotFound):
		return errs.KindAccountNotFound
	case errors.As(err, &te):
		return errs.KindUnavailable
	}
	return errs.KindUnknown
}

func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.KindDerivation:
		return http.StatusBadRequest
	case errs.KindAccountNotFound:
		return http.StatusNotFound
	case errs.KindNoCredential, errs.KindAuthExpired:
		return http.StatusUnauthorized
	case errs.KindUserDeclined:
		return http.StatusConflict
	case errs.KindBroadcastRejected:
		return http.StatusUnprocessableEntity
	case errs.KindUnavailable:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func sendErr(w http.ResponseWriter, err error) {
	kind := kindOf(err)
	writeResp(w, statusFor(kind), RestResp{Error: err.Error(), Kind: kind.String()})
}

// send response
func sendResp(w http.ResponseWriter, statusCode int, data interface{}, err error) {
	response := RestResp{
		Success: err == nil,
		Data:    data,
	}

	if err != nil {
		response.Error = err.Error()
	}

	writeResp(w, statusCode, response)
}

func writeResp(w http.ResponseWriter, statusCode int, response RestResp) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
