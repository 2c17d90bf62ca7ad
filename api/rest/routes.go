package rest

import (
	"net/http"

	"github.com/abcfe/hive-wallet/api"
	"github.com/abcfe/hive-wallet/metrics"
	"github.com/abcfe/hive-wallet/wallet"
	"github.com/gorilla/mux"
)

// Services the API serves from. Nil members disable their routes.
type Services struct {
	Detector     *wallet.Detector
	Accounts     AccountGetter
	Broadcaster  Broadcaster
	AccountIndex uint32
	Guard        Guard
}

func setupRouter(svc Services, wsHub *api.WSHub) http.Handler {
	r := mux.NewRouter()

	// Middleware setup
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	// Base route
	r.HandleFunc("/", HomeHandler).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws", api.HandleWebSocket(wsHub))

	// Prometheus
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(svc.Guard.OriginMiddleware)
	apiRouter.Use(JSONMiddleware)

	// Key derivation
	apiRouter.HandleFunc("/keys/derive", DeriveKeys(svc.AccountIndex)).Methods("POST")
	if svc.Detector != nil {
		apiRouter.HandleFunc("/keys/detect", DetectDerivation(svc.Detector, wsHub)).Methods("POST")
	}

	// Chain reads
	if svc.Accounts != nil {
		apiRouter.HandleFunc("/account/{username}", GetAccount(svc.Accounts)).Methods("GET")
	}

	// Broadcast
	if svc.Broadcaster != nil {
		apiRouter.Handle("/broadcast", svc.Guard.RequireToken(PostBroadcast(svc.Broadcaster, wsHub))).Methods("POST")
		apiRouter.Handle("/broadcast/custom-json", svc.Guard.RequireToken(PostCustomJSON(svc.Broadcaster, wsHub))).Methods("POST")
	}

	// WebSocket status API
	apiRouter.HandleFunc("/ws/status", GetWSStatus(wsHub)).Methods("GET")

	return r
}
