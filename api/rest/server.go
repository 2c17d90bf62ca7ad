package rest

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/abcfe/hive-wallet/api"
	"github.com/abcfe/hive-wallet/common/logger"
)

// Server REST API server
type Server struct {
	host       string
	port       int
	httpServer *http.Server
	services   Services
	wsHub      *api.WSHub
}

// NewServer creates a REST API server
func NewServer(host string, port int, svc Services) *Server {
	if host == "" {
		host = "127.0.0.1"
	}
	return &Server{
		host:     host,
		port:     port,
		services: svc,
		wsHub:    api.NewWSHub(),
	}
}

// Handler returns the routed handler without starting a listener
func (s *Server) Handler() http.Handler {
	return setupRouter(s.services, s.wsHub)
}

// Start starts the REST API server
func (s *Server) Start() error {
	go s.wsHub.Run()

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	if s.services.Guard.Token == "" && !isLoopback(s.host) {
		logger.Warn("REST API exposed on ", s.host, " without an api token")
	}
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		// extension signing waits on a human
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("REST API Server starting on ", addr)
	logger.Info("WebSocket available at ws://", addr, "/ws")
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("REST API Server error:", err)
		}
	}()

	return nil
}

// Stop stops the REST API server
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("Shutting down REST API Server...")
	s.wsHub.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// GetWSHub returns the WebSocket hub
func (s *Server) GetWSHub() *api.WSHub {
	return s.wsHub
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
