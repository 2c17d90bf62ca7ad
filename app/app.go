package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abcfe/hive-wallet/api/rest"
	"github.com/abcfe/hive-wallet/broadcast"
	"github.com/abcfe/hive-wallet/cache"
	"github.com/abcfe/hive-wallet/common/logger"
	conf "github.com/abcfe/hive-wallet/config"
	"github.com/abcfe/hive-wallet/credential"
	"github.com/abcfe/hive-wallet/hive"
	"github.com/abcfe/hive-wallet/keychain"
	"github.com/abcfe/hive-wallet/signer"
	"github.com/abcfe/hive-wallet/storage"
	"github.com/abcfe/hive-wallet/wallet"
)

type App struct {
	stop        chan struct{}
	Conf        conf.Config
	DB          *storage.DB
	Credentials credential.Store
	Chain       *hive.Client
	Cache       *cache.QueryCache
	Accounts    *cache.AccountCache
	Detector    *wallet.Detector
	Dispatcher  *broadcast.Dispatcher
	Mutation    *broadcast.Mutation
	restServer  *rest.Server
}

// NewFromConfig starts logging and opens the credential db for cfg.
func NewFromConfig(cfg *conf.Config) (*App, error) {
	if err := logger.InitLogger(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := storage.InitDB(cfg)
	if err != nil {
		logger.Error("Failed to load db: ", err)
		return nil, err
	}

	app, err := NewWithDB(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

// NewWithDB wires every component on top of an already opened db.
func NewWithDB(cfg *conf.Config, db *storage.DB) (*App, error) {
	chain, err := hive.NewClientFromConfig(cfg)
	if err != nil {
		logger.Error("Failed to create chain client: ", err)
		return nil, err
	}

	qc := cache.NewFromConfig(cfg)
	accounts := cache.NewAccountCache(chain, qc)

	app := &App{
		stop:        make(chan struct{}),
		Conf:        *cfg,
		DB:          db,
		Credentials: credential.NewStore(db),
		Chain:       chain,
		Cache:       qc,
		Accounts:    accounts,
		Detector:    wallet.NewDetector(accounts, wallet.WithAccountIndex(cfg.Chain.AccountIndex)),
	}

	opts := []broadcast.Option{
		broadcast.WithChain(chain),
		broadcast.WithHostedSigner(hostedSignerFactory(cfg)),
		broadcast.WithObserver(func(from, to broadcast.State) {
			if to == broadcast.StateFail {
				logger.Warn("broadcast failed in state ", from)
			}
		}),
	}
	if cfg.Keychain.BridgeURL != "" {
		opts = append(opts, broadcast.WithExtension(keychain.NewBridgeFromConfig(cfg)))
	}
	app.Dispatcher = broadcast.NewDispatcher(app.Credentials, opts...)

	app.Mutation = broadcast.NewMutation(app.Dispatcher,
		broadcast.WithInvalidator(qc),
		broadcast.WithOnSuccess(func(username string, res *broadcast.Result) {
			if app.restServer != nil {
				app.restServer.GetWSHub().BroadcastDone(username, res)
			}
		}),
	)

	app.restServer = rest.NewServer(cfg.Server.Host, cfg.Server.RestPort, rest.Services{
		Detector:     app.Detector,
		Accounts:     accounts,
		Broadcaster:  app.Mutation,
		AccountIndex: cfg.Chain.AccountIndex,
		Guard: rest.Guard{
			Token:   cfg.Server.APIToken,
			Origins: cfg.Server.AllowedOrigins,
		},
	})

	return app, nil
}

func hostedSignerFactory(cfg *conf.Config) broadcast.HostedSignerFactory {
	httpClient := &http.Client{Timeout: time.Duration(cfg.HostedSigner.TimeoutSec) * time.Second}
	return func(token string) broadcast.HostedSigner {
		return signer.NewClient(cfg.HostedSigner.URL, token, httpClient)
	}
}

// Handler exposes the REST routes without listening.
func (p *App) Handler() http.Handler {
	return p.restServer.Handler()
}

func (p *App) NewRest() error {
	if err := p.restServer.Start(); err != nil {
		return fmt.Errorf("failed to start REST API server: %w", err)
	}

	logger.Info("All services started")
	return nil
}

// Cleanup stops the server and closes the db
func (p *App) Cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if p.restServer != nil {
		if err := p.restServer.Stop(ctx); err != nil {
			logger.Error("Error stopping REST API server:", err)
		}
	}

	if p.DB != nil {
		if err := p.DB.Close(); err != nil {
			logger.Error("Error closing DB connection:", err)
		}
	}

	logger.Info("All resources cleaned up")
	logger.Sync()
}

func (p *App) Wait() {
	<-p.stop
}

func (p *App) Terminate() {
	p.Cleanup()
	close(p.stop)
}

func (p *App) SigHandler() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Arrived terminate signal: ", sig)
		p.Terminate()
	}()
}
