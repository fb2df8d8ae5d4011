// Package server initializes and runs the main application: it wires the
// credential store, auth manager, registry storage, and HTTP boundary, and
// handles signal-driven graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"vulnreg/internal/auth"
	"vulnreg/internal/httpapi"
	"vulnreg/internal/logging"
	"vulnreg/internal/registry"
	"vulnreg/internal/registry/repositories/repomanager"
	"vulnreg/internal/server/config"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	httpServer *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	store := auth.NewCredentialStore(cfg.CredentialFile, logger)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost, logger)
	issuer := auth.NewSessionIssuer(logger)

	authManager, err := auth.NewManager(ctx, store, hasher, issuer, logger)
	if err != nil {
		return nil, fmt.Errorf("auth init error: %w", err)
	}

	db, err := registry.InitDatabase(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	registryService := registry.NewService(db, repomanager.NewSQLiteRepositoryManager(), logger)

	httpServer := httpapi.NewServer(cfg.EndpointAddrHTTP, cfg.ShutdownTimeout, authManager, registryService, logger)

	return &App{config: cfg, logger: logger, httpServer: httpServer}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()
}
