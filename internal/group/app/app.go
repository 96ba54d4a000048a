package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/uome/internal/group/http"
	"github.com/aussiebroadwan/uome/internal/group/service"
	"github.com/aussiebroadwan/uome/internal/group/store"
	"github.com/aussiebroadwan/uome/internal/group/store/drivers/sqlite"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/slogx"
	"github.com/aussiebroadwan/uome/pkg/uomesdk"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the group authority with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      store.Store
	keyPair *cryptox.KeyPair
	ledger  *uomesdk.Client

	// Services
	registrarService *service.RegistrarService
	inviteService    *service.InviteService
	joinService      *service.JoinService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
// Registration with the ledger happens here, before the server accepts any
// request.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "groupd",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keyPair, err := cryptox.LoadOrCreateKeyPair(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signing key: %w", err)
	}
	app.keyPair = keyPair
	app.logger.Info("group identity loaded", "identity", string(keyPair.Identity()))

	app.ledger = uomesdk.NewClient(cfg.LedgerURL)

	app.initServices()

	groupUUID, err := app.registrarService.EnsureRegistered(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to register with ledger: %w", err)
	}
	app.logger.Info("serving group", "group_uuid", groupUUID)

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("group authority starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down group authority...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("group authority stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	ledgerIdentity := cryptox.Identity(app.cfg.LedgerIdentity)

	app.registrarService = &service.RegistrarService{
		Store:           app.db,
		Signer:          app.keyPair,
		Ledger:          app.ledger,
		Logger:          app.logger,
		GroupName:       app.cfg.GroupName,
		LedgerIdentity:  ledgerIdentity,
		FounderIdentity: cryptox.Identity(app.cfg.FounderIdentity),
		FounderEmail:    app.cfg.FounderEmail,
	}
	app.inviteService = &service.InviteService{
		Store:  app.db,
		Signer: app.keyPair,
		Mailer: &service.LogMailer{Logger: app.logger},
	}
	app.joinService = &service.JoinService{
		Store:          app.db,
		Signer:         app.keyPair,
		Ledger:         app.ledger,
		LedgerIdentity: ledgerIdentity,
	}
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	// Wire services to router
	router.InviteService = app.inviteService
	router.JoinService = app.joinService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
