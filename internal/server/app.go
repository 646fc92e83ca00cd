// Package server wires configuration, storage and services together and runs
// the HTTP API and the gRPC health endpoint until a termination signal.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/shreels/tgauth/internal/logging"
	"github.com/shreels/tgauth/internal/server/auth"
	"github.com/shreels/tgauth/internal/server/config"
	"github.com/shreels/tgauth/internal/server/httpapi"
	"github.com/shreels/tgauth/internal/server/media"
	"github.com/shreels/tgauth/internal/server/repositories/repomanager"
	"github.com/shreels/tgauth/internal/server/services"
	"github.com/shreels/tgauth/internal/telemetry"

	gs "github.com/shreels/tgauth/internal/server/grpc"
)

const (
	serviceName      = "tgauth"
	migrationTimeout = 30 * time.Second
)

type App struct {
	config            *config.Config
	logger            logging.Logger
	db                *sql.DB
	httpServer        *httpapi.HTTPServer
	grpcServer        *gs.GRPCServer
	shutdownTelemetry func(context.Context) error
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()
	logger := logging.New(os.Stdout, c.Environment, c.LogLevel)

	// Missing secrets do not stop the process; the affected endpoints fail closed.
	for _, name := range c.Missing() {
		logger.Warn(ctx, "required setting is not set", "name", name)
	}

	shutdownTelemetry, err := telemetry.Setup(ctx, serviceName, c.TelemetryEndpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry init error: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, migrationTimeout)
	defer cancel()
	if err := rm.RunMigrations(migrateCtx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	issuer := auth.NewIssuer(c.JWTSecret, c.JWTIssuer, nil)
	profiles := services.NewProfileService(db, rm, c, logger)
	authService := services.NewAuthService(c, issuer, profiles, logger)
	api := httpapi.NewAPI(authService, profiles, issuer, media.NewPresigner(c), logger.With("module", "http_api"), c.IsProduction())

	return &App{
		config:            c,
		logger:            logger,
		db:                db,
		httpServer:        httpapi.NewHTTPServer(c.EndpointAddrHTTP, logger, api),
		grpcServer:        gs.NewGRPCServer(c.EndpointAddrGRPC, logger, db, c.HealthInterval),
		shutdownTelemetry: shutdownTelemetry,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runServer runs one server and cancels the whole app if it fails.
func (app *App) runServer(ctx context.Context, cancelFunc context.CancelFunc, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		app.logger.Error(ctx, "server stopped", "server", name, "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "http", app.httpServer.Run)
	}()
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "grpc", app.grpcServer.Run)
	}()

	wg.Wait()

	app.close()
}

func (app *App) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.shutdownTelemetry(ctx); err != nil {
		app.logger.Warn(ctx, "telemetry shutdown failed", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
