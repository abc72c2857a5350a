// Package server wires the pass server together: storage backends, push
// notifiers, the HTTP surface, and graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/passbeam/passbeam/internal/logging"
	"github.com/passbeam/passbeam/internal/server/blob"
	"github.com/passbeam/passbeam/internal/server/config"
	"github.com/passbeam/passbeam/internal/server/httpapi"
	"github.com/passbeam/passbeam/internal/server/models"
	"github.com/passbeam/passbeam/internal/server/observability/metrics"
	"github.com/passbeam/passbeam/internal/server/push"
	"github.com/passbeam/passbeam/internal/server/repositories/repomanager"
	"github.com/passbeam/passbeam/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *http.Server
}

func NewApp(cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	ctx := context.Background()

	metrics.MustRegister()

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	blobs, err := blob.NewS3Store(ctx, blob.S3Settings{
		User:         cfg.S3User,
		Password:     cfg.S3Password,
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	notifiers, err := buildNotifiers(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	dispatcher := push.NewDispatcher(rm.Registrations(db), notifiers, logger)
	passService := services.NewPassService(db, rm, blobs, dispatcher, logger)

	handler := httpapi.NewHandler(passService, cfg.UpdatePassword, logger)
	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.NewRouter(handler),
	}

	return &App{config: cfg, logger: logger, db: db, server: server}, nil
}

// buildNotifiers constructs one push client per configured backend. The
// client handles are created once here and stay read-only afterwards.
func buildNotifiers(ctx context.Context, cfg *config.Config, logger logging.Logger) (map[models.ClientApp]push.Notifier, error) {
	notifiers := map[models.ClientApp]push.Notifier{}

	if cfg.APNSTeamID != "" && cfg.APNSKeyID != "" {
		authKey, err := push.LoadAuthKey(cfg.APNSAuthKeyPath)
		if err != nil {
			return nil, fmt.Errorf("apns init error: %w", err)
		}
		notifiers[models.ClientAppleWallet] = push.NewAPNSNotifier(push.APNSSettings{
			TeamID:     cfg.APNSTeamID,
			KeyID:      cfg.APNSKeyID,
			AuthKey:    authKey,
			GatewayURL: cfg.APNSGatewayURL,
		}, logger)
	} else {
		logger.Warn(ctx, "apns credentials not configured, apple wallet devices will not be notified")
	}

	if cfg.WalletPassesAPIKey != "" {
		notifiers[models.ClientWalletPasses] = push.NewWalletPassesNotifier(
			cfg.WalletPassesEndpoint, cfg.WalletPassesAPIKey, logger)
	} else {
		logger.Warn(ctx, "walletpasses api key not configured, walletpasses devices will not be notified")
	}

	return notifiers, nil
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

	app.logger.Info(ctx, "starting server", "addr", app.config.Addr)

	app.initSignalHandler(cancelFunc)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			app.logger.Error(ctx, "server error", "error", err.Error())
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.server.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}

	app.logger.Info(ctx, "server stopped")
}
