package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/mashtalsms/internal/adapter/driven/smsgateway"
	sqliteadapter "github.com/ericfisherdev/mashtalsms/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/mashtalsms/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/mashtalsms/internal/adapter/driving/web"
	"github.com/ericfisherdev/mashtalsms/internal/application"
	"github.com/ericfisherdev/mashtalsms/internal/config"
	"github.com/ericfisherdev/mashtalsms/internal/telemetry"
)

const serviceName = "mashtalsms"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"sms_endpoint", cfg.SMSEndpoint,
		"sms_timeout", cfg.SMSTimeout,
		"balance_schedule", cfg.BalanceSchedule,
		"credential_store", cfg.SecretKey != nil,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Tracing (no-op unless MASHTAL_OTEL_ENDPOINT is set).
	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Error("error flushing traces", "error", err)
		}
	}()

	// 4. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 5. Run migrations on writer connection.
	version, err := sqliteadapter.RunMigrations(db.Writer)
	if err != nil {
		return err
	}
	slog.Info("migrations complete", "schema_version", version)

	// 6. Wire adapters.
	credentialStore := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
	dispatchStore := sqliteadapter.NewDispatchRepo(db)

	gateway, err := smsgateway.NewClient(cfg.SMSEndpoint, smsgateway.Paths{
		Account: cfg.SMSAccountPath,
		Balance: cfg.SMSBalancePath,
		Send:    cfg.SMSSendPath,
	}, cfg.SMSTimeout)
	if err != nil {
		return err
	}

	// 7. Resolve credentials: stored credentials take priority over env vars.
	provider := application.NewGatewayProvider(gateway, cfg.BootstrapCredentials())
	credentialSvc := application.NewCredentialService(credentialStore, provider, slog.Default())

	creds, err := credentialSvc.Resolve(ctx, cfg.BootstrapCredentials())
	if err != nil {
		return err
	}
	provider.ReplaceCredentials(creds)
	if provider.Ready() {
		slog.Info("sms gateway account configured", "username", creds.Username, "sender", creds.SenderID)
	} else {
		slog.Info("no sms gateway credentials configured, sends disabled until provided via API")
	}

	notificationSvc := application.NewNotificationService(provider, dispatchStore, slog.Default())

	// 8. Balance monitor.
	var monitor *application.BalanceMonitor
	if cfg.BalanceMonitorEnabled() {
		monitor = application.NewBalanceMonitor(notificationSvc, cfg.BalanceSchedule, slog.Default())
		go func() {
			if err := monitor.Start(ctx); err != nil {
				slog.Error("balance monitor stopped", "error", err)
			}
		}()
	} else {
		slog.Info("balance monitor disabled")
	}

	// 9. Register API and GUI routes.
	mux := http.NewServeMux()
	apiHandler := httphandler.NewHandler(notificationSvc, credentialSvc, provider, monitor, slog.Default())
	httphandler.RegisterRoutes(mux, apiHandler)

	webHandler := webhandler.NewHandler(notificationSvc, provider, monitor, cfg.SecureCookies, slog.Default())
	webhandler.RegisterRoutes(mux, webHandler)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.Wrap(mux, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("mashtalsms started", "listen_addr", cfg.ListenAddr)

	// 10. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
