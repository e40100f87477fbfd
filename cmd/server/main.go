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

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/tutorledger/internal/auth"
	"github.com/mmynk/tutorledger/internal/backup"
	"github.com/mmynk/tutorledger/internal/codec"
	"github.com/mmynk/tutorledger/internal/config"
	"github.com/mmynk/tutorledger/internal/ledger"
	"github.com/mmynk/tutorledger/internal/middleware"
	"github.com/mmynk/tutorledger/internal/persistence"
	"github.com/mmynk/tutorledger/internal/service"
	"github.com/mmynk/tutorledger/internal/storage/sqlite"
	"github.com/mmynk/tutorledger/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("Storage initialized", "database", cfg.DBPath)

	cipher := codec.New(codec.NewFileVault(cfg.KeyPath), codec.Options{
		AllowDevelopmentKey: cfg.AllowDevelopmentKey(),
		Logger:              logger,
	})
	repo := persistence.New(store, cipher, persistence.Options{
		Logger:     logger,
		Registerer: reg,
		Quarantine: cfg.QuarantineCorrupt,
	})
	repo.EnsureMigrated(ctx)

	l := ledger.New(repo, ledger.Options{Logger: logger})
	if err := l.Load(ctx); err != nil {
		// Balances in memory are already correct; only the write-back failed.
		logger.Warn("Ledger loaded with unsaved corrections", "error", err)
	}

	if cfg.BackupDir != "" {
		scheduler, err := backup.NewScheduler(repo, backup.SchedulerOptions{
			Dir:      cfg.BackupDir,
			Schedule: cfg.BackupSchedule,
			Keep:     cfg.BackupKeep,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		scheduler.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			scheduler.Stop(stopCtx)
		}()
	}

	jwtManager, err := issueToken(ctx, cfg, logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()

	// Register Connect services
	svc := service.NewLedgerService(l, service.Options{
		Source:    repo,
		Decrypter: cipher,
		Logger:    logger,
	})
	interceptors := connect.WithInterceptors(
		middleware.LoggingInterceptor(logger, reg),
		middleware.RequireAuth(jwtManager),
	)
	ledgerPath, ledgerHandler := service.NewLedgerServiceHandler(svc, interceptors)
	mux.Handle(ledgerPath, ledgerHandler)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	handler := middleware.CORS(cfg.CORSOrigins)(middleware.RequestID(mux))

	server := &http.Server{
		Addr: cfg.ListenAddr,
		// h2c serves HTTP/2 without TLS on the loopback interface.
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Connect server starting",
			"address", cfg.ListenAddr,
			"env", cfg.Env,
			"cors_origins", cfg.CORSOrigins,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// issueToken loads the signing secret, creating it on first run, and writes a
// fresh API token for local clients to TokenPath.
func issueToken(ctx context.Context, cfg config.Config, logger *slog.Logger) (*auth.JWTManager, error) {
	secret, err := auth.LoadOrCreateSecret(ctx, codec.NewFileVault(cfg.TokenSecretPath))
	if err != nil {
		return nil, err
	}
	jwtManager := auth.NewJWTManager(secret, cfg.TokenTTL)

	token, err := jwtManager.Generate("local-ui")
	if err != nil {
		return nil, err
	}
	if err := auth.WriteToken(cfg.TokenPath, token); err != nil {
		return nil, err
	}
	logger.Info("API token issued", "path", cfg.TokenPath, "ttl", cfg.TokenTTL)
	return jwtManager, nil
}
