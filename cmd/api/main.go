package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/phone-verification-api/internal/application/verification"
	"github.com/phone-verification-api/internal/config"
	"github.com/phone-verification-api/internal/infrastructure/dynamo"
	"github.com/phone-verification-api/internal/infrastructure/memory"
	"github.com/phone-verification-api/internal/infrastructure/postgres"
	"github.com/phone-verification-api/internal/pkg/logger"
	transporthttp "github.com/phone-verification-api/internal/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)
	if envErr != nil {
		log.Debug("no .env file found, reading from environment")
	}

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("store unavailable", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := &transporthttp.Deps{
		Verifications: verification.NewService(store),
		Logger:        log,
		Registry:      reg,
	}

	srv := &http.Server{
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Bind before serving so a taken port fails startup instead of a goroutine.
	ln, err := net.Listen("tcp", cfg.ServerAddr())
	if err != nil {
		log.Error("listen failed", "addr", cfg.ServerAddr(), "err", err)
		closeStore()
		os.Exit(1)
	}

	go func() {
		log.Info("server starting", "addr", ln.Addr().String(), "env", cfg.AppEnv, "driver", cfg.StoreDriver)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "err", err)
	}
	log.Info("server stopped")
}

// openStore connects the configured driver and prepares its schema. The
// returned func releases whatever the driver holds.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (verification.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverDynamo:
		client, err := dynamo.NewClient(ctx, cfg.Dynamo)
		if err != nil {
			return nil, nil, err
		}
		if err := dynamo.Bootstrap(ctx, client, cfg.Dynamo.VerificationTable); err != nil {
			return nil, nil, err
		}
		return dynamo.NewVerificationRepo(client, cfg.Dynamo.VerificationTable), func() {}, nil

	case config.DriverMemory:
		log.Warn("using in-memory store; records are lost on exit")
		return memory.NewVerificationRepo(), func() {}, nil

	default:
		pool, err := postgres.Connect(ctx, cfg.Database, log)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Bootstrap(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.NewVerificationRepo(pool), pool.Close, nil
	}
}
