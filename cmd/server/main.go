package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"predicta/internal/auth"
	"predicta/internal/config"
	"predicta/internal/coordinator"
	"predicta/internal/db"
	grpcserver "predicta/internal/grpc"
	"predicta/internal/logger"
	"predicta/internal/metrics"
	"predicta/internal/password"
	"predicta/internal/store"
	"predicta/repository"
)

func main() {
	cfg, err := config.LoadWithDefaults()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()
	lg.Info("configuration loaded", zap.Stringer("config", cfg))

	d, err := db.Open(cfg.Database.Path, lg)
	if err != nil {
		lg.Fatal("open credential store", zap.Error(err))
	}
	defer func() {
		if err := d.Close(); err != nil {
			lg.Error("close db", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	creds := store.NewCredentialStore(d, password.NewHasher(cfg.Auth.PasswordCost), lg)
	users := repository.NewUserRepository(creds)
	coord := coordinator.New(users, lg, metrics.NewAuth(reg))

	sessions, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	if err != nil {
		lg.Fatal("session issuer", zap.Error(err))
	}

	shutdown, err := grpcserver.StartGRPC(cfg, coord, sessions, lg)
	if err != nil {
		lg.Fatal("start grpc", zap.Error(err))
	}
	lg.Info("gRPC server listening", zap.String("addr", cfg.GRPC.Address))

	var metricsSrv *http.Server
	if cfg.Metrics.Address != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.Metrics.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				lg.Error("metrics server", zap.Error(err))
			}
		}()
		lg.Info("metrics listening", zap.String("addr", cfg.Metrics.Address))
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		lg.Error("grpc shutdown", zap.Error(err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			lg.Error("metrics shutdown", zap.Error(err))
		}
	}
}
