package grpcserver

import (
	"context"
	"errors"
	"net"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"predicta/internal/auth"
	"predicta/internal/config"
	"predicta/internal/coordinator"
)

// NewServer builds a gRPC server exposing AuthService and the standard health
// service. Register, Login and health checks do not require a session.
func NewServer(cfg *config.Config, coord *coordinator.Coordinator, sessions *auth.Issuer, log *zap.Logger) (*grpc.Server, *health.Server, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is required")
	}
	if coord == nil || sessions == nil {
		return nil, nil, errors.New("coordinator and session issuer are required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("grpc")

	limiter := rate.NewLimiter(rate.Limit(cfg.Auth.LoginRate), cfg.Auth.LoginBurst)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		recoveryInterceptor(log),
		loggingInterceptor(log),
		loginLimitInterceptor(limiter, LoginMethod),
		auth.NewUnaryAuthInterceptor(sessions, RegisterMethod, LoginMethod, healthCheckMethod),
	))

	RegisterAuthService(srv, &AuthServer{Coordinator: coord, Sessions: sessions, Log: log})

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv, hs, nil
}

// StartGRPC listens on cfg.GRPC.Address, serves in the background and returns
// a shutdown function that drains in-flight calls until ctx expires.
func StartGRPC(cfg *config.Config, coord *coordinator.Coordinator, sessions *auth.Issuer, log *zap.Logger) (func(context.Context) error, error) {
	srv, hs, err := NewServer(cfg, coord, sessions, log)
	if err != nil {
		return nil, err
	}

	addr := cfg.GRPC.Address
	if addr == "" {
		addr = "127.0.0.1:50051"
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := srv.Serve(lis); err != nil && log != nil {
			log.Error("grpc serve", zap.Error(err))
		}
	}()

	return func(ctx context.Context) error {
		hs.Shutdown()
		done := make(chan struct{})
		go func() { srv.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return ctx.Err()
		}
	}, nil
}
