package grpcserver

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"predicta/internal/auth"
	"predicta/internal/coordinator"
	"predicta/internal/form"
	"predicta/repository"
)

// AuthServer bundles dependencies and implements AuthService.
type AuthServer struct {
	Coordinator *coordinator.Coordinator
	Sessions    *auth.Issuer
	Log         *zap.Logger
}

var _ AuthService = (*AuthServer)(nil)

// Register validates the form and creates the account.
func (s *AuthServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := registerFormFrom(req)
	if err := form.ValidateRegister(f); err != nil {
		return nil, s.toStatus(err)
	}

	u, err := s.Coordinator.Register(ctx, coordinator.RegisterInput{
		Username: f.Username,
		Email:    f.Email,
		Role:     f.Role,
		Password: f.Password,
	})
	if err != nil {
		return nil, s.toStatus(err)
	}
	return userReply(u), nil
}

// Login resolves credentials and hands back the user with a session token.
func (s *AuthServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := loginFormFrom(req)
	if err := form.ValidateLogin(f); err != nil {
		return nil, s.toStatus(err)
	}

	var out coordinator.LoginOutcome
	select {
	case out = <-s.Coordinator.LoginAsync(ctx, f.Email, f.Password):
	case <-ctx.Done():
		return nil, status.FromContextError(ctx.Err()).Err()
	}
	if out.Err != nil {
		return nil, s.toStatus(out.Err)
	}
	if !out.Found() {
		return nil, status.Error(codes.Unauthenticated, form.MsgInvalidCredential)
	}

	token, err := s.Sessions.Issue(out.User)
	if err != nil {
		s.logger().Error("issue session", zap.Error(err))
		return nil, status.Error(codes.Internal, "issue session")
	}
	reply := userReply(out.User)
	reply.Fields[fieldToken] = structpb.NewStringValue(token)
	return reply, nil
}

// WhoAmI returns the stored user behind the caller's session token.
func (s *AuthServer) WhoAmI(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.Coordinator.CurrentUser(ctx, p.UserID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	if u == nil {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	return userReply(u), nil
}

func (s *AuthServer) toStatus(err error) error {
	switch {
	case form.IsFormError(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, coordinator.ErrInvalidRole):
		return status.Error(codes.InvalidArgument, form.MsgInvalidRole)
	case errors.Is(err, repository.ErrEmailTaken):
		return status.Error(codes.AlreadyExists, "email already registered")
	case errors.Is(err, repository.ErrStorage):
		return status.Error(codes.Unavailable, "credential storage unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		s.logger().Error("unexpected auth error", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}

func (s *AuthServer) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
