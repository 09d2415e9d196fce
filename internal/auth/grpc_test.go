package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"predicta/internal/testutil"
)

func TestRequirePrincipal(t *testing.T) {
	_, err := RequirePrincipal(context.Background())
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := WithPrincipal(context.Background(), &Principal{UserID: 1})
	p, err := RequirePrincipal(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.UserID)
}

func TestUnaryAuthInterceptor(t *testing.T) {
	interceptor := NewUnaryAuthInterceptor(newTestIssuer(t), "/predicta.auth.v1.AuthService/Login")

	// Allowlisted method: no header, handler runs without a principal.
	called := false
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/predicta.auth.v1.AuthService/Login"}, func(ctx context.Context, req any) (any, error) {
		called = true
		_, ok := FromContext(ctx)
		assert.False(t, ok)
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	// Protected method without a token.
	_, err = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Op"}, func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler must not run")
		return nil, nil
	})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	// Wrong scheme.
	bad := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic abc"))
	_, err = interceptor(bad, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Op"}, func(ctx context.Context, req any) (any, error) {
		return nil, nil
	})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	// Valid token: principal injected.
	tok := testutil.GenerateSessionJWT(t, testSecret, 9, "bob@x.com", "User", time.Hour)
	_, err = interceptor(testutil.CtxWithBearer(context.Background(), tok), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Op"}, func(ctx context.Context, req any) (any, error) {
		p, ok := FromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, int64(9), p.UserID)
		return nil, nil
	})
	assert.NoError(t, err)
}
