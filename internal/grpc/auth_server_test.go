package grpcserver

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"predicta/internal/auth"
	"predicta/internal/config"
	"predicta/internal/coordinator"
	"predicta/internal/form"
	"predicta/internal/testutil"
	"predicta/models"
	"predicta/repository"
)

const testSecret = "grpc-test-secret"

func testConfig(rate float64, burst int) *config.Config {
	return &config.Config{Auth: config.AuthConfig{
		JWTSecret:  testSecret,
		SessionTTL: time.Hour,
		LoginRate:  rate,
		LoginBurst: burst,
	}}
}

// newTestClient serves AuthService over an in-memory listener and returns a
// client connection to it.
func newTestClient(t *testing.T, cfg *config.Config, users repository.UserRepositoryI) (*Client, *grpc.ClientConn) {
	t.Helper()
	sessions, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	require.NoError(t, err)

	srv, _, err := NewServer(cfg, coordinator.New(users, nil, nil), sessions, nil)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn), conn
}

func brian() RegisterParams {
	return RegisterParams{Username: "brian", Email: "b@x.com", Role: models.RoleAdmin, Password: "secret", ConfirmPassword: "secret"}
}

func TestRegisterLoginWhoAmI(t *testing.T) {
	users, _ := testutil.NewSQLiteUsers(t, "grpcflow")
	c, _ := newTestClient(t, testConfig(100, 100), users)
	ctx := context.Background()

	created, err := c.Register(ctx, brian())
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, models.RoleAdmin, created.Role)
	assert.NotEmpty(t, created.CreatedAt)

	u, token, err := c.Login(ctx, "b@x.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)
	assert.Equal(t, "brian", u.Username)
	assert.NotEmpty(t, token)

	me, err := c.WhoAmI(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", me.Email)
	assert.Equal(t, created.CreatedAt, me.CreatedAt)
}

func TestLogin_StatusCodes(t *testing.T) {
	users, _ := testutil.NewSQLiteUsers(t, "grpclogin")
	c, _ := newTestClient(t, testConfig(100, 100), users)
	ctx := context.Background()
	_, err := c.Register(ctx, brian())
	require.NoError(t, err)

	_, _, err = c.Login(ctx, "b@x.com", "wrong")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, _, err = c.Login(ctx, "nobody@x.com", "secret")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, _, err = c.Login(ctx, "b@x.com", "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, "Please enter email and password", status.Convert(err).Message())
}

func TestRegisterLogin_LongPassword(t *testing.T) {
	users, _ := testutil.NewSQLiteUsers(t, "grpclongpw")
	c, _ := newTestClient(t, testConfig(100, 100), users)
	ctx := context.Background()

	p := brian()
	p.Password = strings.Repeat("s", 100)
	p.ConfirmPassword = p.Password
	_, err := c.Register(ctx, p)
	require.NoError(t, err)

	_, token, err := c.Login(ctx, p.Email, p.Password)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestToStatus_FormError(t *testing.T) {
	s := &AuthServer{}
	err := s.toStatus(form.ValidateLogin(form.LoginForm{Email: "b@x.com"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, form.MsgLoginRequired, status.Convert(err).Message())
}

func TestLogin_StorageFailureIsUnavailable(t *testing.T) {
	c, _ := newTestClient(t, testConfig(100, 100), &testutil.MemoryUsers{Err: repository.ErrStorage})

	_, _, err := c.Login(context.Background(), "b@x.com", "secret")
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestRegister_StatusCodes(t *testing.T) {
	c, _ := newTestClient(t, testConfig(100, 100), &testutil.MemoryUsers{})
	ctx := context.Background()

	_, err := c.Register(ctx, brian())
	require.NoError(t, err)

	_, err = c.Register(ctx, brian())
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	p := brian()
	p.Email = "other@x.com"
	p.ConfirmPassword = "nope"
	_, err = c.Register(ctx, p)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, "Passwords do not match", status.Convert(err).Message())

	p = brian()
	p.Email = "other@x.com"
	p.Role = ""
	_, err = c.Register(ctx, p)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	p = brian()
	p.Email = "other@x.com"
	p.Role = "Buyer"
	_, err = c.Register(ctx, p)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestWhoAmI_RequiresSession(t *testing.T) {
	users := &testutil.MemoryUsers{}
	c, _ := newTestClient(t, testConfig(100, 100), users)
	ctx := context.Background()

	_, err := c.WhoAmI(ctx, "garbage")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	// A valid token for a user that is not stored.
	tok := testutil.GenerateSessionJWT(t, testSecret, 42, "ghost@x.com", "User", time.Hour)
	_, err = c.WhoAmI(ctx, tok)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestLogin_RateLimited(t *testing.T) {
	users := &testutil.MemoryUsers{}
	c, _ := newTestClient(t, testConfig(0.001, 2), users)
	ctx := context.Background()

	// Register is not throttled.
	for i := 0; i < 3; i++ {
		p := brian()
		p.Email = string(rune('a'+i)) + "@x.com"
		_, err := c.Register(ctx, p)
		require.NoError(t, err)
	}

	_, _, err := c.Login(ctx, "a@x.com", "secret")
	require.NoError(t, err)
	_, _, err = c.Login(ctx, "a@x.com", "wrong")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	_, _, err = c.Login(ctx, "a@x.com", "secret")
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestHealthCheck(t *testing.T) {
	_, conn := newTestClient(t, testConfig(100, 100), &testutil.MemoryUsers{})

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

type panickyService struct{ AuthService }

func (panickyService) WhoAmI(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	panic("boom")
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := recoveryInterceptor(zaptest.NewLogger(t))
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: WhoAmIMethod}, func(ctx context.Context, req any) (any, error) {
		return panickyService{}.WhoAmI(ctx, nil)
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}
