package testutil

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc/metadata"

	"predicta/internal/db"
	"predicta/internal/password"
	"predicta/internal/store"
	"predicta/models"
	"predicta/repository"
)

// OpenInMemoryDB opens an in-memory SQLite database and applies migrations.
// The database is closed via t.Cleanup.
func OpenInMemoryDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	// Shared cache lets every pooled connection see the same database.
	d, err := db.Open("file:"+name+"?mode=memory&cache=shared", nil)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// NewSQLiteUsers returns a SQLite-backed repository with a fast bcrypt cost.
func NewSQLiteUsers(t *testing.T, name string) (*repository.UserRepository, *store.CredentialStore) {
	t.Helper()
	s := store.NewCredentialStore(OpenInMemoryDB(t, name), password.NewHasher(bcrypt.MinCost), nil)
	return repository.NewUserRepository(s), s
}

// MemoryUsers is an in-memory repository.UserRepositoryI. Passwords are kept
// in plain form; it exists only to stand in for the SQLite store in tests.
type MemoryUsers struct {
	mu     sync.Mutex
	nextID int64
	rows   []memoryRow
	// Err, when set, is returned by every call.
	Err error
}

type memoryRow struct {
	user     models.User
	password string
}

var _ repository.UserRepositoryI = (*MemoryUsers)(nil)

func (m *MemoryUsers) AddUser(_ context.Context, u models.NewUser) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, r := range m.rows {
		if r.user.Email == u.Email {
			return nil, repository.ErrEmailTaken
		}
	}
	m.nextID++
	rec := models.User{
		ID:        m.nextID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: time.Now().UTC().Format(time.DateTime),
	}
	m.rows = append(m.rows, memoryRow{user: rec, password: u.Password})
	return &rec, nil
}

func (m *MemoryUsers) Login(_ context.Context, email, pass string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, r := range m.rows {
		if r.user.Email == email && r.password == pass {
			u := r.user
			return &u, nil
		}
	}
	return nil, nil
}

func (m *MemoryUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, r := range m.rows {
		if r.user.ID == id {
			u := r.user
			return &u, nil
		}
	}
	return nil, nil
}

// Snapshot returns a copy of the stored users in insertion order.
func (m *MemoryUsers) Snapshot() []models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r.user)
	}
	return out
}

// GenerateSessionJWT returns a signed HS256 session token with the claims the
// auth package expects.
func GenerateSessionJWT(t *testing.T, secret string, userID int64, email, role string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"uid":   userID,
		"email": email,
		"role":  role,
		"exp":   time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// CtxWithBearer returns a context containing gRPC metadata Authorization header with the given token.
func CtxWithBearer(ctx context.Context, token string) context.Context {
	md := metadata.Pairs("authorization", "Bearer "+token)
	return metadata.NewIncomingContext(ctx, md)
}
