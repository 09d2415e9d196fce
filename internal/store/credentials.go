// Package store is the on-device credential store: one SQLite table of user
// rows whose passwords are kept as bcrypt hashes.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"predicta/internal/password"
	"predicta/models"
)

var (
	// ErrStorage marks a failure of the storage medium itself, as opposed to
	// a lookup that simply found nothing.
	ErrStorage = errors.New("credential storage failure")
	// ErrEmailTaken is returned by Insert when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
)

const queryTimeout = 3 * time.Second

// CredentialStore persists users in the `users` table.
type CredentialStore struct {
	db     *sql.DB
	hasher *password.Hasher
	log    *zap.Logger
}

// NewCredentialStore builds a store over an opened database.
func NewCredentialStore(db *sql.DB, hasher *password.Hasher, log *zap.Logger) *CredentialStore {
	if hasher == nil {
		hasher = password.NewHasher(password.DefaultCost)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CredentialStore{db: db, hasher: hasher, log: log.Named("store")}
}

// Insert hashes the password and appends a new row, returning its generated id.
func (s *CredentialStore) Insert(ctx context.Context, u models.NewUser) (int64, error) {
	const op = "store.Insert"
	hash, err := s.hasher.Hash(u.Password)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password, role) VALUES (?, ?, ?, ?)`,
		u.Username, u.Email, hash, string(u.Role))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		return 0, s.storageErr(op, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, s.storageErr(op, err)
	}
	return id, nil
}

// FindByCredentials returns the user whose email byte-equals email and whose
// stored hash matches password. A miss returns nil, nil.
func (s *CredentialStore) FindByCredentials(ctx context.Context, email, pass string) (*models.User, error) {
	const op = "store.FindByCredentials"
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		u    models.User
		hash string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, role, created_at, password FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		_ = s.hasher.Burn(pass)
		return nil, nil
	}
	if err != nil {
		return nil, s.storageErr(op, err)
	}

	switch err := s.hasher.Compare(hash, pass); {
	case err == nil:
		return &u, nil
	case errors.Is(err, password.ErrMismatch):
		return nil, nil
	default:
		// A hash that cannot be parsed means the row is corrupt.
		return nil, s.storageErr(op, err)
	}
}

// FindByID returns the user with the given id, or nil, nil when absent.
func (s *CredentialStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "store.FindByID"
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, role, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, s.storageErr(op, err)
	}
	return &u, nil
}

// Count returns the number of stored users.
func (s *CredentialStore) Count(ctx context.Context) (int, error) {
	const op = "store.Count"
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, s.storageErr(op, err)
	}
	return n, nil
}

func (s *CredentialStore) storageErr(op string, err error) error {
	s.log.Error("storage failure", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
