package repository

import (
	"context"

	"predicta/models"
)

// UserRepository is the app-facing view of the credential store.
type UserRepository struct {
	store CredentialStore
}

// NewUserRepository wraps a credential store.
func NewUserRepository(s CredentialStore) *UserRepository {
	return &UserRepository{store: s}
}

// AddUser persists a new user and returns the stored record, including the
// generated ID and creation time.
func (r *UserRepository) AddUser(ctx context.Context, u models.NewUser) (*models.User, error) {
	id, err := r.store.Insert(ctx, u)
	if err != nil {
		return nil, err
	}
	// The row is already written; if it cannot be read back the caller still
	// gets the record, just without CreatedAt.
	if stored, err := r.store.FindByID(ctx, id); err == nil && stored != nil {
		return stored, nil
	}
	return &models.User{ID: id, Username: u.Username, Email: u.Email, Role: u.Role}, nil
}

// Login returns the user matching both email and password, or nil, nil.
func (r *UserRepository) Login(ctx context.Context, email, password string) (*models.User, error) {
	return r.store.FindByCredentials(ctx, email, password)
}

// GetByID returns the user with the given ID, or nil, nil.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.store.FindByID(ctx, id)
}
