package repository

import (
	"context"

	"predicta/internal/store"
	"predicta/models"
)

var (
	ErrStorage    = store.ErrStorage
	ErrEmailTaken = store.ErrEmailTaken
)

// UserRepositoryI is the domain view of the credential store. Lookups return
// nil, nil when nothing matches.
type UserRepositoryI interface {
	AddUser(ctx context.Context, u models.NewUser) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// CredentialStore is what UserRepository needs from the storage layer.
type CredentialStore interface {
	Insert(ctx context.Context, u models.NewUser) (int64, error)
	FindByCredentials(ctx context.Context, email, password string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

var (
	_ UserRepositoryI = (*UserRepository)(nil)
	_ CredentialStore = (*store.CredentialStore)(nil)
)
