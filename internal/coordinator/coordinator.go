// Package coordinator mediates registration and login requests from the UI
// and hands their outcomes back as return values or single-use channels.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"predicta/internal/metrics"
	"predicta/models"
	"predicta/repository"
)

// ErrInvalidRole is returned by Register when the role is not User or Admin.
var ErrInvalidRole = errors.New("invalid role")

// RegisterInput is what the registration form submits.
type RegisterInput struct {
	Username string
	Email    string
	Role     string
	Password string
}

// LoginOutcome is the single result of an asynchronous login. User is nil on
// a credential miss; Err is set only when the lookup itself failed.
type LoginOutcome struct {
	User *models.User
	Err  error
}

// Found reports whether the login resolved to a user.
func (o LoginOutcome) Found() bool { return o.Err == nil && o.User != nil }

// RegisterOutcome is the single result of an asynchronous registration.
type RegisterOutcome struct {
	User *models.User
	Err  error
}

// Coordinator owns no persistent state; it forwards to the repository.
type Coordinator struct {
	users   repository.UserRepositoryI
	log     *zap.Logger
	metrics *metrics.Auth
}

// New builds a Coordinator. log and m may be nil.
func New(users repository.UserRepositoryI, log *zap.Logger, m *metrics.Auth) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{users: users, log: log.Named("coordinator"), metrics: m}
}

// Register stores a new user. The role must be given explicitly; field
// presence is checked by the form layer before this is called.
func (c *Coordinator) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	const op = "coordinator.Register"
	started := time.Now()

	role, err := models.ParseRole(in.Role)
	if err != nil {
		c.metrics.ObserveRegister(metrics.ResultInvalid, started)
		return nil, fmt.Errorf("%s: %w: %q", op, ErrInvalidRole, in.Role)
	}

	u, err := c.users.AddUser(ctx, models.NewUser{
		Username: in.Username,
		Email:    in.Email,
		Role:     role,
		Password: in.Password,
	})
	if err != nil {
		result := metrics.ResultError
		if errors.Is(err, repository.ErrEmailTaken) {
			result = metrics.ResultInvalid
		}
		c.metrics.ObserveRegister(result, started)
		c.log.Warn("registration failed", zap.String("username", in.Username), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.metrics.ObserveRegister(metrics.ResultOK, started)
	c.log.Info("user registered", zap.Int64("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Login looks up the user by exact email and password. A miss returns
// nil, nil; an error means the store could not answer.
func (c *Coordinator) Login(ctx context.Context, email, password string) (*models.User, error) {
	const op = "coordinator.Login"
	started := time.Now()

	u, err := c.users.Login(ctx, email, password)
	switch {
	case err != nil:
		c.metrics.ObserveLogin(metrics.ResultError, started)
		c.log.Error("login lookup failed", zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	case u == nil:
		c.metrics.ObserveLogin(metrics.ResultMiss, started)
		c.log.Debug("login miss", zap.String("email", email))
		return nil, nil
	default:
		c.metrics.ObserveLogin(metrics.ResultOK, started)
		c.log.Info("user logged in", zap.Int64("user_id", u.ID))
		return u, nil
	}
}

// LoginAsync runs Login on its own goroutine. The returned channel yields
// exactly one outcome and is then closed; it is buffered, so a caller that
// stops listening does not block or leak the worker.
func (c *Coordinator) LoginAsync(ctx context.Context, email, password string) <-chan LoginOutcome {
	out := make(chan LoginOutcome, 1)
	go func() {
		defer close(out)
		u, err := c.Login(ctx, email, password)
		out <- LoginOutcome{User: u, Err: err}
	}()
	return out
}

// RegisterAsync runs Register on its own goroutine with the same delivery
// guarantees as LoginAsync.
func (c *Coordinator) RegisterAsync(ctx context.Context, in RegisterInput) <-chan RegisterOutcome {
	out := make(chan RegisterOutcome, 1)
	go func() {
		defer close(out)
		u, err := c.Register(ctx, in)
		out <- RegisterOutcome{User: u, Err: err}
	}()
	return out
}

// CurrentUser resolves a session's user id back to its stored record.
func (c *Coordinator) CurrentUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := c.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("coordinator.CurrentUser: %w", err)
	}
	return u, nil
}
