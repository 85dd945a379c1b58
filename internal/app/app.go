// Package app wires storage, password hashing and the conversation engine
// into the operations the HTTP surface exposes. One App is constructed at
// process start and injected into request handlers.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatterbox/internal/engine"
	"chatterbox/internal/store"
	"chatterbox/internal/util"
	"chatterbox/pkg/auth"
	"chatterbox/pkg/domain"
)

const minPasswordLength = 6

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	Store       store.UserStore
	Engine      *engine.Engine
}

// App is the core application service.
type App struct {
	store  store.UserStore
	engine *engine.Engine
}

// New constructs the application with database storage and the
// conversation engine.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("conversation engine required")
	}
	return &App{store: dataStore, engine: cfg.Engine}, nil
}

// Register validates the submitted form and creates the user. The store's
// unique indexes back the advisory existence check, so a concurrent
// duplicate registration surfaces as ErrUserExists rather than a crash.
func (a *App) Register(username, email, password, confirm string) (domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" || password == "" {
		return domain.User{}, ErrMissingFields
	}
	if len(password) < minPasswordLength {
		return domain.User{}, ErrPasswordTooShort
	}
	if confirm != "" && confirm != password {
		return domain.User{}, ErrPasswordMismatch
	}

	exists, err := a.store.HasUser(username, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("check user: %w", err)
	}
	if exists {
		return domain.User{}, ErrUserExists
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           util.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.CreateUser(user); err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// Login validates credentials against the stored hash.
func (a *App) Login(email, password string) (domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Chat drives one conversation turn for the user, streaming reply
// fragments to emit. The thread key is derived from the username.
func (a *App) Chat(ctx context.Context, username, message string, emit func(string) error) error {
	return a.engine.Stream(ctx, domain.ThreadKey(username), message, emit)
}

// ThreadHistory exposes the accumulated messages of a user's thread.
func (a *App) ThreadHistory(username string) []domain.ChatMessage {
	return a.engine.History(domain.ThreadKey(username))
}
