// Package auth resolves sign-in attempts to club members and issues the
// session tokens that carry their identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/hhsantos/flight-calendar/internal/config"
	"github.com/hhsantos/flight-calendar/internal/database"
	"github.com/hhsantos/flight-calendar/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultName       = "Usuario"
	minPasswordLength = 8
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingEmail       = errors.New("email is required")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = fmt.Errorf("password must have at least %d characters", minPasswordLength)
	ErrInvalidEmail       = errors.New("invalid email address")
)

// Identity is what a federated provider tells us about a user
type Identity struct {
	Subject string
	Email   string
	Name    string
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Adapter turns sign-in attempts into principals
type Adapter struct {
	repo *database.Repository
	mode config.CredentialsMode
}

// NewAdapter creates an Adapter. An empty mode means trusted.
func NewAdapter(repo *database.Repository, mode config.CredentialsMode) *Adapter {
	if mode == "" {
		mode = config.CredentialsTrusted
	}
	return &Adapter{repo: repo, mode: mode}
}

// Mode returns the credentials mode in effect
func (a *Adapter) Mode() config.CredentialsMode {
	return a.mode
}

// SignInFederated returns the member with the identity's e-mail, creating a
// pilot on first sign-in. Lookup and creation happen in one store update so
// two simultaneous first sign-ins produce one user.
func (a *Adapter) SignInFederated(ctx context.Context, id Identity) (*models.Principal, error) {
	email := strings.TrimSpace(id.Email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = defaultName
	}

	var (
		user    models.User
		created bool
	)
	err := a.repo.Apply(ctx, func(tx *database.Tx) error {
		if u := tx.UserByEmail(email); u != nil {
			user = *u
			return nil
		}
		user = tx.AddUser(models.User{Name: name, Email: email, Role: models.RolePilot})
		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		slog.Info("auth_event", "event", "user_provisioned", "user_id", user.ID, "email", user.Email)
	}
	slog.Info("auth_event", "event", "federated_sign_in", "user_id", user.ID, "subject", id.Subject)
	return user.Principal(), nil
}

// SignInCredentials resolves an e-mail and password pair. A stored hash is
// always checked. Users without one can only sign in in trusted mode, where
// the password only has to be present.
func (a *Adapter) SignInCredentials(ctx context.Context, email, password string) (*models.Principal, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := a.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		slog.Info("auth_event", "event", "credentials_rejected", "reason", "unknown_email")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	switch {
	case user.PasswordHash != "":
		if !CheckPassword(user.PasswordHash, password) {
			slog.Info("auth_event", "event", "credentials_rejected", "reason", "password_mismatch", "user_id", user.ID)
			return nil, ErrInvalidCredentials
		}
	case a.mode == config.CredentialsVerified:
		slog.Info("auth_event", "event", "credentials_rejected", "reason", "no_password", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	slog.Info("auth_event", "event", "credentials_sign_in", "user_id", user.ID, "mode", a.mode)
	return user.Principal(), nil
}

// Register creates a pilot with a hashed password
func (a *Adapter) Register(ctx context.Context, name, email, password string) (*models.Principal, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultName
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user models.User
	err = a.repo.Apply(ctx, func(tx *database.Tx) error {
		if tx.UserByEmail(email) != nil {
			return ErrEmailTaken
		}
		user = tx.AddUser(models.User{
			Name:         name,
			Email:        email,
			Role:         models.RolePilot,
			PasswordHash: hash,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("auth_event", "event", "user_registered", "user_id", user.ID, "email", user.Email)
	return user.Principal(), nil
}
