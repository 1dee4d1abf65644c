package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/highlandgames/gathering/internal/database"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminNotConfigured = errors.New("admin email and password must both be set")
)

// AdminStore persists the admin credential.
type AdminStore interface {
	UpsertAdmin(ctx context.Context, email, passwordHash string) (*database.User, error)
}

// UserLookup finds users by email, ignoring case.
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*database.User, error)
}

// ReconcileAdmin makes the configured credential pair the admin login. Whatever is
// configured wins: an existing row with that email gets the new hash and the admin role.
func ReconcileAdmin(ctx context.Context, store AdminStore, email, password string) (*database.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrAdminNotConfigured
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}

	user, err := store.UpsertAdmin(ctx, email, hash)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// checkPassword is CheckPassword, replaceable in tests.
var checkPassword = CheckPassword

// dummyHash is a valid hash at the current DefaultParams that matches no real password.
var dummyHash = sync.OnceValue(func() string {
	hash, err := HashPassword("no user has this password")
	if err != nil {
		return ""
	}
	return hash
})

// Authenticator exchanges an email/password pair for a bearer token.
type Authenticator struct {
	users  UserLookup
	tokens *TokenManager
}

func NewAuthenticator(users UserLookup, tokens *TokenManager) *Authenticator {
	return &Authenticator{users: users, tokens: tokens}
}

// Authenticate verifies the credentials and returns a signed token for the user.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (string, *database.User, error) {
	if !a.tokens.Configured() {
		return "", nil, ErrMisconfigured
	}

	user, err := a.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", nil, fmt.Errorf("look up user: %w", err)
	}

	// An unknown email or a user without a password still pays for one hash
	// comparison, so response time does not reveal which emails exist.
	if user == nil || user.PasswordHash == "" {
		checkPassword(password, dummyHash())
		return "", nil, ErrInvalidCredentials
	}
	if !checkPassword(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, _, err := a.tokens.Generate(Principal{UserID: user.ID, Email: user.Email, Role: string(user.Role)})
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	return token, user, nil
}
