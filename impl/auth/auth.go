package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"bklreg/lib/sl"
)

// CredentialChecker verifies an admin credential pair. Deployments inject
// the pair from configuration; nothing is compiled into the binary.
type CredentialChecker interface {
	Verify(username, password string) bool
}

// MarkerStore persists session markers so an authenticated session
// survives a process restart. No expiry is applied.
type MarkerStore interface {
	PutSession(ctx context.Context, token string) error
	HasSession(ctx context.Context, token string) (bool, error)
	DeleteSession(ctx context.Context, token string) error
}

// FixedCredentials checks against a single configured pair in constant
// time.
type FixedCredentials struct {
	Username string
	Password string
}

func (c FixedCredentials) Verify(username, password string) bool {
	if c.Username == "" || c.Password == "" {
		return false
	}
	u := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username))
	p := subtle.ConstantTimeCompare([]byte(password), []byte(c.Password))
	return u&p == 1
}

// Gate is the admin session gate: Unauthenticated <-> Authenticated,
// driven by Login and Logout, with the marker store deciding what a
// returning token is worth.
type Gate struct {
	creds   CredentialChecker
	markers MarkerStore
	log     *slog.Logger
}

func New(creds CredentialChecker, markers MarkerStore, log *slog.Logger) *Gate {
	return &Gate{
		creds:   creds,
		markers: markers,
		log:     log.With(sl.Module("auth")),
	}
}

// Login issues and persists a session token iff both credentials match.
// The failure message never reveals which field was wrong.
func (g *Gate) Login(ctx context.Context, username, password string) (string, error) {
	if g.markers == nil {
		return "", fmt.Errorf("session store not connected")
	}
	if !g.creds.Verify(username, password) {
		g.log.Warn("login rejected", slog.String("username", username))
		return "", fmt.Errorf("invalid credentials")
	}
	token := uuid.New().String()
	if err := g.markers.PutSession(ctx, token); err != nil {
		return "", err
	}
	g.log.Info("admin logged in", slog.String("username", username))
	return token, nil
}

// Authenticate reports whether the token belongs to a live session.
func (g *Gate) Authenticate(ctx context.Context, token string) (bool, error) {
	if g.markers == nil || token == "" {
		return false, nil
	}
	return g.markers.HasSession(ctx, token)
}

// Logout erases the persisted marker; the token is worthless afterwards.
func (g *Gate) Logout(ctx context.Context, token string) error {
	if g.markers == nil {
		return fmt.Errorf("session store not connected")
	}
	if err := g.markers.DeleteSession(ctx, token); err != nil {
		return err
	}
	g.log.Info("admin logged out")
	return nil
}
