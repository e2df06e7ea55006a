package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bklreg/entity"
)

type stubCore struct {
	loginErr   error
	logoutErr  error
	lastUser   string
	loggedOut  int
	loginCalls int
}

func (s *stubCore) AdminLogin(_ context.Context, username, _ string) (string, error) {
	s.loginCalls++
	s.lastUser = username
	if s.loginErr != nil {
		return "", s.loginErr
	}
	return "token-1", nil
}

func (s *stubCore) AdminLogout(_ context.Context, _ string) error {
	s.loggedOut++
	return s.logoutErr
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type envelope struct {
	Data          map[string]string `json:"data"`
	Success       bool              `json:"success"`
	StatusMessage string            `json:"status_message"`
}

func postLogin(t *testing.T, core *stubCore, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/login", Login(discard(), core))
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestLogin(t *testing.T) {
	core := &stubCore{}
	rec, env := postLogin(t, core, `{"username":"admin","password":"secret"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "token-1", env.Data["token"])
	assert.Equal(t, "admin", core.lastUser)
}

func TestLoginWrongCredentials(t *testing.T) {
	core := &stubCore{loginErr: fmt.Errorf("invalid credentials")}
	rec, env := postLogin(t, core, `{"username":"admin","password":"nope"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Invalid credentials", env.StatusMessage)
}

func TestLoginStoreFailure(t *testing.T) {
	core := &stubCore{loginErr: &entity.StoreError{Op: "session put", Reason: fmt.Errorf("primary down")}}
	rec, env := postLogin(t, core, `{"username":"admin","password":"secret"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code, "a store outage is not a credential mismatch")
	assert.False(t, env.Success)
	assert.NotEqual(t, "Invalid credentials", env.StatusMessage)
	assert.NotContains(t, env.StatusMessage, "primary down")
}

func TestLogout(t *testing.T) {
	core := &stubCore{}
	r := chi.NewRouter()
	r.Post("/logout", Logout(discard(), core))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, core.loggedOut)
}
