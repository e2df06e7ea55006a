package authenticate

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"bklreg/lib/api/cont"
)

type stubGate struct {
	valid string
}

func (s *stubGate) AuthenticateByToken(_ context.Context, token string) (bool, error) {
	return token == s.valid, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serve(t *testing.T, authorization string) (*httptest.ResponseRecorder, *bool, *string) {
	t.Helper()
	reached := false
	seenToken := ""
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		seenToken = cont.GetToken(r.Context())
	})
	handler := New(discard(), &stubGate{valid: "good-token"})(next)

	req := httptest.NewRequest(http.MethodGet, "/registrations", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, &reached, &seenToken
}

func TestValidToken(t *testing.T) {
	rec, reached, seenToken := serve(t, "Bearer good-token")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *reached)
	assert.Equal(t, "good-token", *seenToken)
}

func TestUnknownToken(t *testing.T) {
	rec, reached, _ := serve(t, "Bearer stale-token")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}

func TestMissingHeader(t *testing.T) {
	rec, reached, _ := serve(t, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}

func TestBareBearerHeader(t *testing.T) {
	// a header that is just the scheme must get the 401, not a panic
	rec, reached, _ := serve(t, "Bearer")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
	assert.Contains(t, rec.Body.String(), "Token not found")
}

func TestBearerWithEmptyToken(t *testing.T) {
	rec, reached, _ := serve(t, "Bearer ")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}
