package otpgate

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bklreg/entity"
)

type gateway struct {
	sessions   int
	sends      int
	verifies   int
	lastPhone  string
	sendStatus int
	goodCode   string
}

func (g *gateway) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/session", func(w http.ResponseWriter, r *http.Request) {
		g.sessions++
		_ = json.NewEncoder(w).Encode(map[string]string{"session_token": "sess-1"})
	})
	mux.HandleFunc("/v1/otp/send", func(w http.ResponseWriter, r *http.Request) {
		g.sends++
		if r.Header.Get("X-Session-Token") != "sess-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req map[string]string
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		g.lastPhone = req["phone"]
		if g.sendStatus != 0 {
			w.WriteHeader(g.sendStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"challenge_id": "ch-1"})
	})
	mux.HandleFunc("/v1/otp/verify", func(w http.ResponseWriter, r *http.Request) {
		g.verifies++
		var req map[string]string
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		_ = json.NewEncoder(w).Encode(map[string]bool{"verified": req["code"] == g.goodCode})
	})
	return mux
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, g *gateway) *Client {
	t.Helper()
	srv := httptest.NewServer(g.handler())
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseUrl:  srv.URL,
		ApiKey:   "test-key",
		Country:  "IN",
		SenderId: "BKLREG",
	}, discard())
}

func TestRequestChallenge(t *testing.T) {
	g := &gateway{goodCode: "123456"}
	c := newTestClient(t, g)

	id, err := c.RequestChallenge(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, "ch-1", id)
	assert.Equal(t, "+919876543210", g.lastPhone,
		"dial code is prefixed at the gateway boundary only")
}

func TestSessionHandshakeRunsOnce(t *testing.T) {
	g := &gateway{goodCode: "123456"}
	c := newTestClient(t, g)

	for i := 0; i < 3; i++ {
		_, err := c.RequestChallenge(context.Background(), "9876543210")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, g.sessions, "handshake happens once per process lifetime")
	assert.Equal(t, 3, g.sends)
}

func TestRequestChallengeGatewayFailure(t *testing.T) {
	g := &gateway{sendStatus: http.StatusTooManyRequests}
	c := newTestClient(t, g)

	_, err := c.RequestChallenge(context.Background(), "9876543210")
	var challengeErr *entity.ChallengeError
	require.ErrorAs(t, err, &challengeErr)
}

func TestConfirmChallenge(t *testing.T) {
	g := &gateway{goodCode: "123456"}
	c := newTestClient(t, g)

	_, err := c.RequestChallenge(context.Background(), "9876543210")
	require.NoError(t, err)

	require.NoError(t, c.ConfirmChallenge(context.Background(), "ch-1", "123456"))

	err = c.ConfirmChallenge(context.Background(), "ch-1", "000000")
	var confirmErr *entity.ConfirmError
	require.ErrorAs(t, err, &confirmErr)
}

func TestDialCodeFallback(t *testing.T) {
	assert.Equal(t, "+91", dialCode("IN"))
	assert.Equal(t, "+91", dialCode("India"))
	assert.Equal(t, "+91", dialCode("Atlantis"))
}
