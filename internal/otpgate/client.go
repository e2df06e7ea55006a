package otpgate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/biter777/countries"

	"bklreg/entity"
	"bklreg/lib/sl"
)

// Client talks to the SMS verification gateway. A challenge is single-use:
// once confirmed (or failed) on the gateway side it cannot be replayed, so
// a failed persistence after confirmation requires a fresh challenge.
type Client struct {
	hc       *http.Client
	baseURL  string
	apiKey   string
	senderID string
	dialCode string
	log      *slog.Logger

	// the gateway requires a one-time session handshake before the first
	// challenge request of a process lifetime
	setup        sync.Once
	sessionToken string
	setupErr     error
}

type Config struct {
	BaseUrl  string
	ApiKey   string
	Country  string
	SenderId string
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		hc:       &http.Client{Timeout: 10 * time.Second},
		baseURL:  cfg.BaseUrl,
		apiKey:   cfg.ApiKey,
		senderID: cfg.SenderId,
		dialCode: dialCode(cfg.Country),
		log:      logger.With(sl.Module("otpgate")),
	}
}

// dialCode resolves the country's international prefix, e.g. "IN" -> "+91".
func dialCode(country string) string {
	c := countries.ByName(country)
	if c == countries.Unknown {
		c = countries.India
	}
	codes := c.CallCodes()
	if len(codes) == 0 {
		return "+91"
	}
	return fmt.Sprintf("+%d", int64(codes[0]))
}

// RequestChallenge dispatches a verification code to the device and returns
// the challenge id to confirm against. The 10-digit national number gets
// the dial code prefixed here and only here; the stored record never
// carries it.
func (c *Client) RequestChallenge(ctx context.Context, mobile string) (string, error) {
	if err := c.ensureSession(ctx); err != nil {
		return "", &entity.ChallengeError{Reason: err}
	}

	payload := map[string]string{
		"phone":  c.dialCode + mobile,
		"sender": c.senderID,
	}
	body, status, err := c.request(ctx, "/v1/otp/send", payload)
	if err != nil {
		return "", &entity.ChallengeError{Reason: err}
	}
	if status >= 300 {
		return "", &entity.ChallengeError{Reason: fmt.Errorf("gateway status %d: %s", status, body)}
	}

	var resp struct {
		ChallengeID string `json:"challenge_id"`
	}
	if err = json.Unmarshal(body, &resp); err != nil {
		return "", &entity.ChallengeError{Reason: fmt.Errorf("decode response: %w", err)}
	}
	if resp.ChallengeID == "" {
		return "", &entity.ChallengeError{Reason: fmt.Errorf("gateway returned no challenge id")}
	}
	c.log.Debug("challenge requested", sl.Secret("challenge", resp.ChallengeID))
	return resp.ChallengeID, nil
}

// ConfirmChallenge checks the user-entered code. Any gateway rejection is a
// ConfirmError (wrong or expired code); transport failures too, since the
// challenge state on the gateway is unknown afterwards.
func (c *Client) ConfirmChallenge(ctx context.Context, challengeID, code string) error {
	payload := map[string]string{
		"challenge_id": challengeID,
		"code":         code,
	}
	body, status, err := c.request(ctx, "/v1/otp/verify", payload)
	if err != nil {
		return &entity.ConfirmError{Reason: err}
	}
	if status >= 300 {
		return &entity.ConfirmError{Reason: fmt.Errorf("gateway status %d: %s", status, body)}
	}

	var resp struct {
		Verified bool `json:"verified"`
	}
	if err = json.Unmarshal(body, &resp); err != nil {
		return &entity.ConfirmError{Reason: fmt.Errorf("decode response: %w", err)}
	}
	if !resp.Verified {
		return &entity.ConfirmError{Reason: fmt.Errorf("code rejected")}
	}
	return nil
}

// ensureSession performs the one-time gateway handshake. A failed handshake
// is remembered and re-surfaced on every subsequent send; the process has
// to restart to retry it, same as reloading the page in the original flow.
func (c *Client) ensureSession(ctx context.Context) error {
	c.setup.Do(func() {
		body, status, err := c.request(ctx, "/v1/session", map[string]string{})
		if err != nil {
			c.setupErr = fmt.Errorf("session handshake: %w", err)
			return
		}
		if status >= 300 {
			c.setupErr = fmt.Errorf("session handshake: gateway status %d: %s", status, body)
			return
		}
		var resp struct {
			SessionToken string `json:"session_token"`
		}
		if err = json.Unmarshal(body, &resp); err != nil {
			c.setupErr = fmt.Errorf("session handshake: decode: %w", err)
			return
		}
		c.sessionToken = resp.SessionToken
		c.log.Info("gateway session established")
	})
	return c.setupErr
}

func (c *Client) request(ctx context.Context, path string, payload interface{}) ([]byte, int, error) {
	log := c.log.With(slog.String("path", path))

	status := 0
	t1 := time.Now()
	defer func() {
		log.Debug("gateway request completed",
			slog.String("duration", fmt.Sprintf("%.3fms", float64(time.Since(t1))/float64(time.Millisecond))),
			slog.Int("status", status))
	}()

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authkey", c.apiKey)
	if c.sessionToken != "" {
		req.Header.Set("X-Session-Token", c.sessionToken)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	status = resp.StatusCode
	return body, status, nil
}
