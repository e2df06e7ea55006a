package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"bklreg/entity"
	"bklreg/impl/auth"
	"bklreg/impl/dashboard"
	"bklreg/impl/workflow"
	"bklreg/lib/sl"
)

// Core composes the submission workflow, the admin dashboard and the
// session gate, and implements the Core interfaces the HTTP handlers
// declare.
type Core struct {
	flow *workflow.Workflow
	dash *dashboard.Dashboard
	gate *auth.Gate
	log  *slog.Logger
}

func New(flow *workflow.Workflow, dash *dashboard.Dashboard, gate *auth.Gate, log *slog.Logger) *Core {
	return &Core{
		flow: flow,
		dash: dash,
		gate: gate,
		log:  log.With(sl.Module("core")),
	}
}

func (c *Core) RegistrationSendCode(ctx context.Context, form entity.SubmissionForm) (string, error) {
	if c.flow == nil {
		return "", fmt.Errorf("registration service not connected")
	}
	return c.flow.SendCode(ctx, form)
}

func (c *Core) RegistrationConfirm(ctx context.Context, challengeID, code string) (*entity.Registration, error) {
	if c.flow == nil {
		return nil, fmt.Errorf("registration service not connected")
	}
	return c.flow.SubmitCode(ctx, challengeID, code)
}

func (c *Core) AuthenticateByToken(ctx context.Context, token string) (bool, error) {
	if c.gate == nil {
		return false, fmt.Errorf("auth service not connected")
	}
	return c.gate.Authenticate(ctx, token)
}

func (c *Core) AdminLogin(ctx context.Context, username, password string) (string, error) {
	if c.gate == nil {
		return "", fmt.Errorf("auth service not connected")
	}
	return c.gate.Login(ctx, username, password)
}

func (c *Core) AdminLogout(ctx context.Context, token string) error {
	if c.gate == nil {
		return fmt.Errorf("auth service not connected")
	}
	return c.gate.Logout(ctx, token)
}

// Registrations refreshes the loaded set and returns the rows matching
// term. A failed refresh surfaces the error; the stale set stays loaded
// for the next attempt.
func (c *Core) Registrations(ctx context.Context, term string) ([]entity.RegistrationRow, error) {
	if c.dash == nil {
		return nil, fmt.Errorf("dashboard not connected")
	}
	if err := c.dash.Refresh(ctx); err != nil {
		return nil, err
	}
	return c.dash.Rows(term), nil
}

// ExportRegistrations writes the filtered rows as CSV from the currently
// loaded set.
func (c *Core) ExportRegistrations(_ context.Context, w io.Writer, term string) error {
	if c.dash == nil {
		return fmt.Errorf("dashboard not connected")
	}
	return c.dash.ExportCSV(w, term)
}

func (c *Core) SetRegistrationStatus(ctx context.Context, key string, status entity.Status) error {
	if c.dash == nil {
		return fmt.Errorf("dashboard not connected")
	}
	return c.dash.SetStatus(ctx, key, status)
}

func (c *Core) DeleteRegistration(ctx context.Context, key string) error {
	if c.dash == nil {
		return fmt.Errorf("dashboard not connected")
	}
	return c.dash.Delete(ctx, key)
}

func (c *Core) RegistrationStats(ctx context.Context) (entity.Stats, error) {
	if c.dash == nil {
		return entity.Stats{}, fmt.Errorf("dashboard not connected")
	}
	if err := c.dash.Refresh(ctx); err != nil {
		return entity.Stats{}, err
	}
	return c.dash.Stats(), nil
}
