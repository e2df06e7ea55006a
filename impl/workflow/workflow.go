package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"bklreg/entity"
	"bklreg/lib/sl"
	"bklreg/lib/validate"
)

// State of one submission. A submission starts in Editing, moves to
// OtpPending once a challenge is out, to Verifying while the code is being
// confirmed and the record persisted, and ends Completed. Failed is
// terminal for the attempt but never loses form data: the caller retries
// from Editing (or re-enters the code while the challenge is still live).
type State string

const (
	StateEditing    State = "editing"
	StateOtpPending State = "otp-pending"
	StateVerifying  State = "verifying"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Failure reasons surfaced to the caller.
const (
	ReasonChallengeRequestFailed = "challenge-request-failed"
	ReasonBadCode                = "bad-code"
	ReasonPersistFailed          = "persist-failed"
)

// PhoneVerifier issues and confirms OTP challenges. Challenges are
// single-use: a confirmed challenge cannot authorize a second persistence
// attempt.
type PhoneVerifier interface {
	RequestChallenge(ctx context.Context, mobile string) (string, error)
	ConfirmChallenge(ctx context.Context, challengeID, code string) error
}

// Store appends one registration record, assigning creation time and the
// registration number at write time.
type Store interface {
	SaveRegistration(ctx context.Context, reg *entity.Registration) (string, error)
}

// Submission is the per-attempt state machine. Concurrent submitters get
// independent submissions. While a submission is reachable through the
// pending registry, state transitions happen under the workflow mutex and
// the form is touched only by the goroutine holding the Verifying claim.
type Submission struct {
	state  State
	reason string
	form   entity.SubmissionForm
}

func (s *Submission) fail(reason string) {
	s.state = StateFailed
	s.reason = reason
}

// Workflow orchestrates field validation, OTP issuance, OTP confirmation
// and persistence. Pending submissions are keyed by their challenge id.
type Workflow struct {
	verifier PhoneVerifier
	store    Store
	log      *slog.Logger

	mu      sync.Mutex
	pending map[string]*Submission
}

func New(verifier PhoneVerifier, store Store, log *slog.Logger) *Workflow {
	return &Workflow{
		verifier: verifier,
		store:    store,
		log:      log.With(sl.Module("workflow")),
		pending:  make(map[string]*Submission),
	}
}

// validateForm runs the Editing-state preconditions: mobile exactly 10
// digits, the other four fields non-empty and well-formed. Runs before any
// backend call, both at send-code and at submit-code time.
func validateForm(form *entity.SubmissionForm) error {
	form.Mobile = entity.NormalizeMobile(form.Mobile)
	if err := validate.Struct(form); err != nil {
		return &entity.ValidationError{Reason: err}
	}
	return nil
}

// SendCode is the Editing -> OtpPending transition. On a provider failure
// the attempt fails with challenge-request-failed; nothing was persisted
// and the same form can be re-sent as is.
func (w *Workflow) SendCode(ctx context.Context, form entity.SubmissionForm) (string, error) {
	log := w.log.With(sl.Secret("mobile", form.Mobile))

	sub := &Submission{state: StateEditing, form: form}
	if err := validateForm(&sub.form); err != nil {
		log.Warn("form rejected", sl.Err(err))
		return "", err
	}

	challengeID, err := w.verifier.RequestChallenge(ctx, sub.form.Mobile)
	if err != nil {
		sub.fail(ReasonChallengeRequestFailed)
		log.Error("challenge request", sl.Err(err))
		return "", err
	}
	sub.state = StateOtpPending

	w.mu.Lock()
	w.pending[challengeID] = sub
	w.mu.Unlock()

	log.Debug("challenge issued")
	return challengeID, nil
}

// SubmitCode drives OtpPending -> Verifying -> Completed. Preconditions are
// re-checked against the stored form before the confirm call, guarding
// against a submission whose fields were edited after the OTP went out.
// The store append happens at most once per successful confirmation; a
// store failure consumes the challenge and the whole OTP cycle restarts.
func (w *Workflow) SubmitCode(ctx context.Context, challengeID, code string) (*entity.Registration, error) {
	if code == "" {
		return nil, &entity.ValidationError{Reason: fmt.Errorf("code is empty")}
	}

	sub, err := w.claim(challengeID)
	if err != nil {
		return nil, err
	}

	log := w.log.With(sl.Secret("mobile", sub.form.Mobile))

	if err = validateForm(&sub.form); err != nil {
		w.release(sub, "")
		log.Warn("form rejected at submit", sl.Err(err))
		return nil, err
	}

	if err = w.verifier.ConfirmChallenge(ctx, challengeID, code); err != nil {
		// the challenge may still be live; the submitter can re-enter the
		// code or request a fresh one
		w.release(sub, ReasonBadCode)
		log.Warn("code rejected", sl.Err(err))
		return nil, err
	}

	reg := sub.form.Registration(true)
	if _, err = w.store.SaveRegistration(ctx, reg); err != nil {
		w.finish(challengeID, sub, StateFailed, ReasonPersistFailed)
		log.Error("persist registration", sl.Err(err))
		return nil, err
	}

	w.finish(challengeID, sub, StateCompleted, "")
	log.Info("registration completed",
		slog.String("registration_number", reg.RegistrationNumber))
	return reg, nil
}

// claim moves a pending submission into Verifying. The caller becomes the
// only goroutine allowed to drive the submission until release or finish;
// a second submit on the same challenge is rejected instead of racing the
// first one to the confirm and append calls.
func (w *Workflow) claim(challengeID string) (*Submission, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sub, ok := w.pending[challengeID]
	if !ok {
		return nil, &entity.ConfirmError{Reason: fmt.Errorf("unknown or expired challenge")}
	}
	if sub.state == StateVerifying {
		return nil, &entity.ConfirmError{Reason: fmt.Errorf("verification already in progress")}
	}
	sub.state = StateVerifying
	sub.reason = ""
	return sub, nil
}

// release puts a claimed submission back to OtpPending so the code can be
// re-entered or a fresh challenge requested.
func (w *Workflow) release(sub *Submission, reason string) {
	w.mu.Lock()
	sub.state = StateOtpPending
	sub.reason = reason
	w.mu.Unlock()
}

// finish records the terminal state and forgets the challenge.
func (w *Workflow) finish(challengeID string, sub *Submission, state State, reason string) {
	w.mu.Lock()
	sub.state = state
	sub.reason = reason
	delete(w.pending, challengeID)
	w.mu.Unlock()
}
