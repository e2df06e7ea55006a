package register

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"bklreg/entity"
	"bklreg/lib/api/response"
	"bklreg/lib/sl"
)

type Core interface {
	RegistrationSendCode(ctx context.Context, form entity.SubmissionForm) (string, error)
	RegistrationConfirm(ctx context.Context, challengeID, code string) (*entity.Registration, error)
}

// SendOtp validates the form and triggers the OTP dispatch. Validation
// failures never reach the gateway.
func SendOtp(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.register")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("registration service not available")
			render.Status(r, 503)
			render.JSON(w, r, response.Error("Registration service not available"))
			return
		}

		var form entity.SubmissionForm
		if err := render.Bind(r, &form); err != nil {
			logger.Warn("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(sl.Secret("mobile", form.Mobile))

		challengeID, err := handler.RegistrationSendCode(r.Context(), form)
		if err != nil {
			logger.Error("send code", sl.Err(err))
			render.Status(r, failureStatus(err))
			render.JSON(w, r, response.Error(failureMessage(err)))
			return
		}
		logger.Debug("otp dispatched")

		render.JSON(w, r, response.Ok(map[string]string{"challenge_id": challengeID}))
	}
}

// Confirm checks the OTP code and persists the registration; the assigned
// registration number goes back to the submitter.
func Confirm(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.register")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("registration service not available")
			render.Status(r, 503)
			render.JSON(w, r, response.Error("Registration service not available"))
			return
		}

		var req entity.ConfirmRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Warn("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		reg, err := handler.RegistrationConfirm(r.Context(), req.ChallengeID, req.Code)
		if err != nil {
			logger.Error("confirm code", sl.Err(err))
			render.Status(r, failureStatus(err))
			render.JSON(w, r, response.Error(failureMessage(err)))
			return
		}
		logger.With(
			slog.String("registration_number", reg.RegistrationNumber),
		).Info("registration created")

		render.JSON(w, r, response.Ok(reg))
	}
}

// failureStatus maps the error taxonomy onto HTTP statuses: caller
// mistakes are 400, store trouble is 500.
func failureStatus(err error) int {
	var validationErr *entity.ValidationError
	var challengeErr *entity.ChallengeError
	var confirmErr *entity.ConfirmError
	switch {
	case errors.As(err, &validationErr),
		errors.As(err, &challengeErr),
		errors.As(err, &confirmErr):
		return 400
	default:
		return 500
	}
}

// failureMessage keeps store internals out of user-facing responses.
func failureMessage(err error) string {
	var storeErr *entity.StoreError
	if errors.As(err, &storeErr) {
		return "Registration could not be saved, please try again"
	}
	return fmt.Sprintf("Request failed: %v", err)
}
