package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"bklreg/entity"
	"bklreg/lib/api/cont"
	"bklreg/lib/api/response"
	"bklreg/lib/sl"
)

type Core interface {
	AdminLogin(ctx context.Context, username, password string) (string, error)
	AdminLogout(ctx context.Context, token string) error
}

// Login exchanges the credential pair for a session token. A mismatch gets
// one generic failure, never a hint at which field was wrong.
func Login(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.session")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("auth service not available")
			render.Status(r, 503)
			render.JSON(w, r, response.Error("Auth service not available"))
			return
		}

		var creds entity.AdminCredentials
		if err := render.Bind(r, &creds); err != nil {
			logger.Warn("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		token, err := handler.AdminLogin(r.Context(), creds.Username, creds.Password)
		if err != nil {
			// a marker store outage is not a credential mismatch
			var storeErr *entity.StoreError
			if errors.As(err, &storeErr) {
				logger.Error("login session store", sl.Err(err))
				render.Status(r, 500)
				render.JSON(w, r, response.Error("Login failed, please try again"))
				return
			}
			logger.Warn("login failed", sl.Err(err))
			render.Status(r, 401)
			render.JSON(w, r, response.Error("Invalid credentials"))
			return
		}
		logger.Info("admin login", slog.String("username", creds.Username))

		render.JSON(w, r, response.Ok(map[string]string{"token": token}))
	}
}

// Logout erases the session marker behind the caller's token.
func Logout(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.session")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("auth service not available")
			render.Status(r, 503)
			render.JSON(w, r, response.Error("Auth service not available"))
			return
		}

		token := cont.GetToken(r.Context())
		if err := handler.AdminLogout(r.Context(), token); err != nil {
			logger.Error("logout", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Logout failed"))
			return
		}
		logger.Info("admin logout")

		render.JSON(w, r, response.Ok(nil))
	}
}
