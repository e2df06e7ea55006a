package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"bklreg/entity"
	"bklreg/impl/dashboard"
	"bklreg/lib/api/response"
	"bklreg/lib/sl"
)

type Core interface {
	Registrations(ctx context.Context, term string) ([]entity.RegistrationRow, error)
	ExportRegistrations(ctx context.Context, w io.Writer, term string) error
	SetRegistrationStatus(ctx context.Context, key string, status entity.Status) error
	DeleteRegistration(ctx context.Context, key string) error
	RegistrationStats(ctx context.Context) (entity.Stats, error)
}

// List returns the registrations matching the optional search term, each
// with its gift rank over the full set.
func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.admin")
		term := r.URL.Query().Get("search")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("dashboard not available")
			render.Status(r, 503)
			render.JSON(w, r, response.Error("Dashboard not available"))
			return
		}

		rows, err := handler.Registrations(r.Context(), term)
		if err != nil {
			logger.Error("list registrations", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Failed to fetch registrations"))
			return
		}
		logger.Debug("registrations listed", slog.Int("count", len(rows)))

		render.JSON(w, r, response.Ok(rows))
	}
}

// Export streams the filtered set as a CSV attachment.
func Export(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.admin")
		term := r.URL.Query().Get("search")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("dashboard not available")
			render.Status(r, 503)
			render.JSON(w, r, response.Error("Dashboard not available"))
			return
		}

		// the set must be loaded before export; List and Export share the
		// same loaded view, so refresh here as well
		if _, err := handler.Registrations(r.Context(), term); err != nil {
			logger.Error("refresh before export", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Failed to fetch registrations"))
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", dashboard.ExportFilename()))

		if err := handler.ExportRegistrations(r.Context(), w, term); err != nil {
			logger.Error("export csv", sl.Err(err))
			return
		}
		logger.Info("csv export served")
	}
}

// SetStatus applies a moderation status to one record.
func SetStatus(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.admin")
		key := chi.URLParam(r, "id")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("key", key),
		)

		if handler == nil {
			logger.Error("dashboard not available")
			render.Status(r, 503)
			render.JSON(w, r, response.Error("Dashboard not available"))
			return
		}

		var update entity.StatusUpdate
		if err := render.Bind(r, &update); err != nil {
			logger.Warn("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		if err := handler.SetRegistrationStatus(r.Context(), key, update.Status); err != nil {
			logger.Error("set status", sl.Err(err))
			render.Status(r, storeStatus(err))
			render.JSON(w, r, response.Error("Failed to update status"))
			return
		}
		logger.Debug("status updated", slog.String("status", string(update.Status)))

		render.JSON(w, r, response.Ok(nil))
	}
}

// Delete permanently removes one record.
func Delete(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.admin")
		key := chi.URLParam(r, "id")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("key", key),
		)

		if handler == nil {
			logger.Error("dashboard not available")
			render.Status(r, 503)
			render.JSON(w, r, response.Error("Dashboard not available"))
			return
		}

		if err := handler.DeleteRegistration(r.Context(), key); err != nil {
			logger.Error("delete registration", sl.Err(err))
			render.Status(r, storeStatus(err))
			render.JSON(w, r, response.Error("Failed to delete registration"))
			return
		}
		logger.Info("registration deleted")

		render.JSON(w, r, response.Ok(nil))
	}
}

// Stats serves the dashboard summary cards.
func Stats(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.admin")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("dashboard not available")
			render.Status(r, 503)
			render.JSON(w, r, response.Error("Dashboard not available"))
			return
		}

		stats, err := handler.RegistrationStats(r.Context())
		if err != nil {
			logger.Error("stats", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Failed to fetch stats"))
			return
		}

		render.JSON(w, r, response.Ok(stats))
	}
}

func storeStatus(err error) int {
	var validationErr *entity.ValidationError
	if errors.As(err, &validationErr) {
		return 400
	}
	return 500
}
