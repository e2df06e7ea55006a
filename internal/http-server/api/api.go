package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"bklreg/internal/config"
	"bklreg/internal/http-server/handlers/admin"
	"bklreg/internal/http-server/handlers/errors"
	"bklreg/internal/http-server/handlers/register"
	"bklreg/internal/http-server/handlers/session"
	"bklreg/internal/http-server/middleware/authenticate"
	"bklreg/internal/http-server/middleware/timeout"
	"bklreg/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	register.Core
	session.Core
	admin.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(timeout.Timeout(15))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/v1", func(rootApi chi.Router) {
		rootApi.Route("/register", func(reg chi.Router) {
			reg.Post("/otp", register.SendOtp(log, handler))
			reg.Post("/", register.Confirm(log, handler))
		})
		rootApi.Route("/admin", func(adm chi.Router) {
			adm.Post("/login", session.Login(log, handler))
			adm.Group(func(gated chi.Router) {
				gated.Use(authenticate.New(log, handler))
				gated.Post("/logout", session.Logout(log, handler))
				gated.Get("/stats", admin.Stats(log, handler))
				gated.Route("/registrations", func(regs chi.Router) {
					regs.Get("/", admin.List(log, handler))
					regs.Get("/export", admin.Export(log, handler))
					regs.Post("/{id}/status", admin.SetStatus(log, handler))
					regs.Delete("/{id}", admin.Delete(log, handler))
				})
			})
		})
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      router,
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
