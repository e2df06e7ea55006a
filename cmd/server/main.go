package main

import (
	"flag"
	"log/slog"
	"path/filepath"

	"bklreg/impl/auth"
	"bklreg/impl/core"
	"bklreg/impl/dashboard"
	"bklreg/impl/workflow"
	"bklreg/internal/config"
	"bklreg/internal/database"
	"bklreg/internal/http-server/api"
	"bklreg/internal/notify"
	"bklreg/internal/otpgate"
	"bklreg/lib/logger"
	"bklreg/lib/sl"
)

const logFileName = "bklreg.log"

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	log.Info("starting bklreg", slog.String("config", *configPath), slog.String("env", conf.Env))

	notifier, err := notify.New(conf, log)
	if err != nil {
		log.Error("telegram notifier", sl.Err(err))
	}
	if notifier != nil {
		log = slog.New(logger.NewTelegramHandler(log.Handler(), notifier, slog.LevelWarn))
		log.Info("telegram alerts enabled")
	}

	mongo := database.NewMongoClient(conf)
	if mongo == nil {
		log.Warn("mongo disabled; registrations cannot be persisted")
	}

	verifier := otpgate.NewClient(otpgate.Config(conf.Otp), log)

	var flow *workflow.Workflow
	var dash *dashboard.Dashboard
	var gate *auth.Gate
	if mongo != nil {
		flow = workflow.New(verifier, mongo, log)
		dash = dashboard.New(mongo, log)
		gate = auth.New(auth.FixedCredentials{
			Username: conf.Admin.Username,
			Password: conf.Admin.Password,
		}, mongo, log)
	}

	handler := core.New(flow, dash, gate, log)

	if err = api.New(conf, log, handler); err != nil {
		log.Error("api server stopped", sl.Err(err))
	}
}
