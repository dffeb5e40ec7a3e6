/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (defaults, config.yml, .env, environment, flags)
  3. Build the logrus logger
  4. Initialize SQLite store
  5. Create API handler, optionally seed a demo scenario
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Configuration file (default: config.yml when present)
  -port    HTTP server port, overrides app.port
  -db      SQLite database path, overrides database.path
           Use ":memory:" for in-memory database
  -seed    Load a demo scenario at startup ("demo-org" or "year-end")

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  ./server -db="./data/leave.db"
  ./server -db=":memory:" -seed=demo-org
  APP_ENV=prod JWT_SECRET=... ./server -port=3000

SEE ALSO:
  - config/config.go: Configuration layers
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/logging"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	// Flags
	configFile := flag.String("config", "", "configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides app.port)")
	dbPath := flag.String("db", "", "SQLite database path (overrides database.path)")
	seed := flag.String("seed", "", "demo scenario to load at startup")
	flag.Parse()

	var files []string
	if *configFile != "" {
		files = append(files, *configFile)
	}
	conf, err := config.Load(files...)
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}
	if *port != 0 {
		conf.App.Port = *port
	}
	if *dbPath != "" {
		conf.Database.Path = *dbPath
	}
	if err := conf.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := logging.New(conf.Log.Level, conf.Log.Format)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	if conf.Auth.JWTSecret == "" {
		logger.Warn("auth.jwtsecret is empty, using the development secret")
	}

	// Initialize store
	store, err := sqlite.New(conf.Database.Path, sqlite.WithBusyTimeout(conf.Database.BusyTimeoutMs))
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	// Initialize handler
	tokens := auth.NewTokenIssuer(conf.Secret(), conf.Auth.Issuer, conf.Auth.TokenTTL)
	handler := api.NewHandler(store, tokens, logger)
	handler.HideInternalErrors = conf.IsProd()
	if handler.Leaves.Location, err = conf.Location(); err != nil {
		logger.WithError(err).Fatal("invalid attendance time zone")
	}

	if *seed != "" {
		if _, err := handler.Seed(context.Background(), *seed); err != nil {
			logger.WithError(err).Fatal("failed to seed scenario")
		}
		logger.WithField("scenario", *seed).WithField("password", api.DemoPassword).Info("demo data loaded")
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", conf.App.Port),
		Handler:      api.NewRouter(handler, conf.CORS.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.WithFields(log.Fields{"port": conf.App.Port, "env": conf.App.Env, "db": conf.Database.Path}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
		return
	}

	logger.Info("server stopped")
}
