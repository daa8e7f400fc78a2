package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/malemalice/karang-sqlite-http/internal/config"
	"github.com/malemalice/karang-sqlite-http/internal/database"
	"github.com/malemalice/karang-sqlite-http/internal/handlers"
	"github.com/malemalice/karang-sqlite-http/internal/query"
	"github.com/malemalice/karang-sqlite-http/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("KARANG_")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := logger.Get()

	// Wire the query pipeline
	provisioner := database.NewProvisioner(cfg.Database.Path)
	pipeline := query.NewPipeline(provisioner, cfg.Query)

	// Initialize handlers
	queryHandler := handlers.NewQueryHandler(pipeline)
	healthHandler := handlers.NewHealthHandler(provisioner)

	router := handlers.NewRouter(queryHandler, healthHandler, cfg.Server.CORSOrigin)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info("query API server starting",
			"addr", server.Addr,
			"database", cfg.Database.Path,
			"timeout_s", cfg.Query.TimeoutSeconds,
			"batch_size", cfg.Query.BatchSize,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn("shutdown timeout, forcing close", "error", err)
		server.Close()
	}
	log.Info("server stopped")
}
