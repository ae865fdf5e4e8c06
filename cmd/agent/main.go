// Package main is the entrypoint for the Debrief agent, the local
// orchestration layer between the UI and the Debrief backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calebmorris/debrief/internal/api"
	"github.com/calebmorris/debrief/internal/api/handler"
	mw "github.com/calebmorris/debrief/internal/api/middleware"
	"github.com/calebmorris/debrief/internal/api/response"
	"github.com/calebmorris/debrief/internal/backend"
	"github.com/calebmorris/debrief/internal/cache"
	"github.com/calebmorris/debrief/internal/config"
	"github.com/calebmorris/debrief/internal/jobs"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using process environment")
	}

	if err := run(); err != nil {
		slog.Error("agent failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "backend", cfg.Backend.BaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 3. Create backend client; the token is bound here once, every later
	// caller including the deferred regeneration lane reuses it.
	backendClient := backend.NewHTTPClient(cfg.Backend.BaseURL, cfg.Backend.APIToken, cfg.Backend.Timeout)

	// 4. Build the session manager around the read-through recording source
	recordings := jobs.NewCachedRecordingSource(backendClient, redisCache)
	manager := jobs.NewManager(ctx, backendClient, recordings, cfg.Jobs.PollInterval)
	defer manager.Close()

	// 5. Build router with dependencies
	deps := api.Dependencies{
		RateLimit: mw.NewRateLimit(redisCache, cfg.Jobs.RateLimitPerMin),

		HealthHandler: healthHandler(backendClient, redisCache),

		ListJobsHandler:    handler.NewListJobsHandler(manager),
		SubmitJobHandler:   handler.NewSubmitJobHandler(manager),
		RegenerateHandler:  handler.NewRegenerateHandler(manager),
		UpdateJobHandler:   handler.NewUpdateJobHandler(manager),
		DeleteJobHandler:   handler.NewDeleteJobHandler(manager),
		CompletionsHandler: handler.NewCompletionsHandler(manager),
	}

	router := api.NewRouter(deps)

	// 6. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	// No WriteTimeout: the completions stream is long-lived.
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("agent listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("agent stopped gracefully")
	return nil
}

// healthHandler checks backend and cache connectivity.
func healthHandler(be backend.Client, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"backend": "ok",
			"cache":   "ok",
		}

		if err := be.Ping(r.Context()); err != nil {
			checks["backend"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["backend"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
