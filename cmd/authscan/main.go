package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sreekar9601/getcovered-technical-task/api"
	"github.com/sreekar9601/getcovered-technical-task/browser"
	"github.com/sreekar9601/getcovered-technical-task/config"
	"github.com/sreekar9601/getcovered-technical-task/detector"
	"github.com/sreekar9601/getcovered-technical-task/fetcher"
	"github.com/sreekar9601/getcovered-technical-task/llm"
	"github.com/sreekar9601/getcovered-technical-task/orchestrator"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("authscan starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxContexts", cfg.Browser.MaxContexts,
	)

	// ── 3. Launch the headless browser (dynamic path) ──────────────
	br, err := browser.New(cfg.Browser)
	if err != nil {
		slog.Error("failed to launch browser", "error", err)
		os.Exit(1)
	}
	defer br.Close()

	// ── 4. Wire the detection pipeline ──────────────────────────────
	static := fetcher.NewStaticFetcher(cfg.Fetcher.MaxRedirects)
	det := detector.New(cfg.Detector)

	var classifier orchestrator.Classifier = llm.Noop{}
	if cfg.LLM.APIKey != "" {
		classifier = llm.NewClient(nil, cfg.LLM)
		slog.Info("LLM fallback classifier enabled", "model", cfg.LLM.Model)
	}

	orch := orchestrator.New(static, br, det, classifier, cfg.Fetcher)

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(orch, br, cfg, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// br.Close() runs via defer — waits for in-flight contexts and kills Chrome.
	slog.Info("authscan stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
