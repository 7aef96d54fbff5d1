package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/fragsvc/fragments/pkg/fragments/api"
	"github.com/fragsvc/fragments/pkg/fragments/auth"
	"github.com/fragsvc/fragments/pkg/fragments/config"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg)

	svc, err := cfg.BuildService(context.Background())
	if err != nil {
		slog.Error("failed to build fragments service", "error", err)
		os.Exit(1)
	}

	tokenAuth := auth.New(cfg.JWTSecret)
	handler := api.New(svc, api.Config{
		BaseURL:      cfg.APIURL,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", healthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Verifier(tokenAuth))
		r.Use(auth.Authenticator)
		r.Mount("/fragments", handler.Routes())
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("fragments server starting",
			"port", cfg.Port,
			"metadata_backend", cfg.MetadataURL,
			"data_backend", cfg.DataURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	render.JSON(w, r, map[string]string{
		"status":  "ok",
		"version": version,
	})
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
