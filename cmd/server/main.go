package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brunobiangulo/ragdag"
)

// processConfig is the thin JSON process-level configuration for the HTTP
// server: listen address and store path. Capability settings (embedding
// and LLM providers, models, chunking) live in the store's own .config
// file, not here.
type processConfig struct {
	Store string `json:"store"`
	Addr  string `json:"addr"`
}

func defaultProcessConfig() processConfig {
	return processConfig{Store: ".", Addr: ":8080"}
}

func main() {
	configPath := flag.String("config", "", "Path to process config file (JSON)")
	addr := flag.String("addr", "", "Listen address (overrides config and RAGDAG_ADDR)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := defaultProcessConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			slog.Error("opening config", "error", err)
			os.Exit(1)
		}
		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			f.Close()
			slog.Error("parsing config", "error", err)
			os.Exit(1)
		}
		f.Close()
	}

	if v := os.Getenv("RAGDAG_STORE"); v != "" {
		cfg.Store = v
	}
	if v := os.Getenv("RAGDAG_ADDR"); v != "" {
		cfg.Addr = v
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	apiKey := os.Getenv("RAGDAG_API_KEY")
	corsOrigins := os.Getenv("RAGDAG_CORS_ORIGINS")

	s, err := ragdag.Open(cfg.Store)
	if err != nil {
		slog.Error("opening store", "path", cfg.Store, "error", err)
		os.Exit(1)
	}

	h := newHandler(s)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /add", h.handleAdd)
	mux.HandleFunc("POST /search", h.handleSearch)
	mux.HandleFunc("POST /ask", h.handleAsk)
	mux.HandleFunc("GET /graph", h.handleGraph)
	mux.HandleFunc("GET /neighbors/{node...}", h.handleNeighbors)
	mux.HandleFunc("GET /trace/{node...}", h.handleTrace)
	mux.HandleFunc("POST /relate", h.handleRelate)
	mux.HandleFunc("POST /link", h.handleLink)
	mux.HandleFunc("GET /health", h.handleHealth)

	// Middleware chain: recovery -> cors -> auth -> logging -> mux
	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // ask/add responses can be long-running
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr, "store", s.Root())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
