package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/brunobiangulo/ragdag"
	"github.com/brunobiangulo/ragdag/ask"
	"github.com/brunobiangulo/ragdag/search"
)

type handler struct {
	store *ragdag.Store
}

func newHandler(s *ragdag.Store) *handler {
	return &handler{store: s}
}

// POST /add
// Accepts a JSON body naming one or more paths to ingest.
func (h *handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	var req struct {
		Paths  []string `json:"paths"`
		Domain string   `json:"domain,omitempty"`
		Flat   bool     `json:"flat,omitempty"`
		Embed  bool     `json:"embed,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Paths) == 0 {
		writeError(w, http.StatusBadRequest, "paths is required")
		return
	}

	result, err := h.store.Add(ctx, req.Paths, ragdag.AddOptions{Domain: req.Domain, Flat: req.Flat, Embed: req.Embed})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "add failed")
		slog.Error("add error", "error", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /search
func (h *handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req struct {
		Query  string `json:"query"`
		Domain string `json:"domain,omitempty"`
		Mode   string `json:"mode,omitempty"`
		TopK   int    `json:"top_k,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.store.Search(ctx, req.Query, ragdag.SearchOptions{
		Domain: req.Domain,
		Mode:   search.Mode(req.Mode),
		TopK:   req.TopK,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed")
		slog.Error("search error", "query", req.Query, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// POST /ask
func (h *handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req struct {
		Question string `json:"question"`
		Domain   string `json:"domain,omitempty"`
		UseLLM   bool   `json:"use_llm,omitempty"`
		TopK     int    `json:"top_k,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	result, err := h.store.Ask(ctx, req.Question, ask.Options{Domain: req.Domain, TopK: req.TopK, UseLLM: req.UseLLM})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ask failed")
		slog.Error("ask error", "question", req.Question, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GET /graph?domain=
func (h *handler) handleGraph(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.Graph(r.URL.Query().Get("domain"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "graph failed")
		slog.Error("graph error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GET /neighbors/{node}
func (h *handler) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	node := r.PathValue("node")
	outgoing, incoming, err := h.store.Neighbors(node)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "neighbors failed")
		slog.Error("neighbors error", "node", node, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outgoing": outgoing, "incoming": incoming})
}

// GET /trace/{node}
func (h *handler) handleTrace(w http.ResponseWriter, r *http.Request) {
	node := r.PathValue("node")
	hops, err := h.store.Trace(node)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "trace failed")
		slog.Error("trace error", "node", node, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hops": hops})
}

// POST /relate
func (h *handler) handleRelate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain    string  `json:"domain,omitempty"`
		Threshold float64 `json:"threshold,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Threshold <= 0 {
		req.Threshold = 0.75
	}

	n, err := h.store.Relate(req.Domain, req.Threshold)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "relate failed")
		slog.Error("relate error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"edges_added": n})
}

// POST /link
func (h *handler) handleLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source string `json:"source"`
		Target string `json:"target"`
		Type   string `json:"type,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Source == "" || req.Target == "" {
		writeError(w, http.StatusBadRequest, "source and target are required")
		return
	}
	edgeType := req.Type
	if edgeType == "" {
		edgeType = "references"
	}

	if err := h.store.Link(req.Source, req.Target, edgeType); err != nil {
		writeError(w, http.StatusInternalServerError, "link failed")
		slog.Error("link error", "source", req.Source, "target", req.Target, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "linked"})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "store": h.store.Root()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf("%s", msg)})
}

// logMiddleware logs each request against the store it was served from,
// with method, path, status, and duration.
func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		slog.Info("ragdag request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start).Round(time.Millisecond),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// authMiddleware checks for a valid API key in the Authorization header.
// If apiKey is empty, authentication is disabled (development mode). The
// /health route is always reachable so orchestrators can probe liveness
// without provisioning a key.
func authMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || auth[7:] != apiKey {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware catches panics from a handler, logs the stack trace,
// and turns them into a 500 instead of killing the listener goroutine.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("ragdag panic recovered",
					"error", fmt.Sprintf("%v", err),
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds CORS headers. origins is a comma-separated allowlist;
// if empty, no CORS headers are set and the route is same-origin only.
func corsMiddleware(origins string, next http.Handler) http.Handler {
	if origins == "" {
		return next
	}
	allowed := strings.Split(origins, ",")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		for _, o := range allowed {
			if o = strings.TrimSpace(o); o == "*" || (o != "" && o == origin) {
				w.Header().Set("Access-Control-Allow-Origin", o)
				break
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
