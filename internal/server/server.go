// Package server implements the redlining HTTP API: bounding box filtered
// feature data, keyword search and the shared pin board.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/redliningmap/internal/geojson"
	"github.com/MeKo-Tech/redliningmap/internal/metrics"
	"github.com/MeKo-Tech/redliningmap/internal/storage"
)

// Config configures the API server.
type Config struct {
	Dataset   *geojson.Dataset
	Store     storage.PinStore
	Metrics   *metrics.Metrics
	CacheSize int
	Logger    *slog.Logger
}

// Server serves the redlining API.
type Server struct {
	dataset *geojson.Dataset
	store   storage.PinStore
	cache   *ResponseCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a server. A nil dataset is treated as empty, a nil store as an
// in-memory one.
func New(cfg Config) *Server {
	if cfg.Dataset == nil {
		cfg.Dataset = geojson.NewDataset(nil)
	}
	if cfg.Store == nil {
		cfg.Store = storage.NewMemoryStore()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}

	return &Server{
		dataset: cfg.Dataset,
		store:   cfg.Store,
		cache:   NewResponseCache(cfg.CacheSize),
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

// Cache exposes the bounding box response cache.
func (s *Server) Cache() *ResponseCache {
	return s.cache
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", s.metrics.Handler())

	s.route(mux, "/get-redlining-data", s.handleRedliningData)
	s.route(mux, "/search-redlining", s.handleSearch)
	s.route(mux, "/add-pin", s.handleAddPin)
	s.route(mux, "/get-all-pins", s.handleAllPins)
	s.route(mux, "/drop-pins", s.handleDropPins)

	return withCORS(mux)
}

func (s *Server) route(mux *http.ServeMux, pattern string, h func(w http.ResponseWriter, r *http.Request) int) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := h(w, r)
		s.metrics.RequestsTotal.WithLabelValues(pattern, strconv.Itoa(status)).Inc()
		s.metrics.RequestDurationMs.WithLabelValues(pattern).Observe(float64(time.Since(start).Microseconds()) / 1000)
		s.log().Debug("request served", "path", pattern, "status", status, "elapsed", time.Since(start))
	})
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, Authorization, X-Requested-With, Content-Length, Accept, Origin")

		if r.Method == http.MethodOptions {
			if h := r.Header.Get("Access-Control-Request-Headers"); h != "" {
				w.Header().Set("Access-Control-Allow-Headers", h)
			}
			if m := r.Header.Get("Access-Control-Request-Method"); m != "" {
				w.Header().Set("Access-Control-Allow-Methods", m)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v and returns the status written.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) int {
	body, err := json.Marshal(v)
	if err != nil {
		s.log().Error("failed to encode response", "error", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return http.StatusInternalServerError
	}
	return writeRaw(w, status, body)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
	return status
}

type errorResponse struct {
	Result  string `json:"result"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) int {
	return s.writeJSON(w, status, errorResponse{Result: "error", Message: message})
}
