// Package api exposes the progression engine over HTTP for the game client.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brainquest/brainquest/internal/app/game"
	"github.com/brainquest/brainquest/internal/app/persist"
	"github.com/brainquest/brainquest/internal/pkg/logger"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// Server is the BrainQuest HTTP API server.
type Server struct {
	game           *game.Game
	store          *persist.Store // nil when running without persistence
	metricsEnabled bool
	version        string
	log            *logger.Logger
}

// NewServer creates a new API server.
func NewServer(g *game.Game, store *persist.Store, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{game: g, store: store, version: "dev", log: log.With("component", "api")}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetVersion sets the version reported by /api/version.
func (s *Server) SetVersion(v string) { s.version = v }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.requestLogger)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
	})

	r.Route("/api", func(r chi.Router) {
		// Read-only projections, safe to poll every frame.
		r.Get("/progress", s.handleProgress)
		r.Get("/achievements", s.handleAchievements)
		r.Get("/powerups", s.handlePowerUps)
		r.Get("/events", s.handleEvents)
		r.Get("/difficulty/{subject}", s.handleDifficulty)
		r.Get("/shop", s.handleShop)
		r.Get("/save", s.handleSaveInfo)

		r.Post("/character", s.handleSetCharacter)
		r.Post("/answers", s.handleAnswer)
		r.Post("/powerups/{id}/activate", s.handleActivatePowerUp)
		r.Post("/powerups/protection", s.handleUseProtection)
		r.Post("/shop/purchase", s.handlePurchase)
		r.Post("/equipment", s.handleEquip)
		r.Delete("/equipment/{slot}", s.handleUnequip)
		r.Post("/daily-reward", s.handleDailyReward)
		r.Post("/weeks/{n}/complete", s.handleCompleteWeek)
		r.Post("/abilities/use", s.handleUseAbility)
		r.Post("/tick", s.handleTick)
		r.Post("/session/reset", s.handleResetSession)
		r.Post("/save", s.handleSave)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// corsMiddleware adds CORS headers for a locally served game client.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
