// Package api provides the local control API for battguard: status,
// configuration, cancelling a pending shutdown and a live event stream.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tutu-network/battguard/internal/app/confirm"
	"github.com/tutu-network/battguard/internal/app/monitor"
	"github.com/tutu-network/battguard/internal/app/settings"
	"github.com/tutu-network/battguard/internal/domain"
	"github.com/tutu-network/battguard/internal/health"
)

// StatusSource is satisfied by *monitor.Monitor.
type StatusSource interface {
	Status() monitor.Status
}

// Journal is the read side of the event journal. Implemented by
// *sqlite.DB.
type Journal interface {
	ListPowerEvents(limit int) ([]domain.PowerEvent, error)
	ListSessions(limit int) ([]domain.SessionRecord, error)
}

// Server is the battguard HTTP control API.
type Server struct {
	config         *settings.Shared
	monitor        StatusSource
	confirm        *confirm.Controller
	journal        Journal         // nil when the journal is disabled
	health         *health.Checker // nil in tests
	hub            *Hub
	metricsEnabled bool
	corsOrigins    []string
}

// NewServer creates a new API server.
func NewServer(config *settings.Shared, mon StatusSource, ctrl *confirm.Controller) *Server {
	s := &Server{config: config, monitor: mon, confirm: ctrl}
	s.hub = NewHub(s.status)
	return s
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetJournal enables the history endpoints.
func (s *Server) SetJournal(j Journal) { s.journal = j }

// SetHealth sets the checker reported by /health.
func (s *Server) SetHealth(c *health.Checker) { s.health = c }

// SetCORSOrigins restricts browser access to the listed origins.
func (s *Server) SetCORSOrigins(origins []string) { s.corsOrigins = origins }

// Hub returns the live stream hub (for publishing events).
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(10 * time.Second))
			r.Get("/status", s.handleStatus)
			r.Get("/config", s.handleGetConfig)
			r.Put("/config", s.handlePutConfig)
			r.Get("/confirmation", s.handleGetConfirmation)
			r.Post("/confirmation/cancel", s.handleCancel)
			r.Get("/events", s.handleEvents)
			r.Get("/sessions", s.handleSessions)
		})

		// Long-lived; no request timeout
		r.Get("/stream", s.hub.ServeWS)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware allows the configured origins to call the API.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.corsOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
