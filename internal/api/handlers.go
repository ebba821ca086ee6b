package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/tutu-network/battguard/internal/app/confirm"
	"github.com/tutu-network/battguard/internal/app/monitor"
	"github.com/tutu-network/battguard/internal/domain"
	"github.com/tutu-network/battguard/internal/health"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Monitor      monitor.Status `json:"monitor"`
	Config       domain.Config  `json:"config"`
	Confirmation *confirm.Info  `json:"confirmation,omitempty"`
}

// ConfigPatch is the body of PUT /api/config. Omitted fields are left
// unchanged.
type ConfigPatch struct {
	Enabled        *bool `json:"enabled,omitempty"`
	DelayMinutes   *int  `json:"delay_minutes,omitempty"`
	BatteryPercent *int  `json:"battery_percent,omitempty"`
	SoundEnabled   *bool `json:"sound_enabled,omitempty"`
}

// Apply returns cfg with the patch applied.
func (p ConfigPatch) Apply(cfg domain.Config) domain.Config {
	if p.Enabled != nil {
		cfg.Enabled = *p.Enabled
	}
	if p.DelayMinutes != nil {
		cfg.DelayMinutes = *p.DelayMinutes
	}
	if p.BatteryPercent != nil {
		cfg.BatteryPercent = *p.BatteryPercent
	}
	if p.SoundEnabled != nil {
		cfg.SoundEnabled = *p.SoundEnabled
	}
	return cfg
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string          `json:"status"`
	Checks []health.Status `json:"checks,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	code := http.StatusOK
	if s.health != nil {
		resp.Checks = s.health.Statuses()
		if !s.health.IsHealthy() {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) status() StatusResponse {
	resp := StatusResponse{
		Monitor: s.monitor.Status(),
		Config:  s.config.Read(),
	}
	if sess := s.confirm.Active(); sess != nil {
		info := sess.Info()
		resp.Confirmation = &info
	}
	return resp
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.config.Read())
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var patch ConfigPatch
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	// Validate against the current snapshot before writing so a rejected
	// patch changes nothing.
	if err := patch.Apply(s.config.Read()).Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg := s.config.Write(func(c *domain.Config) {
		*c = patch.Apply(*c)
	})
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleGetConfirmation(w http.ResponseWriter, r *http.Request) {
	sess := s.confirm.Active()
	if sess == nil {
		writeError(w, http.StatusNotFound, domain.ErrNoActiveSession.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	err := s.confirm.Cancel()
	switch {
	case errors.Is(err, domain.ErrNoActiveSession), errors.Is(err, domain.ErrSessionResolved):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cancelled": true,
		"config":    s.config.Read(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "journal disabled")
		return
	}
	events, err := s.journal.ListPowerEvents(historyLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []domain.PowerEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "journal disabled")
		return
	}
	sessions, err := s.journal.ListSessions(historyLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []domain.SessionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func historyLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultHistoryLimit
	}
	return min(n, maxHistoryLimit)
}
