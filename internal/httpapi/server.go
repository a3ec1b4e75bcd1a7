package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/fleetpulse/fleetpulse/internal/domain"
	"github.com/fleetpulse/fleetpulse/internal/httpapi/middleware"
	"github.com/fleetpulse/fleetpulse/internal/monitor"
	"github.com/fleetpulse/fleetpulse/internal/repo"
)

type Server struct {
	Logger *zap.Logger
	Units  repo.UnitStore
	Pass   *monitor.Pass
	Keys   middleware.Keys

	HeartbeatRPM   int
	HeartbeatBurst int

	// Now is the pass clock; overridable in tests. Defaults to UTC wall time.
	Now func() time.Time
}

func NewServer(l *zap.Logger, units repo.UnitStore, pass *monitor.Pass, keys middleware.Keys, rpm, burst int) *Server {
	return &Server{
		Logger: l, Units: units, Pass: pass, Keys: keys,
		HeartbeatRPM: rpm, HeartbeatBurst: burst,
		Now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// heartbeat ingestion: gateways post on behalf of units
	r.Group(func(gr chi.Router) {
		gr.Use(middleware.RequireIngest(s.Keys))
		gr.Use(middleware.RateLimit(s.HeartbeatRPM, s.HeartbeatBurst))
		gr.Post("/api/units/{id}/heartbeat", s.handleHeartbeat)
	})

	// operator surface
	r.Group(func(gr chi.Router) {
		gr.Use(middleware.RequireOperator(s.Keys))
		gr.Post("/api/units", s.handleCreateUnit)
		gr.Get("/api/units", s.handleListUnits)
		gr.Post("/api/evaluate", s.handleEvaluate)
	})

	return r
}

type heartbeatPayload struct {
	BatteryLevel *int `json:"battery_level"`
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	id := domain.UnitID(chi.URLParam(r, "id"))
	if id == "" {
		http.Error(w, "missing unit id", http.StatusBadRequest)
		return
	}

	var p heartbeatPayload
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
	}
	if p.BatteryLevel != nil && (*p.BatteryLevel < 0 || *p.BatteryLevel > 100) {
		http.Error(w, "battery_level out of range", http.StatusBadRequest)
		return
	}

	at := s.Now()
	if err := s.Units.RecordHeartbeat(r.Context(), id, p.BatteryLevel, at); err != nil {
		if errors.Is(err, repo.ErrUnitNotFound) {
			http.Error(w, "unknown unit", http.StatusNotFound)
			return
		}
		s.Logger.Warn("heartbeat_store_error", zap.String("unit_id", string(id)), zap.Error(err))
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}

	s.Logger.Debug("heartbeat",
		zap.String("unit_id", string(id)),
		zap.Time("at", at),
	)
	w.WriteHeader(http.StatusNoContent)
}

type createUnitPayload struct {
	ID          string  `json:"id"`
	OwnerID     *string `json:"owner_id"`
	DisplayName string  `json:"display_name"`
}

func (s *Server) handleCreateUnit(w http.ResponseWriter, r *http.Request) {
	var p createUnitPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	u := &domain.Unit{
		ID:          domain.UnitID(p.ID),
		OwnerID:     p.OwnerID,
		DisplayName: p.DisplayName,
	}
	if err := s.Units.Create(r.Context(), u); err != nil {
		s.Logger.Warn("create_unit_error", zap.Error(err))
		http.Error(w, "could not create", http.StatusInternalServerError)
		return
	}

	s.Logger.Info("unit_created",
		zap.String("unit_id", string(u.ID)),
		zap.String("display_name", u.DisplayName),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(u)
}

func (s *Server) handleListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := s.Units.List(r.Context())
	if err != nil {
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(units)
}

// handleEvaluate runs one pass immediately — the manual form of the scheduled
// trigger.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	sum, err := s.Pass.Run(r.Context(), s.Now())
	if err != nil {
		s.Logger.Error("evaluate_error", zap.Error(err))
		http.Error(w, "pass failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(sum)
}
