// Package http exposes the aggregation service over HTTP: disaster and
// resource flows, social and official feeds, geocoding helpers, a websocket
// event stream, and the operational health/metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reliefgrid/disaster-aggregator/internal/domain"
	"github.com/reliefgrid/disaster-aggregator/internal/geocoding"
	"github.com/reliefgrid/disaster-aggregator/internal/official"
	"github.com/reliefgrid/disaster-aggregator/internal/service"
	"github.com/reliefgrid/disaster-aggregator/internal/social"
	"github.com/reliefgrid/disaster-aggregator/internal/store"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the public API plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	svc        *service.Service
	geocoder   *geocoding.Resolver
	socials    *social.Aggregator
	officials  *official.Aggregator
	logger     *slog.Logger
}

// NewServer wires all routes. events may be nil when no websocket stream is
// configured.
func NewServer(addr string, svc *service.Service, geocoder *geocoding.Resolver, socials *social.Aggregator, officials *official.Aggregator, events http.Handler, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:       svc,
		geocoder:  geocoder,
		socials:   socials,
		officials: officials,
		logger:    logger,
	}

	mux.HandleFunc("POST /disasters", s.handleCreateDisaster)
	mux.HandleFunc("GET /disasters", s.handleListDisasters)
	mux.HandleFunc("GET /disasters/{id}", s.handleGetDisaster)
	mux.HandleFunc("POST /disasters/{id}/analyze", s.handleReanalyzeDisaster)
	mux.HandleFunc("GET /disasters/{id}/social-media", s.handleSocialReports)
	mux.HandleFunc("GET /disasters/{id}/social-media/priority", s.handlePriorityAlerts)
	mux.HandleFunc("GET /social-media/location/{location}", s.handleSocialByLocation)
	mux.HandleFunc("GET /disasters/{id}/official-updates", s.handleOfficialUpdates)
	mux.HandleFunc("GET /official-updates/emergency", s.handleEmergencyAlerts)
	mux.HandleFunc("GET /official-updates/source/{source}", s.handleUpdatesBySource)

	mux.HandleFunc("POST /resources", s.handleCreateResource)
	mux.HandleFunc("GET /resources/nearby", s.handleNearbyResources)

	mux.HandleFunc("POST /verification", s.handleVerifyReport)

	mux.HandleFunc("GET /geocode", s.handleGeocode)
	mux.HandleFunc("GET /geocode/reverse", s.handleReverseGeocode)

	if events != nil {
		mux.Handle("GET /ws", events)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type createDisasterRequest struct {
	Title        string   `json:"title"`
	LocationName string   `json:"location_name"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	OwnerID      string   `json:"owner_id"`
}

func (s *Server) handleCreateDisaster(w http.ResponseWriter, r *http.Request) {
	var req createDisasterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	disaster, err := s.svc.CreateDisaster(r.Context(), service.CreateDisasterInput{
		Title:        req.Title,
		LocationName: req.LocationName,
		Description:  req.Description,
		Tags:         req.Tags,
		OwnerID:      req.OwnerID,
	})
	if err != nil {
		if errors.Is(err, service.ErrMissingFields) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("create disaster failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create disaster")
		return
	}
	writeJSON(w, http.StatusCreated, disaster)
}

func (s *Server) handleListDisasters(w http.ResponseWriter, r *http.Request) {
	disasters, err := s.svc.Disasters(r.Context())
	if err != nil {
		s.logger.Error("list disasters failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list disasters")
		return
	}
	writeJSON(w, http.StatusOK, disasters)
}

func (s *Server) handleGetDisaster(w http.ResponseWriter, r *http.Request) {
	disaster, err := s.svc.Disaster(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "disaster not found")
			return
		}
		s.logger.Error("get disaster failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get disaster")
		return
	}
	writeJSON(w, http.StatusOK, disaster)
}

func (s *Server) handleReanalyzeDisaster(w http.ResponseWriter, r *http.Request) {
	disaster, err := s.svc.ReanalyzeDisaster(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "disaster not found")
			return
		}
		s.logger.Error("reanalyze disaster failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to analyze disaster")
		return
	}
	writeJSON(w, http.StatusOK, disaster)
}

func (s *Server) handleSocialReports(w http.ResponseWriter, r *http.Request) {
	keywords := r.URL.Query()["keyword"]
	reports := s.socials.Reports(r.Context(), r.PathValue("id"), keywords)
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handlePriorityAlerts(w http.ResponseWriter, r *http.Request) {
	keywords := r.URL.Query()["keyword"]
	alerts := s.socials.PriorityAlerts(r.Context(), r.PathValue("id"), keywords)
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleSocialByLocation(w http.ResponseWriter, r *http.Request) {
	keywords := append([]string{r.PathValue("location")}, r.URL.Query()["keyword"]...)
	reports := s.socials.ReportsByLocation(r.Context(), keywords)
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleOfficialUpdates(w http.ResponseWriter, r *http.Request) {
	keywords := r.URL.Query()["keyword"]
	updates := s.officials.Updates(r.Context(), r.PathValue("id"), keywords)
	writeJSON(w, http.StatusOK, updates)
}

func (s *Server) handleEmergencyAlerts(w http.ResponseWriter, r *http.Request) {
	keywords := r.URL.Query()["keyword"]
	alerts := s.officials.EmergencyAlerts(r.Context(), keywords)
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleUpdatesBySource(w http.ResponseWriter, r *http.Request) {
	updates := s.officials.UpdatesBySource(r.Context(), r.PathValue("source"))
	writeJSON(w, http.StatusOK, updates)
}

type createResourceRequest struct {
	DisasterID   string              `json:"disaster_id"`
	Name         string              `json:"name"`
	Type         string              `json:"type"`
	LocationName string              `json:"location_name"`
	Coordinates  *domain.Coordinates `json:"coordinates"`
}

func (s *Server) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	var req createResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resource, err := s.svc.CreateResource(r.Context(), service.CreateResourceInput{
		DisasterID:   req.DisasterID,
		Name:         req.Name,
		Type:         req.Type,
		LocationName: req.LocationName,
		Coordinates:  req.Coordinates,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, resource)
}

func (s *Server) handleNearbyResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}
	radius, _ := strconv.ParseFloat(q.Get("radius"), 64)

	resources, err := s.svc.NearbyResources(r.Context(), lat, lon, radius, q.Get("type"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCoordinates) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("nearby resources failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to find nearby resources")
		return
	}
	if resources == nil {
		resources = []domain.Resource{}
	}
	writeJSON(w, http.StatusOK, resources)
}

type verifyRequest struct {
	ImageURL        string `json:"image_url"`
	DisasterContext string `json:"disaster_context"`
}

func (s *Server) handleVerifyReport(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.svc.VerifyReport(r.Context(), req.ImageURL, req.DisasterContext)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	if location == "" {
		writeError(w, http.StatusBadRequest, "location is required")
		return
	}
	writeJSON(w, http.StatusOK, s.geocoder.Resolve(r.Context(), location))
}

func (s *Server) handleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}

	result, err := s.geocoder.ReverseGeocode(r.Context(), lat, lon)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
