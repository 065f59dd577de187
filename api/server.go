// Package api provides the HTTP REST API server for gproverlay.
//
// It exposes endpoints for event detection over the loaded GPR series,
// portfolio advisory reports, headline suggestions and dataset refresh.
package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/seenimoa/gproverlay/internal/advisory"
	"github.com/seenimoa/gproverlay/internal/config"
	"github.com/seenimoa/gproverlay/internal/detect"
	"github.com/seenimoa/gproverlay/internal/fetch"
	"github.com/seenimoa/gproverlay/internal/overlay"
	"github.com/seenimoa/gproverlay/internal/store"
	"github.com/seenimoa/gproverlay/pkg/models"
)

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	cfg    *config.Config
	log    zerolog.Logger

	mu     sync.RWMutex
	points []models.DailyPoint

	store     *store.Store
	fetcher   *fetch.GPRFetcher
	suggester *fetch.HeadlineSuggester
	cache     *lru.Cache[string, AdvisoryResponse]
	cron      *cron.Cron
}

// NewServer creates a configured API server over the given GPR series.
// The store may be nil; refresh endpoints then update in-memory state only.
func NewServer(cfg *config.Config, points []models.DailyPoint, st *store.Store, log zerolog.Logger) (*Server, error) {
	cache, err := lru.New[string, AdvisoryResponse](cfg.API.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create report cache: %w", err)
	}

	srv := &Server{
		cfg:       cfg,
		log:       log,
		points:    points,
		store:     st,
		fetcher:   fetch.NewGPRFetcher(cfg.Fetch.DatasetPageURL, time.Duration(cfg.Fetch.TimeoutSec)*time.Second, log),
		suggester: fetch.NewHeadlineSuggester(cfg.Fetch.RSSFeeds, log),
		cache:     cache,
	}
	srv.router = srv.buildRouter()
	return srv, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown. When a
// refresh schedule is configured, dataset refreshes run on that schedule
// until shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.API.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.API.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if spec := s.cfg.Fetch.RefreshSchedule; spec != "" {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(spec, s.scheduledRefresh); err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
		}
		s.cron.Start()
		s.log.Info().Str("schedule", spec).Msg("dataset refresh scheduled")
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-done:
	}
	s.log.Info().Msg("shutting down server")

	if s.cron != nil {
		s.cron.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}

func (s *Server) scheduledRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := s.refresh(ctx); err != nil {
		s.log.Error().Err(err).Msg("scheduled dataset refresh failed")
	}
}

// refresh downloads the latest series, persists it when a store is
// configured, and swaps the in-memory series.
func (s *Server) refresh(ctx context.Context) error {
	points, err := s.fetcher.Refresh(ctx)
	if err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.UpsertDailyPoints(ctx, points); err != nil {
			return err
		}
		// Reload so the in-memory series includes prior history.
		points, err = s.store.LoadDailyPoints(ctx)
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.points = points
	s.mu.Unlock()
	s.cache.Purge()

	s.log.Info().Int("points", len(points)).Msg("GPR series refreshed")
	return nil
}

func (s *Server) series() []models.DailyPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.points
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/events", s.handleEvents)
		r.Get("/events/{id}/headlines", s.handleHeadlines)
		r.Post("/advisory", s.handleAdvisory)
		r.Post("/refresh", s.handleRefresh)
	})

	return r
}

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	points := s.series()
	data := map[string]any{
		"status": "ok",
		"points": len(points),
	}
	if len(points) > 0 {
		data["latest_date"] = points[len(points)-1].Date.String()
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	cfg := s.cfg.Detector
	cfg.IncludeRegimes = r.URL.Query().Get("include_regimes") == "true"

	detector := detect.New(cfg, s.log)
	events, err := detector.Detect(s.series())
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if raw := r.URL.Query().Get("for_date"); raw != "" {
		target, err := models.ParseDay(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid for_date: %v", err))
			return
		}
		event, err := detect.SelectForDate(events, target)
		if err != nil {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: event})
		return
	}

	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: events})
}

func (s *Server) handleHeadlines(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cfg := s.cfg.Detector
	cfg.IncludeRegimes = true
	detector := detect.New(cfg, s.log)
	events, err := detector.Detect(s.series())
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var event *models.Event
	for i := range events {
		if events[i].EventID == id {
			event = &events[i]
			break
		}
	}
	if event == nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("no event with id %s", id))
		return
	}

	headlines, err := s.suggester.Suggest(r.Context(), *event)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: headlines})
}

// AdvisoryRequest is the body for POST /api/v1/advisory. A manual peak
// replaces event selection with a manually framed event.
type AdvisoryRequest struct {
	TargetDate     models.Day               `json:"target_date"`
	IncludeRegimes bool                     `json:"include_regimes"`
	Snapshot       models.PortfolioSnapshot `json:"snapshot"`
	BetaTable      []BetaRow                `json:"beta_table,omitempty"`
	Criteria       []models.Criterion       `json:"criteria,omitempty"`

	ManualPeak  *models.Day `json:"manual_peak,omitempty"`
	ManualStart *models.Day `json:"manual_start,omitempty"`
	ManualEnd   *models.Day `json:"manual_end,omitempty"`

	ShortlistMode string `json:"shortlist_mode" default:"vulnerable"`
	PerIndustry   int    `json:"per_industry"   default:"5"`
}

// BetaRow is one reference-table entry supplied inline with a request.
type BetaRow struct {
	FedIndustryID   string   `json:"fed_industry_id"`
	FedIndustryName string   `json:"fed_industry_name"`
	GPRBeta         float64  `json:"gpr_beta"`
	GPRSentiment    *float64 `json:"gpr_sentiment,omitempty"`
}

// AdvisoryResponse bundles the advisory report with its shortlists.
type AdvisoryResponse struct {
	Report     models.AdvisoryReport    `json:"report"`
	Shortlists models.ShortlistDocument `json:"shortlists"`
}

func (s *Server) handleAdvisory(w http.ResponseWriter, r *http.Request) {
	var req AdvisoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := defaults.Set(&req); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if req.TargetDate.IsZero() && req.ManualPeak == nil {
		s.writeError(w, http.StatusBadRequest, "target_date is required")
		return
	}
	if len(req.Snapshot.Holdings) == 0 {
		s.writeError(w, http.StatusBadRequest, "snapshot.holdings is required")
		return
	}

	key := requestKey(req)
	if cached, ok := s.cache.Get(key); ok {
		s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: cached})
		return
	}

	cfg := s.cfg.Detector
	cfg.IncludeRegimes = req.IncludeRegimes
	detector := detect.New(cfg, s.log)

	var event models.Event
	if req.ManualPeak != nil {
		start, end := *req.ManualPeak, *req.ManualPeak
		if req.ManualStart != nil {
			start = *req.ManualStart
		}
		if req.ManualEnd != nil {
			end = *req.ManualEnd
		}
		var err error
		event, err = detector.ManualEvent(s.series(), *req.ManualPeak, start, end)
		if err != nil {
			s.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	} else {
		events, err := detector.Detect(s.series())
		if err != nil {
			s.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		event, err = detect.SelectForDate(events, req.TargetDate)
		if err != nil {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
	}

	var table overlay.BetaTable
	if len(req.BetaTable) > 0 {
		table = make(overlay.BetaTable, len(req.BetaTable))
		for _, row := range req.BetaTable {
			table[row.FedIndustryID] = overlay.BetaEntry{
				FedIndustryName: row.FedIndustryName,
				GPRBeta:         row.GPRBeta,
				GPRSentiment:    row.GPRSentiment,
			}
		}
	}

	exposures := overlay.ComputeIndustryExposure(req.Snapshot, table, s.log)
	profile := overlay.ComputeEventImpact(event, exposures, s.log)
	report := advisory.BuildReport(req.Snapshot, profile)
	shortlists := advisory.BuildShortlists(req.Snapshot, report.ImpactProfile,
		advisory.Mode(req.ShortlistMode), req.PerIndustry, req.Criteria)

	resp := AdvisoryResponse{Report: report, Shortlists: shortlists}
	s.cache.Add(key, resp)
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.refresh(r.Context()); err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	points := s.series()
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: map[string]any{
		"points": len(points),
	}})
}

// requestKey derives a cache key from the full request payload. Any change
// to the portfolio, the target date or the options misses the cache.
func requestKey(req AdvisoryRequest) string {
	raw, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to write JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, APIResponse{Success: false, Error: msg})
}
