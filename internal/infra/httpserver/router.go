package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/adampdxdotcom/GeordiLogger/internal/application/appsettings"
	"github.com/adampdxdotcom/GeordiLogger/internal/application/monitor"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/abnormalities"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/analysis"
	domsettings "github.com/adampdxdotcom/GeordiLogger/internal/domain/settings"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/summaries"
	"github.com/adampdxdotcom/GeordiLogger/internal/middleware"
)

const defaultListLimit = 50

type Router struct {
	ctrl       *monitor.Controller
	store      *monitor.HealthStore
	repo       abnormalities.Repository
	summaries  summaries.Repository
	classifier analysis.Classifier
	settings   *appsettings.Service
}

func NewRouter(
	ctrl *monitor.Controller,
	store *monitor.HealthStore,
	repo abnormalities.Repository,
	summariesRepo summaries.Repository,
	classifier analysis.Classifier,
	settingsSvc *appsettings.Service,
	healthCheckers map[string]middleware.HealthChecker,
) http.Handler {
	r := &Router{
		ctrl:       ctrl,
		store:      store,
		repo:       repo,
		summaries:  summariesRepo,
		classifier: classifier,
		settings:   settingsSvc,
	}

	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(healthCheckers))
	mux.Get("/metrics", middleware.MetricsHandler())

	limiter := middleware.NewRateLimiter(60, 30)

	mux.Route("/api", func(rt chi.Router) {
		rt.Use(limiter.Middleware)
		rt.Use(middleware.APIKeyAuth(func() string { return settingsSvc.Snapshot().APIKey }))

		rt.Get("/containers", r.wrap(r.handleContainers))

		rt.Get("/scan/status", r.wrap(r.handleScanStatus))
		rt.Post("/scan/trigger", r.wrap(r.handleScanTrigger))
		rt.Post("/scan/pause", r.wrap(r.handleScanPause))
		rt.Post("/scan/resume", r.wrap(r.handleScanResume))
		rt.Post("/scan/cancel", r.wrap(r.handleScanCancel))

		rt.Post("/summary/trigger", r.wrap(r.handleSummaryTrigger))
		rt.Get("/summaries", r.wrap(r.handleSummaries))

		rt.Get("/abnormalities", r.wrap(r.handleAbnormalityList))
		rt.Get("/abnormalities/{id}", r.wrap(r.handleAbnormalityGet))
		rt.Post("/abnormalities/{id}/status", r.wrap(r.handleAbnormalityStatus))

		rt.Get("/models", r.wrap(r.handleModels))
		rt.Get("/settings", r.wrap(r.handleSettingsGet))
		rt.Put("/settings", r.wrap(r.handleSettingsPut))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks client errors so wrap can answer 400 instead of 500.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var br badRequest
			switch {
			case errors.Is(err, sql.ErrNoRows):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, monitor.ErrAlreadyRunning):
				http.Error(w, err.Error(), http.StatusConflict)
			case errors.As(err, &br):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// GET /api/containers
func (r *Router) handleContainers(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, r.store.Snapshot())
}

// GET /api/scan/status
func (r *Router) handleScanStatus(w http.ResponseWriter, req *http.Request) error {
	resp := map[string]any{
		"state":     r.ctrl.State(),
		"last_scan": r.ctrl.LastScan(),
	}
	if next := r.ctrl.NextRunTime(); !next.IsZero() {
		resp["next_run_at"] = next.UTC().Format(time.RFC3339)
	}
	if last := r.ctrl.LastSummaryAt(); !last.IsZero() {
		resp["last_summary_at"] = last.Format(time.RFC3339)
	}
	return writeJSON(w, resp)
}

// POST /api/scan/trigger
func (r *Router) handleScanTrigger(w http.ResponseWriter, req *http.Request) error {
	if err := r.ctrl.TriggerNow(); err != nil {
		return err
	}
	middleware.IncrementScansTriggered()
	w.WriteHeader(http.StatusAccepted)
	return writeJSON(w, map[string]string{"status": "scan started"})
}

// POST /api/scan/pause
func (r *Router) handleScanPause(w http.ResponseWriter, req *http.Request) error {
	r.ctrl.Pause()
	return writeJSON(w, map[string]string{"state": string(r.ctrl.State())})
}

// POST /api/scan/resume
func (r *Router) handleScanResume(w http.ResponseWriter, req *http.Request) error {
	r.ctrl.Resume()
	return writeJSON(w, map[string]string{"state": string(r.ctrl.State())})
}

// POST /api/scan/cancel
func (r *Router) handleScanCancel(w http.ResponseWriter, req *http.Request) error {
	cancelled := r.ctrl.CancelCurrent()
	if cancelled {
		middleware.IncrementScansCancelled()
	}
	return writeJSON(w, map[string]any{"cancelled": cancelled})
}

// POST /api/summary/trigger
func (r *Router) handleSummaryTrigger(w http.ResponseWriter, req *http.Request) error {
	if err := r.ctrl.TriggerSummaryNow(); err != nil {
		return err
	}
	middleware.IncrementSummariesTriggered()
	w.WriteHeader(http.StatusAccepted)
	return writeJSON(w, map[string]string{"status": "summary started"})
}

// GET /api/summaries?limit=10
func (r *Router) handleSummaries(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 10
	}
	list, err := r.summaries.Latest(req.Context(), limit)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /api/abnormalities?status=unresolved&limit=50
func (r *Router) handleAbnormalityList(w http.ResponseWriter, req *http.Request) error {
	status := abnormalities.Status(req.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		return badRequest{errors.New("invalid status filter")}
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultListLimit
	}
	list, err := r.repo.ListByStatus(req.Context(), status, limit)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /api/abnormalities/{id}
func (r *Router) handleAbnormalityGet(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	a, err := r.repo.Get(req.Context(), abnormalities.ID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, a)
}

// POST /api/abnormalities/{id}/status
// Body: {"status": "resolved", "notes": "restarted the container"}
func (r *Router) handleAbnormalityStatus(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")

	var body struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest{err}
	}
	status := abnormalities.Status(body.Status)
	if !status.Valid() {
		return badRequest{errors.New("status must be unresolved, resolved, or ignored")}
	}
	if err := middleware.ValidateNotes(body.Notes); err != nil {
		return badRequest{err}
	}

	a, err := r.repo.Get(req.Context(), abnormalities.ID(id))
	if err != nil {
		return err
	}
	if err := r.repo.UpdateStatus(req.Context(), a.ID, status, body.Notes); err != nil {
		return err
	}
	middleware.IncrementAbnormalityUpdates()

	// The dashboard shows "awaiting scan" until the next pass re-evaluates
	// the container against its updated history.
	r.store.MarkAwaitingScan(a.ContainerID)

	a.Status = status
	a.ResolutionNotes = body.Notes
	return writeJSON(w, a)
}

// GET /api/models
func (r *Router) handleModels(w http.ResponseWriter, req *http.Request) error {
	models, err := r.classifier.ListModels(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{"models": models})
}

// GET /api/settings
func (r *Router) handleSettingsGet(w http.ResponseWriter, req *http.Request) error {
	st := r.settings.Snapshot()
	st.APIKey = "" // never echo credentials
	return writeJSON(w, st)
}

// PUT /api/settings
func (r *Router) handleSettingsPut(w http.ResponseWriter, req *http.Request) error {
	var in domsettings.Settings
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		return badRequest{err}
	}
	if err := middleware.ValidateModelName(in.Model); err != nil {
		return badRequest{err}
	}
	if in.APIKey == "" {
		in.APIKey = r.settings.Snapshot().APIKey
	}
	if err := r.settings.Update(req.Context(), in); err != nil {
		return badRequest{err}
	}
	out := r.settings.Snapshot()
	out.APIKey = ""
	return writeJSON(w, out)
}
