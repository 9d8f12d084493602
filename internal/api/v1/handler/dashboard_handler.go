package handler

import (
	"context"
	"net/http"
	"time"

	"lmsadmin/internal/service"

	"github.com/rs/zerolog"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
	logger           zerolog.Logger
}

func NewDashboardHandler(dashboardService service.DashboardService, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		logger:           logger.With().Str("handler", "DashboardHandler").Logger(),
	}
}

func (h *DashboardHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("GET /dashboard/stats", authMw(http.HandlerFunc(h.stats)))
}

// stats godoc
// @Summary Dashboard figures
// @Tags dashboard
// @Security BearerAuth
// @Produce json
// @Success 200 {object} service.DashboardStats
// @Router /dashboard/stats [get]
func (h *DashboardHandler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.dashboardService.Stats(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db     Pinger
	logger zerolog.Logger
}

func NewHealthHandler(db Pinger, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger.With().Str("handler", "HealthHandler").Logger()}
}

func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.healthz)
}

// healthz godoc
// @Summary Liveness and database check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Error().Err(err).Msg("Database ping failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
