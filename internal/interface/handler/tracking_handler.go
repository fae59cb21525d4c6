package handler

import (
	"net/http"
	"strconv"

	"flight-tracker-service/internal/domain/entity"
	"flight-tracker-service/internal/usecase"
	"flight-tracker-service/pkg/logger"

	"github.com/go-chi/chi/v5"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// TrackingHandler exposes manual firings and the tracking run log
type TrackingHandler struct {
	tracker *usecase.PriceTracker
	logger  logger.Logger
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(tracker *usecase.PriceTracker, logger logger.Logger) *TrackingHandler {
	return &TrackingHandler{tracker: tracker, logger: logger}
}

// Run handles POST /tracking/{interval}/run
func (h *TrackingHandler) Run(w http.ResponseWriter, r *http.Request) {
	interval := entity.Interval(chi.URLParam(r, "interval"))

	run, err := h.tracker.RunNow(r.Context(), interval)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{"data": run})
}

// Runs handles GET /tracking/{interval}/runs?limit=
func (h *TrackingHandler) Runs(w http.ResponseWriter, r *http.Request) {
	interval := entity.Interval(chi.URLParam(r, "interval"))

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, envelope{"success": false, "error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.tracker.RecentRuns(r.Context(), interval, limit)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{"count": len(runs), "data": runs})
}
