package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"railboard/internal/aggregate"
	"railboard/internal/domain"
	"railboard/internal/repository"
	"railboard/internal/service"
	"railboard/pkg/errors"
	"railboard/pkg/logger"
)

// TrafficHandler serves the aggregated traffic reports the range
// controllers maintain in the background. Requests never trigger fetches;
// they only read the latest controller snapshot.
type TrafficHandler struct {
	controllers map[domain.RangeClass]*service.Controller
	snapshots   repository.TrafficSnapshotRepository
	logger      *logger.Logger
	now         func() time.Time
}

// NewTrafficHandler creates a new traffic handler. snapshots may be nil
// when no database is configured; the history endpoint then reports
// unavailable.
func NewTrafficHandler(
	controllers map[domain.RangeClass]*service.Controller,
	snapshots repository.TrafficSnapshotRepository,
	log *logger.Logger,
) *TrafficHandler {
	return &TrafficHandler{
		controllers: controllers,
		snapshots:   snapshots,
		logger:      log,
		now:         time.Now,
	}
}

// RegisterRoutes mounts the traffic endpoints on the router.
func (h *TrafficHandler) RegisterRoutes(r chi.Router) {
	r.Get("/traffic/history", h.History)
	r.Get("/traffic/{rangeClass}", h.Get)
}

// Get handles GET /api/v1/traffic/{rangeClass}
func (h *TrafficHandler) Get(w http.ResponseWriter, r *http.Request) {
	class, err := domain.ParseRangeClass(chi.URLParam(r, "rangeClass"))
	if err != nil {
		respondError(w, http.StatusBadRequest, string(errors.ErrorTypeValidation), err.Error())
		return
	}

	controller, ok := h.controllers[class]
	if !ok {
		respondError(w, http.StatusNotFound, string(errors.ErrorTypeNotFound), "range class not served")
		return
	}

	snap := controller.Snapshot()
	if class == domain.RangeWeek {
		h.reconcileWeek(&snap)
	}

	respondJSON(w, http.StatusOK, snap)
}

// reconcileWeek overlays the live today total onto the weekly series so the
// week chart's last point matches the today counter between weekly
// refreshes.
func (h *TrafficHandler) reconcileWeek(snap *service.Snapshot) {
	if snap.Report == nil || len(snap.Report.Daily) == 0 {
		return
	}
	todayController, ok := h.controllers[domain.RangeToday]
	if !ok {
		return
	}
	todaySnap := todayController.Snapshot()
	if todaySnap.Report == nil {
		return
	}
	today := domain.DateOf(h.now())
	snap.Report.Daily = aggregate.Reconcile(snap.Report.Daily, today, todaySnap.Report.Total)
}

// History handles GET /api/v1/traffic/history
func (h *TrafficHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		respondError(w, http.StatusServiceUnavailable, string(errors.ErrorTypeInternal), "history archive not configured")
		return
	}

	limit := 30
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			respondError(w, http.StatusBadRequest, string(errors.ErrorTypeValidation), "limit must be between 1 and 365")
			return
		}
		limit = parsed
	}

	totals, err := h.snapshots.RecentDailyTotals(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load daily history")
		respondError(w, http.StatusInternalServerError, string(errors.ErrorTypeInternal), "failed to load history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"days": totals,
	})
}
