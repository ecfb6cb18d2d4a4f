package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"railboard/internal/domain"
	"railboard/internal/service"
	"railboard/pkg/errors"
	"railboard/pkg/logger"
)

// AdminHandler exposes operational endpoints behind the admin auth
// middleware.
type AdminHandler struct {
	controllers map[domain.RangeClass]*service.Controller
	logger      *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(controllers map[domain.RangeClass]*service.Controller, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		controllers: controllers,
		logger:      log,
	}
}

// RegisterRoutes mounts the admin endpoints on the router.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Post("/refresh/{rangeClass}", h.Refresh)
}

// Refresh handles POST /api/v1/admin/refresh/{rangeClass}. It schedules an
// out-of-band refresh and returns immediately; the caller polls the traffic
// endpoint for the result.
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
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

	controller.ForceRefresh()
	h.logger.WithField("range_class", string(class)).Info("Manual refresh scheduled")

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":      "scheduled",
		"range_class": string(class),
	})
}
