package reception

import (
	"context"
	"net/http"
	"time"

	"klinik/internal/gateway"
	httputil "klinik/pkg/http"
	"klinik/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type HealthResponse struct {
	Status    string `json:"status"`
	ClinicAPI string `json:"clinicApi,omitempty"`
}

type HealthHandler struct {
	gw    gateway.Gateway
	orgID string
	log   *logger.Logger
}

func NewHealthHandler(gw gateway.Gateway, organizationID string, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		gw:    gw,
		orgID: organizationID,
		log:   log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

// Ready probes the clinic API with an uncached branch listing.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := h.gw.ListBranches(gateway.NoCache(ctx), h.orgID); err != nil {
		h.log.Error("Clinic API health check failed",
			"error", err,
			"path", r.URL.Path,
		)
		if writeErr := httputil.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "unavailable",
			ClinicAPI: "error",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "ready",
		ClinicAPI: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
