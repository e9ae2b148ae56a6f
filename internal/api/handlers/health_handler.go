package handlers

import (
	"context"
	"net/http"

	"github.com/isdelr/messagely-be/internal/api/respond"
	"github.com/isdelr/messagely-be/internal/monitoring"
	"github.com/rs/zerolog/hlog"
)

// StatsSampler provides a resource usage snapshot.
type StatsSampler interface {
	Sample(ctx context.Context) (monitoring.SystemStats, error)
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string                  `json:"status"`
	System *monitoring.SystemStats `json:"system,omitempty"`
}

// HealthHandler reports liveness and, when available, resource usage.
type HealthHandler struct {
	stats StatsSampler
}

// NewHealthHandler creates a HealthHandler. stats may be nil.
func NewHealthHandler(stats StatsSampler) *HealthHandler {
	return &HealthHandler{stats: stats}
}

// Health always answers 200 while the process serves requests; a failed
// sample only drops the system section.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if h.stats != nil {
		stats, err := h.stats.Sample(r.Context())
		if err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("Failed to sample system stats")
		} else {
			resp.System = &stats
		}
	}
	respond.JSON(w, http.StatusOK, resp)
}
