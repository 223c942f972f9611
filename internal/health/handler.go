package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"orbitus-api/internal/httputil"
	"orbitus-api/internal/metrics"

	"github.com/go-chi/chi/v5"
)

const checkTimeout = 2 * time.Second

// Check probes one dependency. A nil error means it is reachable.
type Check func(ctx context.Context) error

type Handler struct {
	checks  map[string]Check
	order   []string
	metrics *metrics.HealthMetrics
	logger  *slog.Logger
}

func NewHandler(m *metrics.HealthMetrics, logger *slog.Logger) *Handler {
	return &Handler{
		checks:  make(map[string]Check),
		metrics: m,
		logger:  logger,
	}
}

// AddCheck registers a dependency probed by /ready.
func (h *Handler) AddCheck(name string, check Check) {
	if _, ok := h.checks[name]; !ok {
		h.order = append(h.order, name)
	}
	h.checks[name] = check
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.Health)
	router.Get("/ready", h.Ready)
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ready", Checks: make(map[string]string, len(h.order))}
	code := http.StatusOK

	for _, name := range h.order {
		start := time.Now()
		err := h.checks[name](ctx)
		h.metrics.RecordDependencyCheck(ctx, name, time.Since(start), err)

		if err != nil {
			h.logger.WarnContext(ctx, "dependency not ready", "dependency", name, "error", err)
			resp.Checks[name] = "down"
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "up"
	}

	httputil.RespondWithJSON(w, code, resp)
}
