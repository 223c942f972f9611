package assistant

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"orbitus-api/internal/httputil"

	"github.com/go-chi/chi/v5"
)

type chatRequest struct {
	Message string `json:"message"`
}

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/ai/status", h.Status)
	router.Post("/ai/chat", h.Chat)
	router.Get("/ai/insights", h.Insights)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	httputil.RespondWithJSON(w, http.StatusOK, map[string]bool{"available": h.service.Available()})
}

// Chat tolerates a missing or malformed body and answers with a hint.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.DebugContext(r.Context(), "chat body not decoded", "error", err)
	}

	reply := h.service.Chat(r.Context(), req.Message)
	httputil.RespondWithJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	httputil.RespondWithJSON(w, http.StatusOK, map[string]string{"insights": h.service.Insights(r.Context())})
}
