package curriculum

import (
	"log/slog"
	"net/http"

	"orbitus-api/internal/httputil"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	repo   *Repository
	logger *slog.Logger
}

func NewHandler(repo *Repository, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	// /students/topics is the path the lesson form calls.
	router.Get("/students/topics", h.ListTopics)
	router.Get("/topics", h.ListTopics)
	router.Get("/skills", h.ListSkills)
}

func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.repo.ListTopics(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list topics", "error", err)
		httputil.RespondWithError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, topics)
}

func (h *Handler) ListSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := h.repo.ListSkills(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list skills", "error", err)
		httputil.RespondWithError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, skills)
}
