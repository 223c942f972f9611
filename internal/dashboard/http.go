package dashboard

import (
	"errors"
	"log/slog"
	"net/http"

	"orbitus-api/internal/auth"
	"orbitus-api/internal/httputil"
	"orbitus-api/internal/student"

	"github.com/go-chi/chi/v5"
)

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
	router.Get("/dashboard/overview", h.Overview)
	router.Get("/dashboard/by-class", h.ByClass)
	router.Get("/students/{id}/summary", h.StudentSummary)
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherID(r.Context())

	overview, err := h.service.Overview(r.Context(), teacherID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, overview)
}

func (h *Handler) ByClass(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherID(r.Context())

	stats, err := h.service.ByClass(r.Context(), teacherID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, stats)
}

func (h *Handler) StudentSummary(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherID(r.Context())

	studentID, err := httputil.UUIDParam(r, "id")
	if err != nil {
		h.handleServiceError(w, r, student.ErrStudentNotFound)
		return
	}

	summary, err := h.service.StudentSummary(r.Context(), studentID, teacherID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, student.ErrStudentNotFound) {
		httputil.RespondWithError(w, r, http.StatusNotFound, "student not found")
		return
	}
	h.logger.ErrorContext(r.Context(), "dashboard query failed", "error", err)
	httputil.RespondWithError(w, r, http.StatusInternalServerError, "internal server error")
}
