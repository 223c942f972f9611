package blocker

import (
	"errors"
	"log/slog"
	"net/http"

	"orbitus-api/internal/auth"
	"orbitus-api/internal/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router, write func(http.Handler) http.Handler) {
	router.Get("/students/{id}/blockers", h.List)
	router.With(write).Post("/students/{id}/blockers", h.Create)
	router.With(write).Patch("/students/{id}/blockers/{blockerId}", h.Update)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherID(r.Context())

	studentID, err := httputil.UUIDParam(r, "id")
	if err != nil {
		h.handleServiceError(w, r, ErrStudentNotFound)
		return
	}

	var req CreateBlockerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	b, err := h.service.Create(r.Context(), studentID, teacherID, req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "blocker created", "blocker_id", b.ID, "student_id", studentID, "severity", b.Severity)
	httputil.RespondWithJSON(w, http.StatusCreated, b)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherID(r.Context())

	studentID, err := httputil.UUIDParam(r, "id")
	if err != nil {
		h.handleServiceError(w, r, ErrStudentNotFound)
		return
	}
	blockerID, err := httputil.UUIDParam(r, "blockerId")
	if err != nil {
		h.handleServiceError(w, r, ErrBlockerNotFound)
		return
	}

	var req UpdateBlockerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	b, err := h.service.Update(r.Context(), blockerID, studentID, teacherID, req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, b)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherID(r.Context())

	studentID, err := httputil.UUIDParam(r, "id")
	if err != nil {
		h.handleServiceError(w, r, ErrStudentNotFound)
		return
	}

	blockers, err := h.service.List(r.Context(), studentID, teacherID, r.URL.Query().Get("status"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, blockers)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrStudentNotFound):
		httputil.RespondWithError(w, r, http.StatusNotFound, "student not found")
	case errors.Is(err, ErrBlockerNotFound):
		httputil.RespondWithError(w, r, http.StatusNotFound, "blocker not found")
	case errors.Is(err, ErrInvalidInput):
		httputil.RespondWithError(w, r, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "blocker request failed", "error", err)
		httputil.RespondWithError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
