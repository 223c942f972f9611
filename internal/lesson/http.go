package lesson

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"orbitus-api/internal/auth"
	"orbitus-api/internal/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
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
	router.Get("/students/{id}/lessons", h.ListLessons)
	router.With(write).Post("/students/{id}/lessons", h.RegisterLesson)
}

func (h *Handler) RegisterLesson(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherID(r.Context())

	studentID, err := httputil.UUIDParam(r, "id")
	if err != nil {
		h.handleServiceError(w, r, ErrStudentNotFound)
		return
	}

	var req RegisterLessonRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.logger.WarnContext(r.Context(), "validation failed", "error", err)
		httputil.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	heldAt, err := time.Parse(time.RFC3339, req.HeldAt)
	if err != nil {
		httputil.RespondWithError(w, r, http.StatusBadRequest, "heldAt must be an RFC3339 timestamp")
		return
	}

	created, err := h.service.RegisterLesson(r.Context(), RegisterLessonInput{
		StudentID:       studentID,
		TeacherUserID:   teacherID,
		TopicID:         uuid.MustParse(req.TopicID),
		HeldAt:          heldAt,
		DurationMinutes: req.DurationMinutes,
		Rating:          req.Rating,
		Notes:           req.Notes,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, created)
}

func (h *Handler) ListLessons(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherID(r.Context())

	studentID, err := httputil.UUIDParam(r, "id")
	if err != nil {
		h.handleServiceError(w, r, ErrStudentNotFound)
		return
	}

	limit, err := httputil.QueryInt(r, "limit", DefaultListLimit)
	if err != nil {
		httputil.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	lessons, err := h.service.ListLessons(r.Context(), studentID, teacherID, limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, lessons)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrStudentNotFound):
		httputil.RespondWithError(w, r, http.StatusNotFound, "student not found")
	case errors.Is(err, ErrTopicNotFound):
		httputil.RespondWithError(w, r, http.StatusBadRequest, "topic not found")
	case errors.Is(err, ErrInvalidInput):
		httputil.RespondWithError(w, r, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "lesson request failed", "error", err)
		httputil.RespondWithError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
