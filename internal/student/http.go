package student

import (
	"errors"
	"log/slog"
	"net/http"

	"orbitus-api/internal/auth"
	"orbitus-api/internal/httputil"
	"orbitus-api/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  Service
	validate *validator.Validate
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewHandler(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
		metrics:  metrics,
	}
}

// RegisterRoutes mounts the roster endpoints. write guards mutating routes.
func (h *Handler) RegisterRoutes(router chi.Router, write func(http.Handler) http.Handler) {
	router.Get("/students", h.ListStudents)
	router.Get("/students/export", h.ExportRoster)
	router.Get("/students/{id}", h.GetStudent)
	router.With(write).Post("/students", h.CreateStudent)
	router.With(write).Patch("/students/{id}", h.UpdateStudent)
	router.Get("/class-groups", h.ListClassGroups)
}

func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherID(r.Context())

	var req CreateStudentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.InfoContext(r.Context(), "creating student", "display_name", req.DisplayName)
	created, err := h.service.CreateStudent(r.Context(), teacherID, req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordStudentCreated(r.Context())

	httputil.RespondWithJSON(w, http.StatusCreated, created)
}

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherID(r.Context())

	filter, err := parseListFilter(r)
	if err != nil {
		httputil.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.ListStudents(r.Context(), teacherID, filter)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherID(r.Context())

	id, err := httputil.UUIDParam(r, "id")
	if err != nil {
		h.handleServiceError(w, r, ErrStudentNotFound)
		return
	}

	student, err := h.service.GetStudent(r.Context(), id, teacherID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, student)
}

func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherID(r.Context())

	id, err := httputil.UUIDParam(r, "id")
	if err != nil {
		h.handleServiceError(w, r, ErrStudentNotFound)
		return
	}

	var req UpdateStudentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.InfoContext(r.Context(), "updating student", "student_id", id)
	updated, err := h.service.UpdateStudent(r.Context(), id, teacherID, req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, updated)
}

func (h *Handler) ExportRoster(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherID(r.Context())

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="alunos.xlsx"`)

	if err := h.service.ExportRoster(r.Context(), teacherID, w); err != nil {
		// Headers may already be flushed; log and stop.
		h.logger.ErrorContext(r.Context(), "roster export failed", "error", err)
		return
	}
}

func (h *Handler) ListClassGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListClassGroups(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, groups)
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	filter := ListFilter{
		Search: q.Get("search"),
		Status: q.Get("status"),
	}

	var err error
	if filter.ClassGroupID, err = httputil.QueryUUID(r, "classGroupId"); err != nil {
		return filter, err
	}
	if filter.NoLessonSinceDays, err = httputil.QueryInt(r, "noLessonSinceDays", 0); err != nil {
		return filter, err
	}
	if filter.Limit, err = httputil.QueryInt(r, "limit", DefaultListLimit); err != nil {
		return filter, err
	}
	if filter.Offset, err = httputil.QueryInt(r, "offset", 0); err != nil {
		return filter, err
	}
	return filter, nil
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrStudentNotFound) {
		h.logger.InfoContext(r.Context(), "student not found")
		httputil.RespondWithError(w, r, http.StatusNotFound, "student not found")
		return
	}
	if errors.Is(err, ErrInvalidInput) {
		h.logger.InfoContext(r.Context(), "invalid input", "error", err)
		httputil.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.ErrorContext(r.Context(), "internal error", "error", err)
	httputil.RespondWithError(w, r, http.StatusInternalServerError, "internal server error")
}
