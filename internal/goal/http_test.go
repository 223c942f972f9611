package goal_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"orbitus-api/internal/auth"
	"orbitus-api/internal/goal"
	"orbitus-api/internal/httputil"
	"orbitus-api/internal/logger"
	"orbitus-api/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, role auth.Role) (http.Handler, uuid.UUID) {
	t.Helper()
	repo := newFakeRepo()
	teacherID := uuid.New()
	studentID := uuid.New()
	repo.owners[studentID] = teacherID

	handler := goal.NewHandler(goal.NewService(repo, metrics.NewMock()), logger.Discard())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := auth.WithPrincipal(req.Context(), auth.Principal{ID: teacherID, Role: role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	handler.RegisterRoutes(r, auth.RequireRole(auth.RoleAdmin))
	return r, studentID
}

func TestHandlerCreateAndList(t *testing.T) {
	router, studentID := newRouter(t, auth.RoleAdmin)

	body := `{"title":"Completar módulo HTML","deadlineAt":"2025-03-01"}`
	req := httptest.NewRequest(http.MethodPost, "/students/"+studentID.String()+"/goals", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created goal.Goal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, goal.StatusPending, created.Status)

	req = httptest.NewRequest(http.MethodGet, "/students/"+studentID.String()+"/goals", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var goals []goal.Goal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &goals))
	require.Len(t, goals, 1)
	assert.Equal(t, created.ID, goals[0].ID)
}

func TestHandlerErrors(t *testing.T) {
	router, studentID := newRouter(t, auth.RoleAdmin)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed student id", http.MethodGet, "/students/nope/goals", "", http.StatusNotFound},
		{"malformed goal id", http.MethodPatch, "/students/" + studentID.String() + "/goals/nope", `{"status":"completed"}`, http.StatusNotFound},
		{"unknown student", http.MethodGet, "/students/" + uuid.NewString() + "/goals", "", http.StatusNotFound},
		{"missing title", http.MethodPost, "/students/" + studentID.String() + "/goals", `{}`, http.StatusBadRequest},
		{"bad status", http.MethodPost, "/students/" + studentID.String() + "/goals", `{"title":"x","status":"done"}`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/students/" + studentID.String() + "/goals", `{"title":"x","xp":10}`, http.StatusBadRequest},
		{"unknown goal", http.MethodPatch, "/students/" + studentID.String() + "/goals/" + uuid.NewString(), `{"status":"completed"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			var resp httputil.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestHandlerViewerCannotWrite(t *testing.T) {
	router, studentID := newRouter(t, auth.RoleViewer)

	req := httptest.NewRequest(http.MethodPost, "/students/"+studentID.String()+"/goals", strings.NewReader(`{"title":"x"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/students/"+studentID.String()+"/goals", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
