package goal_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"orbitus-api/internal/goal"
	"orbitus-api/internal/metrics"
	"orbitus-api/internal/student"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	owners map[uuid.UUID]uuid.UUID
	goals  map[uuid.UUID]goal.Goal
	seq    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		owners: map[uuid.UUID]uuid.UUID{},
		goals:  map[uuid.UUID]goal.Goal{},
	}
}

func (f *fakeRepo) EnsureStudent(ctx context.Context, studentID, teacherID uuid.UUID) error {
	if owner, ok := f.owners[studentID]; !ok || owner != teacherID {
		return student.ErrStudentNotFound
	}
	return nil
}

func (f *fakeRepo) Create(ctx context.Context, g *goal.Goal) error {
	f.seq++
	g.CreatedAt = time.Date(2025, 1, 1, 0, 0, f.seq, 0, time.UTC)
	g.UpdatedAt = g.CreatedAt
	f.goals[g.ID] = *g
	return nil
}

func (f *fakeRepo) Get(ctx context.Context, id, studentID, teacherID uuid.UUID) (*goal.Goal, error) {
	g, ok := f.goals[id]
	if !ok || g.StudentID != studentID || f.owners[studentID] != teacherID {
		return nil, goal.ErrGoalNotFound
	}
	return &g, nil
}

func (f *fakeRepo) Update(ctx context.Context, g *goal.Goal, columns ...string) error {
	f.goals[g.ID] = *g
	return nil
}

var rank = map[string]int{goal.StatusPending: 0, goal.StatusInProgress: 1, goal.StatusCompleted: 2}

func (f *fakeRepo) List(ctx context.Context, studentID uuid.UUID, status string) ([]goal.Goal, error) {
	out := []goal.Goal{}
	for _, g := range f.goals {
		if g.StudentID == studentID && (status == "" || g.Status == status) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if rank[out[i].Status] != rank[out[j].Status] {
			return rank[out[i].Status] < rank[out[j].Status]
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func setup(t *testing.T) (*goal.Service, uuid.UUID, uuid.UUID) {
	t.Helper()
	repo := newFakeRepo()
	teacherID := uuid.New()
	studentID := uuid.New()
	repo.owners[studentID] = teacherID
	return goal.NewService(repo, metrics.NewMock()), teacherID, studentID
}

func strPtr(s string) *string { return &s }

func TestParseDeadline(t *testing.T) {
	d, err := goal.ParseDeadline("2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = goal.ParseDeadline("2025-03-01T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, d.Hour())

	_, err = goal.ParseDeadline("next week")
	assert.ErrorIs(t, err, goal.ErrInvalidInput)
}

func TestCreate(t *testing.T) {
	svc, teacherID, studentID := setup(t)
	ctx := context.Background()

	t.Run("defaults to pending", func(t *testing.T) {
		g, err := svc.Create(ctx, studentID, teacherID, goal.CreateGoalRequest{
			Title:       "  Completar módulo HTML ",
			Description: strPtr(" tags e atributos "),
			DeadlineAt:  strPtr("2025-03-01"),
		})
		require.NoError(t, err)

		assert.Equal(t, "Completar módulo HTML", g.Title)
		require.NotNil(t, g.Description)
		assert.Equal(t, "tags e atributos", *g.Description)
		assert.Equal(t, goal.StatusPending, g.Status)
		require.NotNil(t, g.DeadlineAt)
		assert.Nil(t, g.CompletedAt)
	})

	t.Run("created completed", func(t *testing.T) {
		g, err := svc.Create(ctx, studentID, teacherID, goal.CreateGoalRequest{
			Title:  "Primeira página",
			Status: strPtr(goal.StatusCompleted),
		})
		require.NoError(t, err)
		assert.NotNil(t, g.CompletedAt)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := svc.Create(ctx, studentID, teacherID, goal.CreateGoalRequest{Title: " "})
		assert.ErrorIs(t, err, goal.ErrInvalidInput)

		_, err = svc.Create(ctx, studentID, teacherID, goal.CreateGoalRequest{Title: "x", DeadlineAt: strPtr("soon")})
		assert.ErrorIs(t, err, goal.ErrInvalidInput)
	})

	t.Run("foreign student", func(t *testing.T) {
		_, err := svc.Create(ctx, studentID, uuid.New(), goal.CreateGoalRequest{Title: "x"})
		assert.ErrorIs(t, err, goal.ErrStudentNotFound)
	})
}

func TestUpdate(t *testing.T) {
	svc, teacherID, studentID := setup(t)
	ctx := context.Background()

	g, err := svc.Create(ctx, studentID, teacherID, goal.CreateGoalRequest{Title: "Loops"})
	require.NoError(t, err)

	done, err := svc.Update(ctx, g.ID, studentID, teacherID, goal.UpdateGoalRequest{Status: strPtr(goal.StatusCompleted)})
	require.NoError(t, err)
	assert.Equal(t, goal.StatusCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	back, err := svc.Update(ctx, g.ID, studentID, teacherID, goal.UpdateGoalRequest{Status: strPtr(goal.StatusInProgress)})
	require.NoError(t, err)
	assert.Equal(t, goal.StatusInProgress, back.Status)
	assert.Nil(t, back.CompletedAt)

	withDeadline, err := svc.Update(ctx, g.ID, studentID, teacherID, goal.UpdateGoalRequest{DeadlineAt: strPtr("2025-06-30")})
	require.NoError(t, err)
	assert.Equal(t, goal.StatusInProgress, withDeadline.Status)
	require.NotNil(t, withDeadline.DeadlineAt)

	cleared, err := svc.Update(ctx, g.ID, studentID, teacherID, goal.UpdateGoalRequest{DeadlineAt: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.DeadlineAt)

	_, err = svc.Update(ctx, g.ID, studentID, uuid.New(), goal.UpdateGoalRequest{Status: strPtr(goal.StatusCompleted)})
	assert.ErrorIs(t, err, goal.ErrGoalNotFound)

	_, err = svc.Update(ctx, g.ID, studentID, teacherID, goal.UpdateGoalRequest{Status: strPtr("done")})
	assert.ErrorIs(t, err, goal.ErrInvalidInput)
}

func TestList(t *testing.T) {
	svc, teacherID, studentID := setup(t)
	ctx := context.Background()

	for _, req := range []goal.CreateGoalRequest{
		{Title: "a", Status: strPtr(goal.StatusCompleted)},
		{Title: "b"},
		{Title: "c", Status: strPtr(goal.StatusInProgress)},
		{Title: "d"},
	} {
		_, err := svc.Create(ctx, studentID, teacherID, req)
		require.NoError(t, err)
	}

	goals, err := svc.List(ctx, studentID, teacherID, "")
	require.NoError(t, err)

	titles := make([]string, 0, len(goals))
	for _, g := range goals {
		titles = append(titles, g.Title)
	}
	assert.Equal(t, []string{"d", "b", "c", "a"}, titles)

	pending, err := svc.List(ctx, studentID, teacherID, goal.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = svc.List(ctx, studentID, teacherID, "bogus")
	assert.ErrorIs(t, err, goal.ErrInvalidInput)
}
