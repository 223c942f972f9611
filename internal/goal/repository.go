package goal

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"orbitus-api/internal/metrics"
	"orbitus-api/internal/student"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Repository interface {
	EnsureStudent(ctx context.Context, studentID, teacherID uuid.UUID) error
	Create(ctx context.Context, g *Goal) error
	Get(ctx context.Context, id, studentID, teacherID uuid.UUID) (*Goal, error)
	Update(ctx context.Context, g *Goal, columns ...string) error
	List(ctx context.Context, studentID uuid.UUID, status string) ([]Goal, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{
		db:      db,
		metrics: m,
	}
}

func (r *repository) EnsureStudent(ctx context.Context, studentID, teacherID uuid.UUID) error {
	start := time.Now()
	err := student.EnsureOwned(ctx, r.db, studentID, teacherID)
	r.metrics.Database.RecordQuery(ctx, "select", "students", time.Since(start), err)
	return err
}

func (r *repository) Create(ctx context.Context, g *Goal) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(g).Returning("*").Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "goals", time.Since(start), err)
	return err
}

func (r *repository) Get(ctx context.Context, id, studentID, teacherID uuid.UUID) (*Goal, error) {
	start := time.Now()
	g := new(Goal)
	err := r.db.NewSelect().
		Model(g).
		Where("g.id = ?", id).
		Where("g.student_id = ?", studentID).
		Where("EXISTS (SELECT 1 FROM students AS s WHERE s.id = g.student_id AND s.teacher_user_id = ?)", teacherID).
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "goals", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}
	return g, nil
}

func (r *repository) Update(ctx context.Context, g *Goal, columns ...string) error {
	g.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	start := time.Now()
	_, err := r.db.NewUpdate().
		Model(g).
		Column(columns...).
		WherePK().
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", "goals", time.Since(start), err)
	return err
}

// statusOrder sorts pending first, then in progress, then completed.
const statusOrder = "CASE g.status WHEN 'pending' THEN 0 WHEN 'in_progress' THEN 1 ELSE 2 END"

func (r *repository) List(ctx context.Context, studentID uuid.UUID, status string) ([]Goal, error) {
	start := time.Now()
	goals := []Goal{}
	q := r.db.NewSelect().
		Model(&goals).
		Where("g.student_id = ?", studentID)
	if status != "" {
		q = q.Where("g.status = ?", status)
	}
	err := q.OrderExpr(statusOrder).OrderExpr("g.created_at DESC").Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "goals", time.Since(start), err)

	return goals, err
}
