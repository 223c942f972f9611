package blocker

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
	Create(ctx context.Context, b *Blocker) error
	Get(ctx context.Context, id, studentID, teacherID uuid.UUID) (*Blocker, error)
	Update(ctx context.Context, b *Blocker, columns ...string) error
	List(ctx context.Context, studentID uuid.UUID, status string) ([]Blocker, error)
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

func (r *repository) Create(ctx context.Context, b *Blocker) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(b).Returning("*").Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "blockers", time.Since(start), err)
	return err
}

// Get finds a blocker by id, student and owning teacher in one query.
func (r *repository) Get(ctx context.Context, id, studentID, teacherID uuid.UUID) (*Blocker, error) {
	start := time.Now()
	b := new(Blocker)
	err := r.db.NewSelect().
		Model(b).
		Where("b.id = ?", id).
		Where("b.student_id = ?", studentID).
		Where("EXISTS (SELECT 1 FROM students AS s WHERE s.id = b.student_id AND s.teacher_user_id = ?)", teacherID).
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "blockers", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBlockerNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *repository) Update(ctx context.Context, b *Blocker, columns ...string) error {
	b.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	start := time.Now()
	_, err := r.db.NewUpdate().
		Model(b).
		Column(columns...).
		WherePK().
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", "blockers", time.Since(start), err)
	return err
}

func (r *repository) List(ctx context.Context, studentID uuid.UUID, status string) ([]Blocker, error) {
	start := time.Now()
	blockers := []Blocker{}
	q := r.db.NewSelect().
		Model(&blockers).
		Where("b.student_id = ?", studentID)
	if status != "" {
		q = q.Where("b.status = ?", status)
	}
	err := q.OrderExpr("b.created_at DESC").Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "blockers", time.Since(start), err)

	return blockers, err
}
