package student

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"orbitus-api/internal/metrics"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Repository interface {
	Create(ctx context.Context, student *Student) (*Student, error)
	List(ctx context.Context, teacherID uuid.UUID, filter ListFilter) ([]Student, int, error)
	GetByID(ctx context.Context, id, teacherID uuid.UUID) (*Student, error)
	Update(ctx context.Context, student *Student, columns ...string) error
	ListClassGroups(ctx context.Context) ([]ClassGroup, error)
	CreateClassGroup(ctx context.Context, group *ClassGroup) error
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

func (r *repository) Create(ctx context.Context, student *Student) (*Student, error) {
	if student.ID == uuid.Nil {
		student.ID = uuid.New()
	}

	start := time.Now()
	_, err := r.db.NewInsert().Model(student).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "students", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, student.ID, student.TeacherUserID)
}

func (r *repository) List(ctx context.Context, teacherID uuid.UUID, filter ListFilter) ([]Student, int, error) {
	start := time.Now()
	var students []Student
	q := r.db.NewSelect().
		Model(&students).
		Relation("ClassGroup").
		Where("s.teacher_user_id = ?", teacherID)

	if filter.ClassGroupID != nil {
		q = q.Where("s.class_group_id = ?", *filter.ClassGroupID)
	}
	if filter.Status != "" {
		q = q.Where("s.status = ?", filter.Status)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("s.display_name ILIKE ?", pattern).
				WhereOr("s.full_name ILIKE ?", pattern)
		})
	}
	if filter.NoLessonSinceDays > 0 {
		since := time.Now().AddDate(0, 0, -filter.NoLessonSinceDays)
		q = q.Where("NOT EXISTS (SELECT 1 FROM lessons AS l WHERE l.student_id = s.id AND l.held_at >= ?)", since)
	}

	total, err := q.
		OrderExpr("s.display_name ASC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		ScanAndCount(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "students", time.Since(start), err)

	if err != nil {
		return nil, 0, err
	}
	return students, total, nil
}

// GetByID returns the student only when it belongs to teacherID.
func (r *repository) GetByID(ctx context.Context, id, teacherID uuid.UUID) (*Student, error) {
	start := time.Now()
	student := new(Student)
	err := r.db.NewSelect().
		Model(student).
		Relation("ClassGroup").
		Where("s.id = ?", id).
		Where("s.teacher_user_id = ?", teacherID).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "students", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return student, nil
}

func (r *repository) Update(ctx context.Context, student *Student, columns ...string) error {
	student.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	start := time.Now()
	result, err := r.db.NewUpdate().
		Model(student).
		Column(columns...).
		Where("id = ?", student.ID).
		Where("teacher_user_id = ?", student.TeacherUserID).
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "students", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrStudentNotFound
	}
	return nil
}

func (r *repository) ListClassGroups(ctx context.Context) ([]ClassGroup, error) {
	start := time.Now()
	groups := []ClassGroup{}
	err := r.db.NewSelect().Model(&groups).OrderExpr("cg.name ASC").Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "class_groups", time.Since(start), err)

	return groups, err
}

// CreateClassGroup inserts the group unless one with the same name exists.
func (r *repository) CreateClassGroup(ctx context.Context, group *ClassGroup) error {
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}

	start := time.Now()
	_, err := r.db.NewInsert().Model(group).On("CONFLICT (name) DO NOTHING").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "class_groups", time.Since(start), err)

	return err
}

// EnsureOwned returns ErrStudentNotFound unless the student exists and belongs to teacherID.
func EnsureOwned(ctx context.Context, db bun.IDB, id, teacherID uuid.UUID) error {
	exists, err := db.NewSelect().
		Model((*Student)(nil)).
		Where("s.id = ?", id).
		Where("s.teacher_user_id = ?", teacherID).
		Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return ErrStudentNotFound
	}
	return nil
}
