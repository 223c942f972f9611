package lesson

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"orbitus-api/internal/curriculum"
	"orbitus-api/internal/metrics"
	"orbitus-api/internal/student"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Store opens registration transactions and serves lesson reads.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	ListLessons(ctx context.Context, studentID, teacherID uuid.UUID, limit int) ([]Lesson, error)
}

// Tx is the set of writes a registration performs atomically.
type Tx interface {
	// LockStudent selects the student owned by teacherID FOR UPDATE.
	LockStudent(ctx context.Context, studentID, teacherID uuid.UUID) (*student.Student, error)
	GetTopicWithSkills(ctx context.Context, topicID uuid.UUID) (*curriculum.Topic, error)
	InsertLesson(ctx context.Context, l *Lesson) error
	UpdateStudentProgress(ctx context.Context, studentID uuid.UUID, xp, level int) error
	// AddSkillXP adds xp to the (student, skill) row, creating it when missing,
	// and returns the new current XP.
	AddSkillXP(ctx context.Context, studentID, skillID uuid.UUID, xp int) (int, error)
	SetSkillLevel(ctx context.Context, studentID, skillID uuid.UUID, level int) error
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Store {
	return &repository{
		db:      db,
		metrics: m,
	}
}

func (r *repository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &bunTx{tx: tx, metrics: r.metrics})
	})
}

func (r *repository) ListLessons(ctx context.Context, studentID, teacherID uuid.UUID, limit int) ([]Lesson, error) {
	start := time.Now()
	err := student.EnsureOwned(ctx, r.db, studentID, teacherID)
	r.metrics.Database.RecordQuery(ctx, "select", "students", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	lessons := []Lesson{}
	err = r.db.NewSelect().
		Model(&lessons).
		Relation("Topic").
		Where("l.student_id = ?", studentID).
		Where("l.teacher_user_id = ?", teacherID).
		OrderExpr("l.held_at DESC, l.created_at DESC").
		Limit(limit).
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "lessons", time.Since(start), err)

	return lessons, err
}

type bunTx struct {
	tx      bun.Tx
	metrics *metrics.Metrics
}

func (t *bunTx) LockStudent(ctx context.Context, studentID, teacherID uuid.UUID) (*student.Student, error) {
	start := time.Now()
	st := new(student.Student)
	err := t.tx.NewSelect().
		Model(st).
		Where("s.id = ?", studentID).
		Where("s.teacher_user_id = ?", teacherID).
		For("UPDATE").
		Scan(ctx)
	t.metrics.Database.RecordQuery(ctx, "select_for_update", "students", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, student.ErrStudentNotFound
		}
		return nil, err
	}
	return st, nil
}

func (t *bunTx) GetTopicWithSkills(ctx context.Context, topicID uuid.UUID) (*curriculum.Topic, error) {
	start := time.Now()
	topic, err := curriculum.GetTopicWithSkills(ctx, t.tx, topicID)
	t.metrics.Database.RecordQuery(ctx, "select", "topics", time.Since(start), err)
	return topic, err
}

func (t *bunTx) InsertLesson(ctx context.Context, l *Lesson) error {
	start := time.Now()
	_, err := t.tx.NewInsert().Model(l).Returning("created_at").Exec(ctx)
	t.metrics.Database.RecordQuery(ctx, "insert", "lessons", time.Since(start), err)
	return err
}

func (t *bunTx) UpdateStudentProgress(ctx context.Context, studentID uuid.UUID, xp, level int) error {
	start := time.Now()
	_, err := t.tx.NewUpdate().
		Model((*student.Student)(nil)).
		Set("xp = ?", xp).
		Set("level = ?", level).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", studentID).
		Exec(ctx)
	t.metrics.Database.RecordQuery(ctx, "update", "students", time.Since(start), err)
	return err
}

const addSkillXPQuery = `
INSERT INTO skill_progress (id, student_id, skill_id, current_xp, level, updated_at)
VALUES (?, ?, ?, ?, 1, now())
ON CONFLICT (student_id, skill_id) DO UPDATE
SET current_xp = skill_progress.current_xp + EXCLUDED.current_xp,
    updated_at = now()
RETURNING current_xp`

func (t *bunTx) AddSkillXP(ctx context.Context, studentID, skillID uuid.UUID, xp int) (int, error) {
	start := time.Now()
	var current int
	err := t.tx.NewRaw(addSkillXPQuery, uuid.New(), studentID, skillID, xp).Scan(ctx, &current)
	t.metrics.Database.RecordQuery(ctx, "upsert", "skill_progress", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to add skill xp: %w", err)
	}
	return current, nil
}

func (t *bunTx) SetSkillLevel(ctx context.Context, studentID, skillID uuid.UUID, level int) error {
	start := time.Now()
	_, err := t.tx.NewUpdate().
		Model((*SkillProgress)(nil)).
		Set("level = ?", level).
		Where("student_id = ?", studentID).
		Where("skill_id = ?", skillID).
		Exec(ctx)
	t.metrics.Database.RecordQuery(ctx, "update", "skill_progress", time.Since(start), err)
	return err
}
