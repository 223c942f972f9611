package dashboard

import (
	"context"
	"time"

	"orbitus-api/internal/blocker"
	"orbitus-api/internal/goal"
	"orbitus-api/internal/lesson"
	"orbitus-api/internal/metrics"
	"orbitus-api/internal/student"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Repository interface {
	ActiveStudents(ctx context.Context, teacherID uuid.UUID) ([]StudentRow, error)
	LastLessons(ctx context.Context, teacherID uuid.UUID) ([]LastLesson, error)
	LessonsSince(ctx context.Context, teacherID uuid.UUID, since time.Time) ([]LessonXP, error)
	ActiveBlockerTopics(ctx context.Context, teacherID uuid.UUID) ([]string, error)
	TopicDurations(ctx context.Context, teacherID uuid.UUID) ([]TopicDuration, error)

	GetStudent(ctx context.Context, id, teacherID uuid.UUID) (*student.Student, error)
	RecentLessons(ctx context.Context, studentID uuid.UUID, limit int) ([]lesson.Lesson, error)
	SkillProgress(ctx context.Context, studentID uuid.UUID) ([]lesson.SkillProgress, error)
	CountActiveBlockers(ctx context.Context, studentID uuid.UUID) (int, error)
	CountActiveGoals(ctx context.Context, studentID uuid.UUID) (int, error)
}

type repository struct {
	db       *bun.DB
	students student.Repository
	metrics  *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{
		db:       db,
		students: student.NewRepository(db, m),
		metrics:  m,
	}
}

// activeStudentIDs selects the ids of the teacher's active students.
func (r *repository) activeStudentIDs(teacherID uuid.UUID) *bun.SelectQuery {
	return r.db.NewSelect().
		Model((*student.Student)(nil)).
		Column("s.id").
		Where("s.teacher_user_id = ?", teacherID).
		Where("s.status = ?", student.StatusActive)
}

func (r *repository) ActiveStudents(ctx context.Context, teacherID uuid.UUID) ([]StudentRow, error) {
	start := time.Now()
	rows := []StudentRow{}
	err := r.db.NewSelect().
		TableExpr("students AS s").
		ColumnExpr("s.id, s.display_name, s.xp, s.class_group_id").
		ColumnExpr("cg.name AS class_group_name").
		ColumnExpr("(SELECT count(*) FROM blockers AS b WHERE b.student_id = s.id AND b.status = ?) AS active_blockers", blocker.StatusActive).
		Join("LEFT JOIN class_groups AS cg ON cg.id = s.class_group_id").
		Where("s.teacher_user_id = ?", teacherID).
		Where("s.status = ?", student.StatusActive).
		OrderExpr("s.display_name ASC, s.id ASC").
		Scan(ctx, &rows)
	r.metrics.Database.RecordQuery(ctx, "select", "students", time.Since(start), err)

	return rows, err
}

func (r *repository) LastLessons(ctx context.Context, teacherID uuid.UUID) ([]LastLesson, error) {
	start := time.Now()
	rows := []LastLesson{}
	err := r.db.NewSelect().
		TableExpr("lessons AS l").
		ColumnExpr("l.student_id").
		ColumnExpr("max(l.held_at) AS last_held_at").
		Where("l.student_id IN (?)", r.activeStudentIDs(teacherID)).
		Group("l.student_id").
		Scan(ctx, &rows)
	r.metrics.Database.RecordQuery(ctx, "select", "lessons", time.Since(start), err)

	return rows, err
}

func (r *repository) LessonsSince(ctx context.Context, teacherID uuid.UUID, since time.Time) ([]LessonXP, error) {
	start := time.Now()
	rows := []LessonXP{}
	err := r.db.NewSelect().
		TableExpr("lessons AS l").
		ColumnExpr("l.student_id, l.xp_earned").
		Where("l.student_id IN (?)", r.activeStudentIDs(teacherID)).
		Where("l.held_at >= ?", since).
		OrderExpr("l.held_at ASC").
		Scan(ctx, &rows)
	r.metrics.Database.RecordQuery(ctx, "select", "lessons", time.Since(start), err)

	return rows, err
}

func (r *repository) ActiveBlockerTopics(ctx context.Context, teacherID uuid.UUID) ([]string, error) {
	start := time.Now()
	var topics []string
	err := r.db.NewSelect().
		Model((*blocker.Blocker)(nil)).
		Column("b.title_or_topic").
		Where("b.student_id IN (?)", r.activeStudentIDs(teacherID)).
		Where("b.status = ?", blocker.StatusActive).
		OrderExpr("b.created_at ASC").
		Scan(ctx, &topics)
	r.metrics.Database.RecordQuery(ctx, "select", "blockers", time.Since(start), err)

	return topics, err
}

func (r *repository) TopicDurations(ctx context.Context, teacherID uuid.UUID) ([]TopicDuration, error) {
	start := time.Now()
	rows := []TopicDuration{}
	err := r.db.NewSelect().
		TableExpr("lessons AS l").
		Join("JOIN topics AS t ON t.id = l.topic_id").
		ColumnExpr("t.name AS topic_name").
		ColumnExpr("avg(l.duration_minutes)::float8 AS avg_minutes").
		Where("l.student_id IN (?)", r.activeStudentIDs(teacherID)).
		Group("t.id", "t.name").
		OrderExpr("t.name ASC").
		Scan(ctx, &rows)
	r.metrics.Database.RecordQuery(ctx, "select", "lessons", time.Since(start), err)

	return rows, err
}

func (r *repository) GetStudent(ctx context.Context, id, teacherID uuid.UUID) (*student.Student, error) {
	return r.students.GetByID(ctx, id, teacherID)
}

func (r *repository) RecentLessons(ctx context.Context, studentID uuid.UUID, limit int) ([]lesson.Lesson, error) {
	start := time.Now()
	lessons := []lesson.Lesson{}
	err := r.db.NewSelect().
		Model(&lessons).
		Relation("Topic").
		Where("l.student_id = ?", studentID).
		OrderExpr("l.held_at DESC, l.created_at DESC").
		Limit(limit).
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "lessons", time.Since(start), err)

	return lessons, err
}

func (r *repository) SkillProgress(ctx context.Context, studentID uuid.UUID) ([]lesson.SkillProgress, error) {
	start := time.Now()
	progress := []lesson.SkillProgress{}
	err := r.db.NewSelect().
		Model(&progress).
		Relation("Skill").
		Where("sp.student_id = ?", studentID).
		OrderExpr("skill.sort_order ASC").
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "skill_progress", time.Since(start), err)

	return progress, err
}

func (r *repository) CountActiveBlockers(ctx context.Context, studentID uuid.UUID) (int, error) {
	start := time.Now()
	n, err := r.db.NewSelect().
		Model((*blocker.Blocker)(nil)).
		Where("b.student_id = ?", studentID).
		Where("b.status = ?", blocker.StatusActive).
		Count(ctx)
	r.metrics.Database.RecordQuery(ctx, "count", "blockers", time.Since(start), err)

	return n, err
}

func (r *repository) CountActiveGoals(ctx context.Context, studentID uuid.UUID) (int, error) {
	start := time.Now()
	n, err := r.db.NewSelect().
		Model((*goal.Goal)(nil)).
		Where("g.student_id = ?", studentID).
		Where("g.status IN (?)", bun.In([]string{goal.StatusPending, goal.StatusInProgress})).
		Count(ctx)
	r.metrics.Database.RecordQuery(ctx, "count", "goals", time.Since(start), err)

	return n, err
}
