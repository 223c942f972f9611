// Package schema owns the table layout and the demo seed.
package schema

import (
	"context"
	"fmt"

	"orbitus-api/internal/auth"
	"orbitus-api/internal/blocker"
	"orbitus-api/internal/curriculum"
	"orbitus-api/internal/db"
	"orbitus-api/internal/goal"
	"orbitus-api/internal/lesson"
	"orbitus-api/internal/student"

	"github.com/uptrace/bun"
)

const (
	fkTeacher = `("teacher_user_id") REFERENCES "teacher_users" ("id") ON DELETE CASCADE`
	fkStudent = `("student_id") REFERENCES "students" ("id") ON DELETE CASCADE`
	fkTopic   = `("topic_id") REFERENCES "topics" ("id")`
	fkSkill   = `("skill_id") REFERENCES "skills" ("id") ON DELETE CASCADE`
)

// Tables lists every table in creation order.
func Tables() []db.Table {
	return []db.Table{
		{Model: (*auth.TeacherUser)(nil)},
		{Model: (*auth.RefreshToken)(nil), ForeignKeys: []string{fkTeacher}},
		{Model: (*student.ClassGroup)(nil)},
		{Model: (*student.Student)(nil), ForeignKeys: []string{
			fkTeacher,
			`("class_group_id") REFERENCES "class_groups" ("id") ON DELETE SET NULL`,
		}},
		{Model: (*curriculum.Skill)(nil)},
		{Model: (*curriculum.Topic)(nil)},
		{Model: (*curriculum.TopicSkill)(nil), ForeignKeys: []string{
			`("topic_id") REFERENCES "topics" ("id") ON DELETE CASCADE`,
			fkSkill,
		}},
		{Model: (*lesson.Lesson)(nil), ForeignKeys: []string{fkStudent, fkTeacher, fkTopic}},
		{Model: (*lesson.SkillProgress)(nil), ForeignKeys: []string{fkStudent, fkSkill}},
		{Model: (*blocker.Blocker)(nil), ForeignKeys: []string{fkStudent, fkTeacher}},
		{Model: (*goal.Goal)(nil), ForeignKeys: []string{fkStudent, fkTeacher}},
	}
}

func Indexes() []db.Index {
	return []db.Index{
		{Name: "idx_refresh_tokens_teacher", Model: (*auth.RefreshToken)(nil), Columns: []string{"teacher_user_id"}},
		{Name: "idx_students_teacher_status", Model: (*student.Student)(nil), Columns: []string{"teacher_user_id", "status"}},
		{Name: "idx_students_class_group", Model: (*student.Student)(nil), Columns: []string{"class_group_id"}},
		{Name: "idx_lessons_student_held_at", Model: (*lesson.Lesson)(nil), Columns: []string{"student_id", "held_at"}},
		{Name: "idx_lessons_topic", Model: (*lesson.Lesson)(nil), Columns: []string{"topic_id"}},
		{Name: "idx_blockers_student_status", Model: (*blocker.Blocker)(nil), Columns: []string{"student_id", "status"}},
		{Name: "idx_goals_student_status", Model: (*goal.Goal)(nil), Columns: []string{"student_id", "status"}},
	}
}

// TableNames lists tables with data, children first, for truncation.
func TableNames() []string {
	return []string{
		"goals", "blockers", "skill_progress", "lessons", "topic_skills",
		"topics", "skills", "students", "class_groups", "refresh_tokens", "teacher_users",
	}
}

var updatedAtTables = []string{"students", "skill_progress", "blockers", "goals"}

const updatedAtFunction = `
CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
	NEW.updated_at = CURRENT_TIMESTAMP;
	RETURN NEW;
END;
$$ language 'plpgsql';`

// Migrate creates tables, indexes and updated_at triggers.
func Migrate(ctx context.Context, bunDB *bun.DB) error {
	if err := db.RunMigrations(ctx, bunDB, Tables(), Indexes()); err != nil {
		return err
	}

	if _, err := bunDB.ExecContext(ctx, updatedAtFunction); err != nil {
		return fmt.Errorf("failed to create updated_at function: %w", err)
	}
	for _, table := range updatedAtTables {
		query := fmt.Sprintf(`
			DROP TRIGGER IF EXISTS update_%[1]s_updated_at ON %[1]s;
			CREATE TRIGGER update_%[1]s_updated_at
				BEFORE UPDATE ON %[1]s
				FOR EACH ROW
				EXECUTE FUNCTION update_updated_at_column();`, table)
		if _, err := bunDB.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create updated_at trigger for %s: %w", table, err)
		}
	}
	return nil
}
