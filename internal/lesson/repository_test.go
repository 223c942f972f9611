package lesson_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"orbitus-api/internal/auth"
	"orbitus-api/internal/lesson"
	"orbitus-api/internal/logger"
	"orbitus-api/internal/messaging"
	"orbitus-api/internal/metrics"
	"orbitus-api/internal/student"
	"orbitus-api/testing/testdb"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLessonPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pg := testdb.SetupSharedPostgres(t)
	defer pg.Cleanup(t)

	ctx := context.Background()
	m := metrics.NewMock()
	svc := lesson.NewService(lesson.NewRepository(pg.DB, m), messaging.Noop{}, logger.Discard(), m)

	loadStudent := func(t *testing.T, id uuid.UUID) student.Student {
		t.Helper()
		var st student.Student
		require.NoError(t, pg.DB.NewSelect().Model(&st).Where("s.id = ?", id).Scan(ctx))
		return st
	}

	loadSkill := func(t *testing.T, studentID, skillID uuid.UUID) lesson.SkillProgress {
		t.Helper()
		var sp lesson.SkillProgress
		require.NoError(t, pg.DB.NewSelect().Model(&sp).
			Where("sp.student_id = ?", studentID).
			Where("sp.skill_id = ?", skillID).
			Scan(ctx))
		return sp
	}

	t.Run("updates student and skills in one go", func(t *testing.T) {
		pg.Reset(t)
		teacher := pg.InsertTeacher(t, "prof@escola.com", auth.RoleAdmin)
		st := pg.InsertStudent(t, teacher.ID, "Ana", nil)
		topic, skills := pg.InsertTopic(t, "Full stack", 1.0, "html", "css", "js")

		// 4 * 50 * 1.0 * 0.1 = 20 XP, 6 per skill.
		created, err := svc.RegisterLesson(ctx, lesson.RegisterLessonInput{
			StudentID:       st.ID,
			TeacherUserID:   teacher.ID,
			TopicID:         topic.ID,
			HeldAt:          time.Now().Add(-time.Hour),
			DurationMinutes: 50,
			Rating:          4,
		})
		require.NoError(t, err)
		assert.Equal(t, 20, created.XPEarned)

		updated := loadStudent(t, st.ID)
		assert.Equal(t, 20, updated.XP)
		assert.Equal(t, 1, updated.Level)

		for _, skill := range skills {
			sp := loadSkill(t, st.ID, skill.ID)
			assert.Equal(t, 6, sp.CurrentXP)
			assert.Equal(t, 1, sp.Level)
		}

		lessons, err := svc.ListLessons(ctx, st.ID, teacher.ID, 0)
		require.NoError(t, err)
		require.Len(t, lessons, 1)
		require.NotNil(t, lessons[0].Topic)
		assert.Equal(t, "Full stack", lessons[0].Topic.Name)
	})

	t.Run("crosses a level and accumulates skill xp", func(t *testing.T) {
		pg.Reset(t)
		teacher := pg.InsertTeacher(t, "prof@escola.com", auth.RoleAdmin)
		st := pg.InsertStudent(t, teacher.ID, "Bia", nil)
		topic, skills := pg.InsertTopic(t, "HTML", 1.0, "html")

		for _, duration := range []int{180, 40} {
			// 5 * 180 * 0.1 = 90, then 5 * 40 * 0.1 = 20.
			_, err := svc.RegisterLesson(ctx, lesson.RegisterLessonInput{
				StudentID:       st.ID,
				TeacherUserID:   teacher.ID,
				TopicID:         topic.ID,
				HeldAt:          time.Now(),
				DurationMinutes: duration,
				Rating:          5,
			})
			require.NoError(t, err)
		}

		updated := loadStudent(t, st.ID)
		assert.Equal(t, 110, updated.XP)
		assert.Equal(t, 2, updated.Level)

		sp := loadSkill(t, st.ID, skills[0].ID)
		assert.Equal(t, 110, sp.CurrentXP)
		assert.Equal(t, 2, sp.Level)
	})

	t.Run("topic without skills touches no skill rows", func(t *testing.T) {
		pg.Reset(t)
		teacher := pg.InsertTeacher(t, "prof@escola.com", auth.RoleAdmin)
		st := pg.InsertStudent(t, teacher.ID, "Caio", nil)
		topic, _ := pg.InsertTopic(t, "Soft skills", 1.0)

		_, err := svc.RegisterLesson(ctx, lesson.RegisterLessonInput{
			StudentID: st.ID, TeacherUserID: teacher.ID, TopicID: topic.ID,
			HeldAt: time.Now(), DurationMinutes: 30, Rating: 3,
		})
		require.NoError(t, err)

		count, err := pg.DB.NewSelect().Model((*lesson.SkillProgress)(nil)).Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("foreign and missing students look the same", func(t *testing.T) {
		pg.Reset(t)
		owner := pg.InsertTeacher(t, "prof@escola.com", auth.RoleAdmin)
		other := pg.InsertTeacher(t, "outra@escola.com", auth.RoleAdmin)
		st := pg.InsertStudent(t, owner.ID, "Duda", nil)
		topic, _ := pg.InsertTopic(t, "HTML", 1.0, "html")

		in := lesson.RegisterLessonInput{
			StudentID: st.ID, TeacherUserID: other.ID, TopicID: topic.ID,
			HeldAt: time.Now(), DurationMinutes: 30, Rating: 3,
		}
		_, err := svc.RegisterLesson(ctx, in)
		assert.ErrorIs(t, err, lesson.ErrStudentNotFound)

		in.StudentID = uuid.New()
		_, err = svc.RegisterLesson(ctx, in)
		assert.ErrorIs(t, err, lesson.ErrStudentNotFound)

		_, err = svc.ListLessons(ctx, st.ID, other.ID, 0)
		assert.ErrorIs(t, err, lesson.ErrStudentNotFound)
	})

	t.Run("unknown topic leaves nothing behind", func(t *testing.T) {
		pg.Reset(t)
		teacher := pg.InsertTeacher(t, "prof@escola.com", auth.RoleAdmin)
		st := pg.InsertStudent(t, teacher.ID, "Eva", nil)

		_, err := svc.RegisterLesson(ctx, lesson.RegisterLessonInput{
			StudentID: st.ID, TeacherUserID: teacher.ID, TopicID: uuid.New(),
			HeldAt: time.Now(), DurationMinutes: 30, Rating: 3,
		})
		assert.ErrorIs(t, err, lesson.ErrTopicNotFound)

		count, err := pg.DB.NewSelect().Model((*lesson.Lesson)(nil)).Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.Equal(t, 0, loadStudent(t, st.ID).XP)
	})

	t.Run("concurrent registrations serialize on the student row", func(t *testing.T) {
		pg.Reset(t)
		teacher := pg.InsertTeacher(t, "prof@escola.com", auth.RoleAdmin)
		st := pg.InsertStudent(t, teacher.ID, "Fabi", nil)
		topic, skills := pg.InsertTopic(t, "Lógica", 1.0, "logica", "algoritmos")

		const n = 8
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				// 3 * 60 * 0.1 = 18 XP, 9 per skill.
				_, err := svc.RegisterLesson(ctx, lesson.RegisterLessonInput{
					StudentID: st.ID, TeacherUserID: teacher.ID, TopicID: topic.ID,
					HeldAt: time.Now(), DurationMinutes: 60, Rating: 3,
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		updated := loadStudent(t, st.ID)
		assert.Equal(t, n*18, updated.XP)
		assert.Equal(t, lesson.LevelForXP(n*18), updated.Level)

		for _, skill := range skills {
			sp := loadSkill(t, st.ID, skill.ID)
			assert.Equal(t, n*9, sp.CurrentXP)
		}
	})
}
