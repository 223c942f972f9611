package dashboard_test

import (
	"context"
	"testing"
	"time"

	"orbitus-api/internal/auth"
	"orbitus-api/internal/blocker"
	"orbitus-api/internal/dashboard"
	"orbitus-api/internal/goal"
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

func TestDashboardPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pg := testdb.SetupSharedPostgres(t)
	defer pg.Cleanup(t)

	ctx := context.Background()
	m := metrics.NewMock()
	lessons := lesson.NewService(lesson.NewRepository(pg.DB, m), messaging.Noop{}, logger.Discard(), m)
	blockers := blocker.NewService(blocker.NewRepository(pg.DB, m), m)
	goals := goal.NewService(goal.NewRepository(pg.DB, m), m)
	svc := dashboard.NewService(dashboard.NewRepository(pg.DB, m))

	register := func(t *testing.T, studentID, teacherID, topicID uuid.UUID, heldAt time.Time, duration, rating int) {
		t.Helper()
		_, err := lessons.RegisterLesson(ctx, lesson.RegisterLessonInput{
			StudentID: studentID, TeacherUserID: teacherID, TopicID: topicID,
			HeldAt: heldAt, DurationMinutes: duration, Rating: rating,
		})
		require.NoError(t, err)
	}

	t.Run("overview without students", func(t *testing.T) {
		pg.Reset(t)
		teacher := pg.InsertTeacher(t, "prof@escola.com", auth.RoleAdmin)

		overview, err := svc.Overview(ctx, teacher.ID)
		require.NoError(t, err)
		require.Len(t, overview.Cards, 4)
		assert.Equal(t, 0, overview.Cards[0].Value)
		assert.Equal(t, "—", overview.Cards[1].Value)
	})

	t.Run("overview", func(t *testing.T) {
		pg.Reset(t)
		teacher := pg.InsertTeacher(t, "prof@escola.com", auth.RoleAdmin)
		other := pg.InsertTeacher(t, "outra@escola.com", auth.RoleAdmin)
		html, _ := pg.InsertTopic(t, "HTML", 1.0, "html")
		logica, _ := pg.InsertTopic(t, "Lógica", 1.0, "logica")

		ana := pg.InsertStudent(t, teacher.ID, "Ana", nil)
		bia := pg.InsertStudent(t, teacher.ID, "Bia", nil)
		pg.InsertStudent(t, teacher.ID, "Caio", nil)
		foreign := pg.InsertStudent(t, other.ID, "Zeca", nil)

		now := time.Now()
		register(t, ana.ID, teacher.ID, html.ID, now.Add(-24*time.Hour), 30, 4)   // 12 XP
		register(t, bia.ID, teacher.ID, logica.ID, now.Add(-48*time.Hour), 90, 5) // 45 XP
		register(t, bia.ID, teacher.ID, html.ID, now.AddDate(0, 0, -20), 60, 5)   // outside window
		register(t, foreign.ID, other.ID, logica.ID, now.Add(-time.Hour), 480, 5) // other teacher

		for _, title := range []string{"CSS", "Loops", "Loops"} {
			_, err := blockers.Create(ctx, ana.ID, teacher.ID, blocker.CreateBlockerRequest{TitleOrTopic: title, Severity: 2})
			require.NoError(t, err)
		}

		overview, err := svc.Overview(ctx, teacher.ID)
		require.NoError(t, err)

		assert.Equal(t, 1, overview.Cards[0].Value)
		assert.Equal(t, "Bia (+45 XP)", overview.Cards[1].Value)
		assert.Equal(t, "Loops (2)", overview.Cards[2].Value)
		assert.Equal(t, "90 min (Lógica)", overview.Cards[3].Value)
	})

	t.Run("by class", func(t *testing.T) {
		pg.Reset(t)
		teacher := pg.InsertTeacher(t, "prof@escola.com", auth.RoleAdmin)
		group := pg.InsertClassGroup(t, "Turma A")

		ana := pg.InsertStudent(t, teacher.ID, "Ana", &group.ID)
		pg.InsertStudent(t, teacher.ID, "Bia", &group.ID)
		pg.InsertStudent(t, teacher.ID, "Caio", nil)

		topic, _ := pg.InsertTopic(t, "HTML", 1.0, "html")
		register(t, ana.ID, teacher.ID, topic.ID, time.Now(), 100, 5) // 50 XP
		_, err := blockers.Create(ctx, ana.ID, teacher.ID, blocker.CreateBlockerRequest{TitleOrTopic: "Tags"})
		require.NoError(t, err)

		stats, err := svc.ByClass(ctx, teacher.ID)
		require.NoError(t, err)
		require.Len(t, stats, 2)

		assert.Equal(t, dashboard.NoClassGroupName, stats[0].ClassGroupName)
		assert.Equal(t, 1, stats[0].StudentCount)

		assert.Equal(t, "Turma A", stats[1].ClassGroupName)
		require.NotNil(t, stats[1].ClassGroupID)
		assert.Equal(t, group.ID, *stats[1].ClassGroupID)
		assert.Equal(t, 2, stats[1].StudentCount)
		assert.Equal(t, 50, stats[1].TotalXP)
		assert.Equal(t, 1, stats[1].ActiveBlockers)
	})

	t.Run("student summary", func(t *testing.T) {
		pg.Reset(t)
		teacher := pg.InsertTeacher(t, "prof@escola.com", auth.RoleAdmin)
		group := pg.InsertClassGroup(t, "Turma A")
		st := pg.InsertStudent(t, teacher.ID, "Ana", &group.ID)
		topic, skills := pg.InsertTopic(t, "HTML", 1.0, "html")

		base := time.Now().Add(-10 * 24 * time.Hour)
		for i := 0; i < 7; i++ {
			register(t, st.ID, teacher.ID, topic.ID, base.Add(time.Duration(i)*time.Hour), 20, 5) // 10 XP each
		}

		_, err := blockers.Create(ctx, st.ID, teacher.ID, blocker.CreateBlockerRequest{TitleOrTopic: "Tags"})
		require.NoError(t, err)
		for _, status := range []string{goal.StatusPending, goal.StatusInProgress, goal.StatusCompleted} {
			s := status
			_, err := goals.Create(ctx, st.ID, teacher.ID, goal.CreateGoalRequest{Title: s, Status: &s})
			require.NoError(t, err)
		}

		summary, err := svc.StudentSummary(ctx, st.ID, teacher.ID)
		require.NoError(t, err)

		assert.Equal(t, 70, summary.Student.XP)
		require.NotNil(t, summary.Student.ClassGroup)
		assert.Equal(t, "Turma A", summary.Student.ClassGroup.Name)

		require.Len(t, summary.LastLessons, dashboard.SummaryLessons)
		assert.Equal(t, "HTML", summary.LastLessons[0].TopicName)
		assert.True(t, summary.LastLessons[0].HeldAt.After(summary.LastLessons[4].HeldAt))

		require.Len(t, summary.SkillBars, 1)
		assert.Equal(t, skills[0].ID, summary.SkillBars[0].SkillID)
		assert.Equal(t, 70, summary.SkillBars[0].CurrentXP)
		assert.Equal(t, 1, summary.SkillBars[0].Level)

		assert.Equal(t, 1, summary.ActiveBlockersCount)
		assert.Equal(t, 2, summary.ActiveGoalsCount)

		_, err = svc.StudentSummary(ctx, st.ID, uuid.New())
		assert.ErrorIs(t, err, student.ErrStudentNotFound)
	})
}
