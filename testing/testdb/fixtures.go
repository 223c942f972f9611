package testdb

import (
	"context"
	"testing"

	"orbitus-api/internal/auth"
	"orbitus-api/internal/curriculum"
	"orbitus-api/internal/student"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// InsertTeacher creates a teacher whose password is "secret".
func (pc *PostgresContainer) InsertTeacher(t *testing.T, email string, role auth.Role) *auth.TeacherUser {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &auth.TeacherUser{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	_, err = pc.DB.NewInsert().Model(user).Exec(context.Background())
	require.NoError(t, err)
	return user
}

func (pc *PostgresContainer) InsertClassGroup(t *testing.T, name string) *student.ClassGroup {
	t.Helper()

	group := &student.ClassGroup{ID: uuid.New(), Name: name}
	_, err := pc.DB.NewInsert().Model(group).Exec(context.Background())
	require.NoError(t, err)
	return group
}

func (pc *PostgresContainer) InsertStudent(t *testing.T, teacherID uuid.UUID, name string, groupID *uuid.UUID) *student.Student {
	t.Helper()

	st := &student.Student{
		ID:            uuid.New(),
		TeacherUserID: teacherID,
		ClassGroupID:  groupID,
		DisplayName:   name,
		AvatarType:    "emoji",
		AvatarValue:   "🚀",
		XP:            0,
		Level:         1,
		Status:        student.StatusActive,
	}
	_, err := pc.DB.NewInsert().Model(st).Exec(context.Background())
	require.NoError(t, err)
	return st
}

// InsertTopic creates a topic linked to a fresh skill per slug in skillSlugs.
func (pc *PostgresContainer) InsertTopic(t *testing.T, name string, weight float64, skillSlugs ...string) (*curriculum.Topic, []curriculum.Skill) {
	t.Helper()
	ctx := context.Background()

	topic := &curriculum.Topic{ID: uuid.New(), Name: name, Slug: uuid.NewString(), XPWeight: weight}
	_, err := pc.DB.NewInsert().Model(topic).Exec(ctx)
	require.NoError(t, err)

	skills := make([]curriculum.Skill, 0, len(skillSlugs))
	for i, slug := range skillSlugs {
		skill := curriculum.Skill{ID: uuid.New(), Name: slug, Slug: slug, SortOrder: i}
		_, err := pc.DB.NewInsert().Model(&skill).Exec(ctx)
		require.NoError(t, err)

		_, err = pc.DB.NewInsert().Model(&curriculum.TopicSkill{TopicID: topic.ID, SkillID: skill.ID}).Exec(ctx)
		require.NoError(t, err)

		topic.SkillIDs = append(topic.SkillIDs, skill.ID)
		skills = append(skills, skill)
	}
	return topic, skills
}
