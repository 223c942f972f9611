package schema

import (
	"context"
	"fmt"
	"log/slog"

	"orbitus-api/internal/auth"
	"orbitus-api/internal/curriculum"
	"orbitus-api/internal/metrics"
	"orbitus-api/internal/student"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/uptrace/bun"
)

const (
	SeedTeacherEmail    = "prof@escola.com"
	SeedTeacherPassword = "senha123"
	SeedClassGroup      = "Turma A"
)

type seedTopic struct {
	name       string
	slug       string
	weight     float64
	skillSlugs []string
}

var seedSkills = []curriculum.Skill{
	{Name: "HTML", Slug: "html", Color: lo.ToPtr("#e34c26"), SortOrder: 1},
	{Name: "Lógica", Slug: "logica", Color: lo.ToPtr("#6c5ce7"), SortOrder: 2},
	{Name: "Excel", Slug: "excel", Color: lo.ToPtr("#00a651"), SortOrder: 3},
	{Name: "Robótica", Slug: "robotica", Color: lo.ToPtr("#0984e3"), SortOrder: 4},
}

var seedTopics = []seedTopic{
	{name: "Introdução ao HTML", slug: "intro-html", weight: 1.0, skillSlugs: []string{"html"}},
	{name: "Lógica de programação", slug: "logica-prog", weight: 1.2, skillSlugs: []string{"logica"}},
	{name: "Planilhas básicas", slug: "excel-basico", weight: 1.0, skillSlugs: []string{"excel"}},
}

// Seed inserts the demo teacher, curriculum and class group. Running it again
// leaves existing rows in place.
func Seed(ctx context.Context, db *bun.DB, m *metrics.Metrics, logger *slog.Logger) error {
	hash, err := auth.HashPassword(SeedTeacherPassword)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	users := auth.NewRepository(db, m)
	if err := users.CreateUser(ctx, &auth.TeacherUser{
		ID:           uuid.New(),
		Email:        SeedTeacherEmail,
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
	}); err != nil {
		return fmt.Errorf("failed to seed teacher: %w", err)
	}

	curricula := curriculum.NewRepository(db, m)
	skillIDs := make(map[string]uuid.UUID, len(seedSkills))
	for _, s := range seedSkills {
		skill := s
		if err := curricula.UpsertSkill(ctx, &skill); err != nil {
			return fmt.Errorf("failed to seed skill %s: %w", skill.Slug, err)
		}
		skillIDs[skill.Slug] = skill.ID
	}

	for _, t := range seedTopics {
		topic := &curriculum.Topic{Name: t.name, Slug: t.slug, XPWeight: t.weight}
		if err := curricula.UpsertTopic(ctx, topic); err != nil {
			return fmt.Errorf("failed to seed topic %s: %w", t.slug, err)
		}
		for _, slug := range t.skillSlugs {
			if err := curricula.LinkSkill(ctx, topic.ID, skillIDs[slug]); err != nil {
				return fmt.Errorf("failed to link %s to %s: %w", t.slug, slug, err)
			}
		}
	}

	groups := student.NewRepository(db, m)
	if err := groups.CreateClassGroup(ctx, &student.ClassGroup{
		Name:   SeedClassGroup,
		Course: lo.ToPtr("Programação"),
	}); err != nil {
		return fmt.Errorf("failed to seed class group: %w", err)
	}

	logger.InfoContext(ctx, "seed data applied",
		"teacher", SeedTeacherEmail,
		"skills", len(seedSkills),
		"topics", len(seedTopics),
	)
	return nil
}
