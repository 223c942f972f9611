package curriculum

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"orbitus-api/internal/metrics"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ErrTopicNotFound = errors.New("topic not found")

type Repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) *Repository {
	return &Repository{
		db:      db,
		metrics: m,
	}
}

func (r *Repository) ListTopics(ctx context.Context) ([]Topic, error) {
	start := time.Now()
	topics := []Topic{}
	err := r.db.NewSelect().Model(&topics).OrderExpr("t.name ASC").Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "topics", time.Since(start), err)

	return topics, err
}

func (r *Repository) ListSkills(ctx context.Context) ([]Skill, error) {
	start := time.Now()
	skills := []Skill{}
	err := r.db.NewSelect().Model(&skills).OrderExpr("sk.sort_order ASC, sk.name ASC").Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "skills", time.Since(start), err)

	return skills, err
}

func (r *Repository) GetTopicWithSkills(ctx context.Context, id uuid.UUID) (*Topic, error) {
	start := time.Now()
	topic, err := GetTopicWithSkills(ctx, r.db, id)
	r.metrics.Database.RecordQuery(ctx, "select", "topics", time.Since(start), err)
	return topic, err
}

// GetTopicWithSkills loads a topic and its linked skill ids through db,
// which may be a transaction.
func GetTopicWithSkills(ctx context.Context, db bun.IDB, id uuid.UUID) (*Topic, error) {
	topic := new(Topic)
	err := db.NewSelect().Model(topic).Where("t.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTopicNotFound
		}
		return nil, fmt.Errorf("failed to load topic: %w", err)
	}

	var skillIDs []uuid.UUID
	err = db.NewSelect().
		Model((*TopicSkill)(nil)).
		Column("ts.skill_id").
		Where("ts.topic_id = ?", id).
		OrderExpr("ts.skill_id ASC").
		Scan(ctx, &skillIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load topic skills: %w", err)
	}
	topic.SkillIDs = skillIDs

	return topic, nil
}

// UpsertTopic inserts the topic or refreshes name and weight when the slug exists.
func (r *Repository) UpsertTopic(ctx context.Context, topic *Topic) error {
	if topic.ID == uuid.Nil {
		topic.ID = uuid.New()
	}
	start := time.Now()
	_, err := r.db.NewInsert().
		Model(topic).
		On("CONFLICT (slug) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("xp_weight = EXCLUDED.xp_weight").
		Returning("id").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "upsert", "topics", time.Since(start), err)
	return err
}

// UpsertSkill inserts the skill or refreshes it when the slug exists.
func (r *Repository) UpsertSkill(ctx context.Context, skill *Skill) error {
	if skill.ID == uuid.Nil {
		skill.ID = uuid.New()
	}
	start := time.Now()
	_, err := r.db.NewInsert().
		Model(skill).
		On("CONFLICT (slug) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("color = EXCLUDED.color").
		Set("sort_order = EXCLUDED.sort_order").
		Returning("id").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "upsert", "skills", time.Since(start), err)
	return err
}

func (r *Repository) LinkSkill(ctx context.Context, topicID, skillID uuid.UUID) error {
	start := time.Now()
	_, err := r.db.NewInsert().
		Model(&TopicSkill{TopicID: topicID, SkillID: skillID}).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "topic_skills", time.Since(start), err)
	return err
}
