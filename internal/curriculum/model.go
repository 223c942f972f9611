package curriculum

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Topic struct {
	bun.BaseModel `bun:"table:topics,alias:t"`

	ID       uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name     string    `bun:"name,notnull" json:"name"`
	Slug     string    `bun:"slug,unique,notnull" json:"slug"`
	XPWeight float64   `bun:"xp_weight,notnull,default:1" json:"xpWeight"`

	// SkillIDs is filled by GetTopicWithSkills from topic_skills.
	SkillIDs []uuid.UUID `bun:"-" json:"-"`
}

type Skill struct {
	bun.BaseModel `bun:"table:skills,alias:sk"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Slug      string    `bun:"slug,unique,notnull" json:"slug"`
	Color     *string   `bun:"color" json:"color"`
	SortOrder int       `bun:"sort_order,notnull,default:0" json:"sortOrder"`
}

// TopicSkill links a topic to a skill it trains.
type TopicSkill struct {
	bun.BaseModel `bun:"table:topic_skills,alias:ts"`

	TopicID uuid.UUID `bun:"topic_id,pk,type:uuid"`
	SkillID uuid.UUID `bun:"skill_id,pk,type:uuid"`
}
