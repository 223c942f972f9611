package blocker

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	StatusActive   = "active"
	StatusResolved = "resolved"

	MinSeverity = 1
	MaxSeverity = 3
)

// Blocker is a learning obstacle a teacher recorded for a student.
type Blocker struct {
	bun.BaseModel `bun:"table:blockers,alias:b"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	StudentID     uuid.UUID  `bun:"student_id,type:uuid,notnull" json:"studentId"`
	TeacherUserID uuid.UUID  `bun:"teacher_user_id,type:uuid,notnull" json:"teacherUserId"`
	TitleOrTopic  string     `bun:"title_or_topic,notnull" json:"titleOrTopic"`
	Severity      int        `bun:"severity,notnull" json:"severity"`
	Tags          []string   `bun:"tags,array,notnull,default:'{}'" json:"tags"`
	Observation   *string    `bun:"observation" json:"observation"`
	Status        string     `bun:"status,notnull,default:'active'" json:"status"`
	ResolvedAt    *time.Time `bun:"resolved_at" json:"resolvedAt"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

type CreateBlockerRequest struct {
	TitleOrTopic string   `json:"titleOrTopic" validate:"required,max=200"`
	Severity     int      `json:"severity"`
	Tags         []string `json:"tags" validate:"omitempty,dive,max=50"`
	Observation  *string  `json:"observation" validate:"omitempty,max=2000"`
}

type UpdateBlockerRequest struct {
	Status *string `json:"status" validate:"omitempty,oneof=active resolved"`
}
