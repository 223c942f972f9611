package lesson

import (
	"time"

	"orbitus-api/internal/curriculum"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Lesson is an immutable record of a class a student attended.
type Lesson struct {
	bun.BaseModel `bun:"table:lessons,alias:l"`

	ID              uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	StudentID       uuid.UUID `bun:"student_id,type:uuid,notnull" json:"studentId"`
	TeacherUserID   uuid.UUID `bun:"teacher_user_id,type:uuid,notnull" json:"teacherUserId"`
	TopicID         uuid.UUID `bun:"topic_id,type:uuid,notnull" json:"topicId"`
	HeldAt          time.Time `bun:"held_at,notnull" json:"heldAt"`
	DurationMinutes int       `bun:"duration_minutes,notnull" json:"durationMinutes"`
	Rating          int       `bun:"rating,notnull" json:"rating"`
	XPEarned        int       `bun:"xp_earned,notnull" json:"xpEarned"`
	Notes           *string   `bun:"notes" json:"notes"`
	CreatedAt       time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`

	Topic *curriculum.Topic `bun:"rel:belongs-to,join:topic_id=id" json:"topic,omitempty"`
}

// SkillProgress is a student's accumulated XP in one skill.
type SkillProgress struct {
	bun.BaseModel `bun:"table:skill_progress,alias:sp"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	StudentID uuid.UUID `bun:"student_id,type:uuid,notnull,unique:student_skill" json:"studentId"`
	SkillID   uuid.UUID `bun:"skill_id,type:uuid,notnull,unique:student_skill" json:"skillId"`
	CurrentXP int       `bun:"current_xp,notnull,default:0" json:"currentXp"`
	Level     int       `bun:"level,notnull,default:1" json:"level"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`

	Skill *curriculum.Skill `bun:"rel:belongs-to,join:skill_id=id" json:"skill,omitempty"`
}

type RegisterLessonRequest struct {
	TopicID         string  `json:"topicId" validate:"required,uuid"`
	HeldAt          string  `json:"heldAt" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	DurationMinutes int     `json:"durationMinutes" validate:"required,min=1,max=480"`
	Rating          int     `json:"rating" validate:"required,min=1,max=5"`
	Notes           *string `json:"notes" validate:"omitempty,max=2000"`
}

// RegisterLessonInput is a validated registration.
type RegisterLessonInput struct {
	StudentID       uuid.UUID
	TeacherUserID   uuid.UUID
	TopicID         uuid.UUID
	HeldAt          time.Time
	DurationMinutes int
	Rating          int
	Notes           *string
}

// RegisteredEvent is the payload of the lesson.registered event.
type RegisteredEvent struct {
	LessonID      uuid.UUID `json:"lessonId"`
	StudentID     uuid.UUID `json:"studentId"`
	TeacherUserID uuid.UUID `json:"teacherUserId"`
	TopicID       uuid.UUID `json:"topicId"`
	XPEarned      int       `json:"xpEarned"`
	StudentXP     int       `json:"studentXp"`
	StudentLevel  int       `json:"studentLevel"`
	HeldAt        time.Time `json:"heldAt"`
}

const EventRegistered = "lesson.registered"
