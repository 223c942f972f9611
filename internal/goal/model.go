package goal

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

type Goal struct {
	bun.BaseModel `bun:"table:goals,alias:g"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	StudentID     uuid.UUID  `bun:"student_id,type:uuid,notnull" json:"studentId"`
	TeacherUserID uuid.UUID  `bun:"teacher_user_id,type:uuid,notnull" json:"teacherUserId"`
	Title         string     `bun:"title,notnull" json:"title"`
	Description   *string    `bun:"description" json:"description"`
	Status        string     `bun:"status,notnull,default:'pending'" json:"status"`
	DeadlineAt    *time.Time `bun:"deadline_at" json:"deadlineAt"`
	CompletedAt   *time.Time `bun:"completed_at" json:"completedAt"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

type CreateGoalRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Status      *string `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	DeadlineAt  *string `json:"deadlineAt"`
}

// UpdateGoalRequest changes status and deadline independently. An empty
// deadlineAt string clears the deadline.
type UpdateGoalRequest struct {
	Status     *string `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	DeadlineAt *string `json:"deadlineAt"`
}

// ValidStatus reports whether s is a known goal status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}
