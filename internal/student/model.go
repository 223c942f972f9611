package student

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusArchived = "archived"
)

type ClassGroup struct {
	bun.BaseModel `bun:"table:class_groups,alias:cg"`

	ID     uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name   string    `bun:"name,unique,notnull" json:"name"`
	Course *string   `bun:"course" json:"course"`
}

// Student is a learner owned by exactly one teacher. XP and level only change
// through lesson registration.
type Student struct {
	bun.BaseModel `bun:"table:students,alias:s"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	TeacherUserID uuid.UUID  `bun:"teacher_user_id,type:uuid,notnull" json:"-"`
	ClassGroupID  *uuid.UUID `bun:"class_group_id,type:uuid" json:"classGroupId"`
	DisplayName   string     `bun:"display_name,notnull" json:"displayName"`
	FullName      *string    `bun:"full_name" json:"fullName"`
	AvatarType    string     `bun:"avatar_type,notnull" json:"avatarType"`
	AvatarValue   string     `bun:"avatar_value,notnull" json:"avatarValue"`
	PhotoURL      *string    `bun:"photo_url" json:"photoUrl"`
	XP            int        `bun:"xp,notnull,default:0" json:"xp"`
	Level         int        `bun:"level,notnull,default:1" json:"level"`
	Status        string     `bun:"status,notnull,default:'active'" json:"status"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`

	ClassGroup *ClassGroup `bun:"rel:belongs-to,join:class_group_id=id" json:"classGroup"`
}

type CreateStudentRequest struct {
	DisplayName  string     `json:"displayName" validate:"required,max=120"`
	FullName     *string    `json:"fullName" validate:"omitempty,max=200"`
	ClassGroupID *uuid.UUID `json:"classGroupId"`
	AvatarType   string     `json:"avatarType" validate:"required,oneof=template emoji photo"`
	AvatarValue  string     `json:"avatarValue" validate:"required"`
}

// UpdateStudentRequest carries only the fields a teacher may edit; nil means unchanged.
type UpdateStudentRequest struct {
	DisplayName  *string      `json:"displayName" validate:"omitempty,min=1,max=120"`
	FullName     *string      `json:"fullName" validate:"omitempty,max=200"`
	ClassGroupID OptionalUUID `json:"classGroupId"`
	Status       *string      `json:"status" validate:"omitempty,oneof=active inactive archived"`
}

// OptionalUUID tells an explicit null apart from an absent field.
type OptionalUUID struct {
	Set   bool
	Value *uuid.UUID
}

func (o *OptionalUUID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var id uuid.UUID
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}

type ListFilter struct {
	Search            string
	ClassGroupID      *uuid.UUID
	Status            string
	NoLessonSinceDays int
	Limit             int
	Offset            int
}

type ListResult struct {
	Items []Student `json:"items"`
	Total int       `json:"total"`
}
