package dashboard

import (
	"time"

	"github.com/google/uuid"
)

// Card is one tile of the overview. Value is a number or a display string.
type Card struct {
	Title    string `json:"title"`
	Value    any    `json:"value"`
	Subtitle string `json:"subtitle"`
}

type Overview struct {
	Cards []Card `json:"cards"`
}

type ClassStats struct {
	ClassGroupID   *uuid.UUID `json:"classGroupId"`
	ClassGroupName string     `json:"classGroupName"`
	StudentCount   int        `json:"studentCount"`
	TotalXP        int        `json:"totalXp"`
	ActiveBlockers int        `json:"activeBlockers"`
}

type ClassGroupRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type StudentCard struct {
	ID          uuid.UUID      `json:"id"`
	DisplayName string         `json:"displayName"`
	FullName    *string        `json:"fullName"`
	AvatarType  string         `json:"avatarType"`
	AvatarValue string         `json:"avatarValue"`
	PhotoURL    *string        `json:"photoUrl"`
	Level       int            `json:"level"`
	XP          int            `json:"xp"`
	Status      string         `json:"status"`
	ClassGroup  *ClassGroupRef `json:"classGroup"`
}

type LessonLine struct {
	ID              uuid.UUID `json:"id"`
	HeldAt          time.Time `json:"heldAt"`
	DurationMinutes int       `json:"durationMinutes"`
	TopicName       string    `json:"topicName"`
	Rating          int       `json:"rating"`
	XPEarned        int       `json:"xpEarned"`
}

type SkillBar struct {
	SkillID   uuid.UUID `json:"skillId"`
	SkillName string    `json:"skillName"`
	Color     *string   `json:"color"`
	CurrentXP int       `json:"currentXp"`
	Level     int       `json:"level"`
}

type StudentSummary struct {
	Student             StudentCard  `json:"student"`
	LastLessons         []LessonLine `json:"lastLessons"`
	SkillBars           []SkillBar   `json:"skillBars"`
	ActiveBlockersCount int          `json:"activeBlockersCount"`
	ActiveGoalsCount    int          `json:"activeGoalsCount"`
}

// Row types scanned from aggregate queries.

type StudentRow struct {
	ID             uuid.UUID  `bun:"id"`
	DisplayName    string     `bun:"display_name"`
	XP             int        `bun:"xp"`
	ClassGroupID   *uuid.UUID `bun:"class_group_id"`
	ClassGroupName *string    `bun:"class_group_name"`
	ActiveBlockers int        `bun:"active_blockers"`
}

type LastLesson struct {
	StudentID  uuid.UUID `bun:"student_id"`
	LastHeldAt time.Time `bun:"last_held_at"`
}

type LessonXP struct {
	StudentID uuid.UUID `bun:"student_id"`
	XPEarned  int       `bun:"xp_earned"`
}

type TopicDuration struct {
	TopicName  string  `bun:"topic_name"`
	AvgMinutes float64 `bun:"avg_minutes"`
}

// OverviewData is everything the overview cards are computed from.
type OverviewData struct {
	Students       []StudentRow
	LastLessons    []LastLesson
	RecentLessons  []LessonXP
	// BlockerTopics holds title_or_topic of every active blocker, oldest first.
	BlockerTopics  []string
	TopicDurations []TopicDuration
}
