package lesson

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"orbitus-api/internal/curriculum"
	"orbitus-api/internal/messaging"
	"orbitus-api/internal/metrics"
	"orbitus-api/internal/student"

	"github.com/google/uuid"
)

var (
	ErrStudentNotFound = student.ErrStudentNotFound
	ErrTopicNotFound   = curriculum.ErrTopicNotFound
	ErrInvalidInput    = errors.New("invalid input")
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type Service struct {
	store     Store
	publisher messaging.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewService(store Store, publisher messaging.Publisher, logger *slog.Logger, m *metrics.Metrics) *Service {
	if publisher == nil {
		publisher = messaging.Noop{}
	}
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
	}
}

// RegisterLesson records a lesson and credits its XP to the student and the
// topic's skills. Everything runs in one transaction holding the student row
// lock, so concurrent registrations for a student are serialized.
// Calling it twice with the same input registers two lessons.
func (s *Service) RegisterLesson(ctx context.Context, in RegisterLessonInput) (*Lesson, error) {
	if in.DurationMinutes < 1 || in.DurationMinutes > 480 {
		return nil, fmt.Errorf("%w: durationMinutes must be between 1 and 480", ErrInvalidInput)
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}

	var (
		created      *Lesson
		studentXP    int
		studentLevel int
	)

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		st, err := tx.LockStudent(ctx, in.StudentID, in.TeacherUserID)
		if err != nil {
			return err
		}

		topic, err := tx.GetTopicWithSkills(ctx, in.TopicID)
		if err != nil {
			return err
		}

		xpEarned := XPEarned(in.Rating, in.DurationMinutes, topic.XPWeight)

		l := &Lesson{
			ID:              uuid.New(),
			StudentID:       st.ID,
			TeacherUserID:   in.TeacherUserID,
			TopicID:         topic.ID,
			HeldAt:          in.HeldAt,
			DurationMinutes: in.DurationMinutes,
			Rating:          in.Rating,
			XPEarned:        xpEarned,
			Notes:           in.Notes,
		}
		if err := tx.InsertLesson(ctx, l); err != nil {
			return fmt.Errorf("failed to insert lesson: %w", err)
		}

		studentXP = st.XP + xpEarned
		studentLevel = LevelForXP(studentXP)
		if err := tx.UpdateStudentProgress(ctx, st.ID, studentXP, studentLevel); err != nil {
			return fmt.Errorf("failed to update student xp: %w", err)
		}

		if n := len(topic.SkillIDs); n > 0 {
			share := SkillShare(xpEarned, n)
			for _, skillID := range topic.SkillIDs {
				current, err := tx.AddSkillXP(ctx, st.ID, skillID, share)
				if err != nil {
					return err
				}
				if err := tx.SetSkillLevel(ctx, st.ID, skillID, LevelForXP(current)); err != nil {
					return fmt.Errorf("failed to set skill level: %w", err)
				}
			}
		}

		l.Topic = topic
		created = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLessonRegistered(ctx, created.XPEarned)
	s.logger.InfoContext(ctx, "lesson registered",
		"lesson_id", created.ID,
		"student_id", created.StudentID,
		"xp_earned", created.XPEarned,
		"student_xp", studentXP,
		"student_level", studentLevel,
	)

	s.publish(ctx, created, studentXP, studentLevel)

	return created, nil
}

func (s *Service) publish(ctx context.Context, l *Lesson, studentXP, studentLevel int) {
	event := messaging.Event{
		Type:       EventRegistered,
		Key:        l.StudentID.String(),
		OccurredAt: time.Now().UTC(),
		Payload: RegisteredEvent{
			LessonID:      l.ID,
			StudentID:     l.StudentID,
			TeacherUserID: l.TeacherUserID,
			TopicID:       l.TopicID,
			XPEarned:      l.XPEarned,
			StudentXP:     studentXP,
			StudentLevel:  studentLevel,
			HeldAt:        l.HeldAt,
		},
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish lesson event", "lesson_id", l.ID, "error", err)
	}
}

// ListLessons returns the student's lessons, newest first.
func (s *Service) ListLessons(ctx context.Context, studentID, teacherID uuid.UUID, limit int) ([]Lesson, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.store.ListLessons(ctx, studentID, teacherID, limit)
}
