package blocker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"orbitus-api/internal/metrics"
	"orbitus-api/internal/student"

	"github.com/google/uuid"
)

var (
	ErrBlockerNotFound = errors.New("blocker not found")
	ErrStudentNotFound = student.ErrStudentNotFound
	ErrInvalidInput    = errors.New("invalid input")
)

type Service struct {
	repo    Repository
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(repo Repository, m *metrics.Metrics) *Service {
	return &Service{repo: repo, metrics: m, now: time.Now}
}

// ClampSeverity forces severity into [1,3].
func ClampSeverity(severity int) int {
	return min(MaxSeverity, max(MinSeverity, severity))
}

func (s *Service) Create(ctx context.Context, studentID, teacherID uuid.UUID, req CreateBlockerRequest) (*Blocker, error) {
	title := strings.TrimSpace(req.TitleOrTopic)
	if title == "" {
		return nil, fmt.Errorf("%w: titleOrTopic is required", ErrInvalidInput)
	}

	if err := s.repo.EnsureStudent(ctx, studentID, teacherID); err != nil {
		return nil, err
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	var observation *string
	if req.Observation != nil {
		trimmed := strings.TrimSpace(*req.Observation)
		observation = &trimmed
	}

	b := &Blocker{
		ID:            uuid.New(),
		StudentID:     studentID,
		TeacherUserID: teacherID,
		TitleOrTopic:  title,
		Severity:      ClampSeverity(req.Severity),
		Tags:          tags,
		Observation:   observation,
		Status:        StatusActive,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create blocker: %w", err)
	}

	s.metrics.RecordBlockerCreated(ctx)
	return b, nil
}

// Update applies a status change. Resolving stamps resolved_at; re-activating
// leaves the previous resolved_at in place. A nil status changes nothing.
func (s *Service) Update(ctx context.Context, id, studentID, teacherID uuid.UUID, req UpdateBlockerRequest) (*Blocker, error) {
	b, err := s.repo.Get(ctx, id, studentID, teacherID)
	if err != nil {
		return nil, err
	}

	if req.Status == nil {
		return b, nil
	}

	switch *req.Status {
	case StatusResolved:
		now := s.now()
		b.Status = StatusResolved
		b.ResolvedAt = &now
		if err := s.repo.Update(ctx, b, "status", "resolved_at"); err != nil {
			return nil, fmt.Errorf("failed to resolve blocker: %w", err)
		}
		s.metrics.RecordBlockerResolved(ctx)
	case StatusActive:
		b.Status = StatusActive
		if err := s.repo.Update(ctx, b, "status"); err != nil {
			return nil, fmt.Errorf("failed to reactivate blocker: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *req.Status)
	}

	return b, nil
}

func (s *Service) List(ctx context.Context, studentID, teacherID uuid.UUID, status string) ([]Blocker, error) {
	if status != "" && status != StatusActive && status != StatusResolved {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if err := s.repo.EnsureStudent(ctx, studentID, teacherID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, studentID, status)
}
