package goal

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
	ErrGoalNotFound    = errors.New("goal not found")
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

// ParseDeadline accepts an RFC3339 timestamp or a plain 2006-01-02 date.
func ParseDeadline(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: deadlineAt must be RFC3339 or YYYY-MM-DD", ErrInvalidInput)
	}
	return t, nil
}

func (s *Service) Create(ctx context.Context, studentID, teacherID uuid.UUID, req CreateGoalRequest) (*Goal, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	status := StatusPending
	if req.Status != nil {
		if !ValidStatus(*req.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *req.Status)
		}
		status = *req.Status
	}

	var deadline *time.Time
	if req.DeadlineAt != nil && *req.DeadlineAt != "" {
		t, err := ParseDeadline(*req.DeadlineAt)
		if err != nil {
			return nil, err
		}
		deadline = &t
	}

	if err := s.repo.EnsureStudent(ctx, studentID, teacherID); err != nil {
		return nil, err
	}

	var description *string
	if req.Description != nil {
		trimmed := strings.TrimSpace(*req.Description)
		description = &trimmed
	}

	g := &Goal{
		ID:            uuid.New(),
		StudentID:     studentID,
		TeacherUserID: teacherID,
		Title:         title,
		Description:   description,
		Status:        status,
		DeadlineAt:    deadline,
	}
	if status == StatusCompleted {
		now := s.now()
		g.CompletedAt = &now
	}

	if err := s.repo.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	if status == StatusCompleted {
		s.metrics.RecordGoalCompleted(ctx)
	}
	return g, nil
}

// Update sets status and deadline. Any status may be set directly; completed
// stamps completed_at and every other status clears it.
func (s *Service) Update(ctx context.Context, id, studentID, teacherID uuid.UUID, req UpdateGoalRequest) (*Goal, error) {
	if req.Status != nil && !ValidStatus(*req.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *req.Status)
	}

	var (
		deadline    *time.Time
		setDeadline bool
	)
	if req.DeadlineAt != nil {
		setDeadline = true
		if *req.DeadlineAt != "" {
			t, err := ParseDeadline(*req.DeadlineAt)
			if err != nil {
				return nil, err
			}
			deadline = &t
		}
	}

	g, err := s.repo.Get(ctx, id, studentID, teacherID)
	if err != nil {
		return nil, err
	}

	var columns []string
	completed := false
	if req.Status != nil {
		g.Status = *req.Status
		if g.Status == StatusCompleted {
			now := s.now()
			g.CompletedAt = &now
			completed = true
		} else {
			g.CompletedAt = nil
		}
		columns = append(columns, "status", "completed_at")
	}
	if setDeadline {
		g.DeadlineAt = deadline
		columns = append(columns, "deadline_at")
	}

	if len(columns) == 0 {
		return g, nil
	}

	if err := s.repo.Update(ctx, g, columns...); err != nil {
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}

	if completed {
		s.metrics.RecordGoalCompleted(ctx)
	}
	return g, nil
}

func (s *Service) List(ctx context.Context, studentID, teacherID uuid.UUID, status string) ([]Goal, error) {
	if status != "" && !ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if err := s.repo.EnsureStudent(ctx, studentID, teacherID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, studentID, status)
}
