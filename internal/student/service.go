package student

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrStudentNotFound = errors.New("student not found")
	ErrInvalidInput    = errors.New("invalid input")
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

type Service interface {
	CreateStudent(ctx context.Context, teacherID uuid.UUID, req CreateStudentRequest) (*Student, error)
	ListStudents(ctx context.Context, teacherID uuid.UUID, filter ListFilter) (*ListResult, error)
	GetStudent(ctx context.Context, id, teacherID uuid.UUID) (*Student, error)
	UpdateStudent(ctx context.Context, id, teacherID uuid.UUID, req UpdateStudentRequest) (*Student, error)
	ListClassGroups(ctx context.Context) ([]ClassGroup, error)
	ExportRoster(ctx context.Context, teacherID uuid.UUID, w io.Writer) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
	}
}

func (s *service) CreateStudent(ctx context.Context, teacherID uuid.UUID, req CreateStudentRequest) (*Student, error) {
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return nil, fmt.Errorf("%w: displayName is required", ErrInvalidInput)
	}

	student := &Student{
		ID:            uuid.New(),
		TeacherUserID: teacherID,
		ClassGroupID:  req.ClassGroupID,
		DisplayName:   displayName,
		FullName:      trimmedOrNil(req.FullName),
		AvatarType:    req.AvatarType,
		AvatarValue:   req.AvatarValue,
		XP:            0,
		Level:         1,
		Status:        StatusActive,
	}
	return s.repo.Create(ctx, student)
}

func (s *service) ListStudents(ctx context.Context, teacherID uuid.UUID, filter ListFilter) (*ListResult, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	students, total, err := s.repo.List(ctx, teacherID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	if students == nil {
		students = []Student{}
	}
	return &ListResult{Items: students, Total: total}, nil
}

func (s *service) GetStudent(ctx context.Context, id, teacherID uuid.UUID) (*Student, error) {
	return s.repo.GetByID(ctx, id, teacherID)
}

// UpdateStudent edits roster fields. XP and level are never written here.
func (s *service) UpdateStudent(ctx context.Context, id, teacherID uuid.UUID, req UpdateStudentRequest) (*Student, error) {
	student, err := s.repo.GetByID(ctx, id, teacherID)
	if err != nil {
		return nil, err
	}

	var columns []string
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return nil, fmt.Errorf("%w: displayName cannot be empty", ErrInvalidInput)
		}
		student.DisplayName = name
		columns = append(columns, "display_name")
	}
	if req.FullName != nil {
		student.FullName = trimmedOrNil(req.FullName)
		columns = append(columns, "full_name")
	}
	if req.ClassGroupID.Set {
		student.ClassGroupID = req.ClassGroupID.Value
		columns = append(columns, "class_group_id")
	}
	if req.Status != nil {
		student.Status = *req.Status
		columns = append(columns, "status")
	}

	if len(columns) == 0 {
		return student, nil
	}

	if err := s.repo.Update(ctx, student, columns...); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id, teacherID)
}

func (s *service) ListClassGroups(ctx context.Context) ([]ClassGroup, error) {
	return s.repo.ListClassGroups(ctx)
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
