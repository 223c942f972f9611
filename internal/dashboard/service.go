package dashboard

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"orbitus-api/internal/lesson"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	InactiveDays      = 7
	SummaryLessons    = 5
	NoClassGroupName  = "Sem turma"
	emptyValue        = "—"
	cardInactive      = "Alunos sem aula há 7+ dias"
	cardTopEvolution  = "Top evolução (XP esta semana)"
	cardTopBlockers   = "Top bloqueios por tópico"
	cardAvgDuration   = "Tempo médio por tema"
	defaultSkillLevel = 1
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Overview(ctx context.Context, teacherID uuid.UUID) (*Overview, error) {
	students, err := s.repo.ActiveStudents(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to load students: %w", err)
	}

	data := OverviewData{Students: students}
	if len(students) == 0 {
		return BuildOverview(data, s.since()), nil
	}

	since := s.since()
	if data.LastLessons, err = s.repo.LastLessons(ctx, teacherID); err != nil {
		return nil, fmt.Errorf("failed to load last lessons: %w", err)
	}
	if data.RecentLessons, err = s.repo.LessonsSince(ctx, teacherID, since); err != nil {
		return nil, fmt.Errorf("failed to load recent lessons: %w", err)
	}
	if data.BlockerTopics, err = s.repo.ActiveBlockerTopics(ctx, teacherID); err != nil {
		return nil, fmt.Errorf("failed to load blockers: %w", err)
	}
	if data.TopicDurations, err = s.repo.TopicDurations(ctx, teacherID); err != nil {
		return nil, fmt.Errorf("failed to load topic durations: %w", err)
	}

	return BuildOverview(data, since), nil
}

func (s *Service) since() time.Time {
	return s.now().AddDate(0, 0, -InactiveDays)
}

// BuildOverview computes the four overview cards. Ties keep the first
// candidate in input order.
func BuildOverview(d OverviewData, since time.Time) *Overview {
	if len(d.Students) == 0 {
		return &Overview{Cards: []Card{
			{Title: cardInactive, Value: 0},
			{Title: cardTopEvolution, Value: emptyValue},
			{Title: cardTopBlockers, Value: emptyValue},
			{Title: cardAvgDuration, Value: emptyValue},
		}}
	}

	return &Overview{Cards: []Card{
		{Title: cardInactive, Value: countInactive(d.Students, d.LastLessons, since), Subtitle: fmt.Sprintf("%d dias", InactiveDays)},
		{Title: cardTopEvolution, Value: topEvolution(d.Students, d.RecentLessons)},
		{Title: cardTopBlockers, Value: topBlocker(d.BlockerTopics)},
		{Title: cardAvgDuration, Value: longestTopic(d.TopicDurations)},
	}}
}

func countInactive(students []StudentRow, last []LastLesson, since time.Time) int {
	lastByStudent := lo.SliceToMap(last, func(l LastLesson) (uuid.UUID, time.Time) {
		return l.StudentID, l.LastHeldAt
	})
	return lo.CountBy(students, func(st StudentRow) bool {
		held, ok := lastByStudent[st.ID]
		return !ok || held.Before(since)
	})
}

func topEvolution(students []StudentRow, lessons []LessonXP) string {
	xpByStudent := lo.MapValues(
		lo.GroupBy(lessons, func(l LessonXP) uuid.UUID { return l.StudentID }),
		func(ls []LessonXP, _ uuid.UUID) int {
			return lo.SumBy(ls, func(l LessonXP) int { return l.XPEarned })
		},
	)

	best, bestXP := "", 0
	for _, st := range students {
		if xp := xpByStudent[st.ID]; xp > bestXP {
			best, bestXP = st.DisplayName, xp
		}
	}
	if best == "" {
		return emptyValue
	}
	return fmt.Sprintf("%s (+%d XP)", best, bestXP)
}

func topBlocker(topics []string) string {
	counts := lo.CountValues(topics)

	best, bestCount := "", 0
	for _, topic := range lo.Uniq(topics) {
		if counts[topic] > bestCount {
			best, bestCount = topic, counts[topic]
		}
	}
	if bestCount == 0 {
		return emptyValue
	}
	return fmt.Sprintf("%s (%d)", best, bestCount)
}

func longestTopic(durations []TopicDuration) string {
	if len(durations) == 0 {
		return emptyValue
	}
	top := lo.MaxBy(durations, func(a, b TopicDuration) bool {
		return a.AvgMinutes > b.AvgMinutes
	})
	return fmt.Sprintf("%d min (%s)", int(math.Round(top.AvgMinutes)), top.TopicName)
}

func (s *Service) ByClass(ctx context.Context, teacherID uuid.UUID) ([]ClassStats, error) {
	students, err := s.repo.ActiveStudents(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to load students: %w", err)
	}
	return BuildByClass(students), nil
}

// BuildByClass groups students by class group. Students without one are
// reported under NoClassGroupName. Groups are sorted by name.
func BuildByClass(students []StudentRow) []ClassStats {
	groups := map[uuid.UUID]*ClassStats{}
	var order []uuid.UUID

	for _, st := range students {
		key := lo.FromPtr(st.ClassGroupID)
		stats, ok := groups[key]
		if !ok {
			stats = &ClassStats{ClassGroupID: st.ClassGroupID, ClassGroupName: NoClassGroupName}
			if st.ClassGroupName != nil {
				stats.ClassGroupName = *st.ClassGroupName
			}
			groups[key] = stats
			order = append(order, key)
		}
		stats.StudentCount++
		stats.TotalXP += st.XP
		stats.ActiveBlockers += st.ActiveBlockers
	}

	result := lo.Map(order, func(key uuid.UUID, _ int) ClassStats { return *groups[key] })
	slices.SortStableFunc(result, func(a, b ClassStats) int {
		return strings.Compare(a.ClassGroupName, b.ClassGroupName)
	})
	return result
}

func (s *Service) StudentSummary(ctx context.Context, studentID, teacherID uuid.UUID) (*StudentSummary, error) {
	st, err := s.repo.GetStudent(ctx, studentID, teacherID)
	if err != nil {
		return nil, err
	}

	lessons, err := s.repo.RecentLessons(ctx, studentID, SummaryLessons)
	if err != nil {
		return nil, fmt.Errorf("failed to load lessons: %w", err)
	}
	progress, err := s.repo.SkillProgress(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load skill progress: %w", err)
	}
	blockers, err := s.repo.CountActiveBlockers(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count blockers: %w", err)
	}
	goals, err := s.repo.CountActiveGoals(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count goals: %w", err)
	}

	card := StudentCard{
		ID:          st.ID,
		DisplayName: st.DisplayName,
		FullName:    st.FullName,
		AvatarType:  st.AvatarType,
		AvatarValue: st.AvatarValue,
		PhotoURL:    st.PhotoURL,
		Level:       st.Level,
		XP:          st.XP,
		Status:      st.Status,
	}
	if st.ClassGroup != nil {
		card.ClassGroup = &ClassGroupRef{ID: st.ClassGroup.ID, Name: st.ClassGroup.Name}
	}

	summary := &StudentSummary{
		Student:             card,
		ActiveBlockersCount: blockers,
		ActiveGoalsCount:    goals,
	}
	summary.LastLessons = lo.Map(lessons, func(l lesson.Lesson, _ int) LessonLine {
		line := LessonLine{
			ID:              l.ID,
			HeldAt:          l.HeldAt,
			DurationMinutes: l.DurationMinutes,
			Rating:          l.Rating,
			XPEarned:        l.XPEarned,
		}
		if l.Topic != nil {
			line.TopicName = l.Topic.Name
		}
		return line
	})
	summary.SkillBars = lo.FilterMap(progress, func(p lesson.SkillProgress, _ int) (SkillBar, bool) {
		if p.Skill == nil {
			return SkillBar{}, false
		}
		level := p.Level
		if level < 1 {
			level = defaultSkillLevel
		}
		return SkillBar{
			SkillID:   p.Skill.ID,
			SkillName: p.Skill.Name,
			Color:     p.Skill.Color,
			CurrentXP: p.CurrentXP,
			Level:     level,
		}, true
	})
	return summary, nil
}
