package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	Database *DatabaseMetrics
	Events   *EventMetrics
	Health   *HealthMetrics

	studentsCreated   metric.Int64Counter
	lessonsRegistered metric.Int64Counter
	xpAwarded         metric.Int64Counter
	blockersCreated   metric.Int64Counter
	blockersResolved  metric.Int64Counter
	goalsCompleted    metric.Int64Counter
	loginAttempts     metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	database, err := NewDatabaseMetrics(meter)
	if err != nil {
		return nil, err
	}

	events, err := NewEventMetrics(meter)
	if err != nil {
		return nil, err
	}

	health, err := NewHealthMetrics(meter)
	if err != nil {
		return nil, err
	}

	m := &Metrics{Database: database, Events: events, Health: health}

	m.studentsCreated, err = meter.Int64Counter(
		"orbitus.students.created",
		metric.WithDescription("Total number of students created"),
		metric.WithUnit("{student}"),
	)
	if err != nil {
		return nil, err
	}

	m.lessonsRegistered, err = meter.Int64Counter(
		"orbitus.lessons.registered",
		metric.WithDescription("Total number of lessons registered"),
		metric.WithUnit("{lesson}"),
	)
	if err != nil {
		return nil, err
	}

	m.xpAwarded, err = meter.Int64Counter(
		"orbitus.xp.awarded",
		metric.WithDescription("Total XP awarded to students by lessons"),
		metric.WithUnit("{xp}"),
	)
	if err != nil {
		return nil, err
	}

	m.blockersCreated, err = meter.Int64Counter(
		"orbitus.blockers.created",
		metric.WithDescription("Total number of blockers recorded"),
		metric.WithUnit("{blocker}"),
	)
	if err != nil {
		return nil, err
	}

	m.blockersResolved, err = meter.Int64Counter(
		"orbitus.blockers.resolved",
		metric.WithDescription("Total number of blockers marked resolved"),
		metric.WithUnit("{blocker}"),
	)
	if err != nil {
		return nil, err
	}

	m.goalsCompleted, err = meter.Int64Counter(
		"orbitus.goals.completed",
		metric.WithDescription("Total number of goals marked completed"),
		metric.WithUnit("{goal}"),
	)
	if err != nil {
		return nil, err
	}

	m.loginAttempts, err = meter.Int64Counter(
		"orbitus.auth.login_attempts",
		metric.WithDescription("Login attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordStudentCreated(ctx context.Context) {
	if m != nil && m.studentsCreated != nil {
		m.studentsCreated.Add(ctx, 1)
	}
}

func (m *Metrics) RecordLessonRegistered(ctx context.Context, xpEarned int) {
	if m == nil || m.lessonsRegistered == nil {
		return
	}
	m.lessonsRegistered.Add(ctx, 1)
	m.xpAwarded.Add(ctx, int64(xpEarned))
}

func (m *Metrics) RecordBlockerCreated(ctx context.Context) {
	if m != nil && m.blockersCreated != nil {
		m.blockersCreated.Add(ctx, 1)
	}
}

func (m *Metrics) RecordBlockerResolved(ctx context.Context) {
	if m != nil && m.blockersResolved != nil {
		m.blockersResolved.Add(ctx, 1)
	}
}

func (m *Metrics) RecordGoalCompleted(ctx context.Context) {
	if m != nil && m.goalsCompleted != nil {
		m.goalsCompleted.Add(ctx, 1)
	}
}

func (m *Metrics) RecordLoginAttempt(ctx context.Context, outcome string) {
	if m != nil && m.loginAttempts != nil {
		m.loginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// NewMock creates a no-op Metrics instance for testing
// The returned Metrics will safely ignore all Record* calls
func NewMock() *Metrics {
	return &Metrics{Database: &DatabaseMetrics{}, Events: &EventMetrics{}, Health: &HealthMetrics{}}
}
