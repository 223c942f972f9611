package lesson_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"orbitus-api/internal/curriculum"
	"orbitus-api/internal/lesson"
	"orbitus-api/internal/logger"
	"orbitus-api/internal/messaging"
	"orbitus-api/internal/metrics"
	"orbitus-api/internal/student"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type skillKey struct {
	student uuid.UUID
	skill   uuid.UUID
}

type skillRow struct {
	xp    int
	level int
}

// memStore is an in-memory Store. Transactions work on a copy of the state
// that replaces it only when fn succeeds.
type memStore struct {
	mu       sync.Mutex
	students map[uuid.UUID]student.Student
	topics   map[uuid.UUID]curriculum.Topic
	lessons  []lesson.Lesson
	skills   map[skillKey]skillRow

	failSkillWrite bool
}

func newMemStore() *memStore {
	return &memStore{
		students: map[uuid.UUID]student.Student{},
		topics:   map[uuid.UUID]curriculum.Topic{},
		skills:   map[skillKey]skillRow{},
	}
}

func (m *memStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx lesson.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		store:    m,
		students: map[uuid.UUID]student.Student{},
		skills:   map[skillKey]skillRow{},
	}
	for k, v := range m.students {
		tx.students[k] = v
	}
	for k, v := range m.skills {
		tx.skills[k] = v
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	m.students = tx.students
	m.skills = tx.skills
	m.lessons = append(m.lessons, tx.lessons...)
	return nil
}

func (m *memStore) ListLessons(ctx context.Context, studentID, teacherID uuid.UUID, limit int) ([]lesson.Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.students[studentID]
	if !ok || st.TeacherUserID != teacherID {
		return nil, student.ErrStudentNotFound
	}
	var out []lesson.Lesson
	for i := len(m.lessons) - 1; i >= 0 && len(out) < limit; i-- {
		if m.lessons[i].StudentID == studentID {
			out = append(out, m.lessons[i])
		}
	}
	return out, nil
}

type memTx struct {
	store    *memStore
	students map[uuid.UUID]student.Student
	skills   map[skillKey]skillRow
	lessons  []lesson.Lesson
}

func (t *memTx) LockStudent(ctx context.Context, studentID, teacherID uuid.UUID) (*student.Student, error) {
	st, ok := t.students[studentID]
	if !ok || st.TeacherUserID != teacherID {
		return nil, student.ErrStudentNotFound
	}
	return &st, nil
}

func (t *memTx) GetTopicWithSkills(ctx context.Context, topicID uuid.UUID) (*curriculum.Topic, error) {
	topic, ok := t.store.topics[topicID]
	if !ok {
		return nil, curriculum.ErrTopicNotFound
	}
	return &topic, nil
}

func (t *memTx) InsertLesson(ctx context.Context, l *lesson.Lesson) error {
	t.lessons = append(t.lessons, *l)
	return nil
}

func (t *memTx) UpdateStudentProgress(ctx context.Context, studentID uuid.UUID, xp, level int) error {
	st := t.students[studentID]
	st.XP = xp
	st.Level = level
	t.students[studentID] = st
	return nil
}

func (t *memTx) AddSkillXP(ctx context.Context, studentID, skillID uuid.UUID, xp int) (int, error) {
	if t.store.failSkillWrite {
		return 0, errors.New("disk full")
	}
	key := skillKey{studentID, skillID}
	row, ok := t.skills[key]
	if !ok {
		row = skillRow{level: 1}
	}
	row.xp += xp
	t.skills[key] = row
	return row.xp, nil
}

func (t *memTx) SetSkillLevel(ctx context.Context, studentID, skillID uuid.UUID, level int) error {
	key := skillKey{studentID, skillID}
	row := t.skills[key]
	row.level = level
	t.skills[key] = row
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []messaging.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, e messaging.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	store     *memStore
	publisher *recordingPublisher
	service   *lesson.Service
	teacherID uuid.UUID
	studentID uuid.UUID
}

func newFixture(t *testing.T, startXP int) *fixture {
	t.Helper()
	f := &fixture{
		store:     newMemStore(),
		publisher: &recordingPublisher{},
		teacherID: uuid.New(),
		studentID: uuid.New(),
	}
	f.store.students[f.studentID] = student.Student{
		ID:            f.studentID,
		TeacherUserID: f.teacherID,
		DisplayName:   "Ana",
		XP:            startXP,
		Level:         lesson.LevelForXP(startXP),
		Status:        student.StatusActive,
	}
	f.service = lesson.NewService(f.store, f.publisher, logger.Discard(), metrics.NewMock())
	return f
}

func (f *fixture) addTopic(weight float64, skills ...uuid.UUID) uuid.UUID {
	id := uuid.New()
	f.store.topics[id] = curriculum.Topic{ID: id, Name: "Lógica de programação", XPWeight: weight, SkillIDs: skills}
	return id
}

func (f *fixture) input(topicID uuid.UUID, rating, duration int) lesson.RegisterLessonInput {
	return lesson.RegisterLessonInput{
		StudentID:       f.studentID,
		TeacherUserID:   f.teacherID,
		TopicID:         topicID,
		HeldAt:          time.Date(2025, 2, 9, 14, 0, 0, 0, time.UTC),
		DurationMinutes: duration,
		Rating:          rating,
	}
}

func TestRegisterLesson(t *testing.T) {
	ctx := context.Background()

	t.Run("StaysOnLevelOne", func(t *testing.T) {
		f := newFixture(t, 80)
		topic := f.addTopic(1.0)

		created, err := f.service.RegisterLesson(ctx, f.input(topic, 4, 45))
		require.NoError(t, err)

		assert.Equal(t, 18, created.XPEarned)
		st := f.store.students[f.studentID]
		assert.Equal(t, 98, st.XP)
		assert.Equal(t, 1, st.Level)
		require.NotNil(t, created.Topic)
		assert.Equal(t, "Lógica de programação", created.Topic.Name)
	})

	t.Run("CrossesLevelBoundary", func(t *testing.T) {
		f := newFixture(t, 98)
		topic := f.addTopic(1.0)

		created, err := f.service.RegisterLesson(ctx, f.input(topic, 5, 40))
		require.NoError(t, err)

		assert.Equal(t, 20, created.XPEarned)
		st := f.store.students[f.studentID]
		assert.Equal(t, 118, st.XP)
		assert.Equal(t, 2, st.Level)
	})

	t.Run("SplitsXPAcrossSkills", func(t *testing.T) {
		f := newFixture(t, 0)
		skills := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
		topic := f.addTopic(1.0, skills...)

		created, err := f.service.RegisterLesson(ctx, f.input(topic, 5, 40))
		require.NoError(t, err)
		require.Equal(t, 20, created.XPEarned)

		total := 0
		for _, skill := range skills {
			row := f.store.skills[skillKey{f.studentID, skill}]
			assert.Equal(t, 6, row.xp)
			assert.Equal(t, 1, row.level)
			total += row.xp
		}
		assert.Equal(t, 18, total)
		assert.LessOrEqual(t, total, created.XPEarned)
	})

	t.Run("SkillLevelFollowsAccumulatedXP", func(t *testing.T) {
		f := newFixture(t, 0)
		skill := uuid.New()
		topic := f.addTopic(1.0, skill)
		f.store.skills[skillKey{f.studentID, skill}] = skillRow{xp: 90, level: 1}

		_, err := f.service.RegisterLesson(ctx, f.input(topic, 5, 40))
		require.NoError(t, err)

		row := f.store.skills[skillKey{f.studentID, skill}]
		assert.Equal(t, 110, row.xp)
		assert.Equal(t, 2, row.level)
	})

	t.Run("TopicWithoutSkills", func(t *testing.T) {
		f := newFixture(t, 0)
		topic := f.addTopic(1.0)

		_, err := f.service.RegisterLesson(ctx, f.input(topic, 4, 45))
		require.NoError(t, err)

		assert.Empty(t, f.store.skills)
		assert.Equal(t, 18, f.store.students[f.studentID].XP)
	})

	t.Run("NotIdempotent", func(t *testing.T) {
		f := newFixture(t, 0)
		topic := f.addTopic(1.0)
		in := f.input(topic, 4, 45)

		first, err := f.service.RegisterLesson(ctx, in)
		require.NoError(t, err)
		second, err := f.service.RegisterLesson(ctx, in)
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
		assert.Len(t, f.store.lessons, 2)
		assert.Equal(t, 36, f.store.students[f.studentID].XP)
	})

	t.Run("ForeignStudentLooksMissing", func(t *testing.T) {
		f := newFixture(t, 0)
		topic := f.addTopic(1.0)

		foreign := f.input(topic, 4, 45)
		foreign.TeacherUserID = uuid.New()
		_, errForeign := f.service.RegisterLesson(ctx, foreign)

		missing := f.input(topic, 4, 45)
		missing.StudentID = uuid.New()
		_, errMissing := f.service.RegisterLesson(ctx, missing)

		assert.ErrorIs(t, errForeign, lesson.ErrStudentNotFound)
		assert.ErrorIs(t, errMissing, lesson.ErrStudentNotFound)
		assert.Equal(t, errMissing.Error(), errForeign.Error())
		assert.Empty(t, f.store.lessons)
		assert.Empty(t, f.publisher.events)
	})

	t.Run("UnknownTopic", func(t *testing.T) {
		f := newFixture(t, 50)

		_, err := f.service.RegisterLesson(ctx, f.input(uuid.New(), 4, 45))
		assert.ErrorIs(t, err, lesson.ErrTopicNotFound)
		assert.Empty(t, f.store.lessons)
		assert.Equal(t, 50, f.store.students[f.studentID].XP)
	})

	t.Run("RejectsOutOfRangeInput", func(t *testing.T) {
		f := newFixture(t, 0)
		topic := f.addTopic(1.0)

		_, err := f.service.RegisterLesson(ctx, f.input(topic, 6, 45))
		assert.ErrorIs(t, err, lesson.ErrInvalidInput)
		_, err = f.service.RegisterLesson(ctx, f.input(topic, 3, 0))
		assert.ErrorIs(t, err, lesson.ErrInvalidInput)
		_, err = f.service.RegisterLesson(ctx, f.input(topic, 3, 481))
		assert.ErrorIs(t, err, lesson.ErrInvalidInput)
	})

	t.Run("SkillFailureRollsBackEverything", func(t *testing.T) {
		f := newFixture(t, 10)
		topic := f.addTopic(1.0, uuid.New())
		f.store.failSkillWrite = true

		_, err := f.service.RegisterLesson(ctx, f.input(topic, 4, 45))
		require.Error(t, err)

		assert.Empty(t, f.store.lessons)
		assert.Equal(t, 10, f.store.students[f.studentID].XP)
		assert.Empty(t, f.publisher.events)
	})

	t.Run("PublishesEvent", func(t *testing.T) {
		f := newFixture(t, 80)
		topic := f.addTopic(1.0)

		created, err := f.service.RegisterLesson(ctx, f.input(topic, 4, 45))
		require.NoError(t, err)

		require.Len(t, f.publisher.events, 1)
		event := f.publisher.events[0]
		assert.Equal(t, lesson.EventRegistered, event.Type)
		assert.Equal(t, f.studentID.String(), event.Key)
		payload, ok := event.Payload.(lesson.RegisteredEvent)
		require.True(t, ok)
		assert.Equal(t, created.ID, payload.LessonID)
		assert.Equal(t, 98, payload.StudentXP)
		assert.Equal(t, 1, payload.StudentLevel)
	})

	t.Run("PublishFailureKeepsLesson", func(t *testing.T) {
		f := newFixture(t, 0)
		f.publisher.err = errors.New("nats down")
		topic := f.addTopic(1.0)

		_, err := f.service.RegisterLesson(ctx, f.input(topic, 4, 45))
		require.NoError(t, err)
		assert.Len(t, f.store.lessons, 1)
	})

	t.Run("ConcurrentRegistrationsAllCount", func(t *testing.T) {
		f := newFixture(t, 0)
		topic := f.addTopic(1.0)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.service.RegisterLesson(ctx, f.input(topic, 4, 45))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, 180, f.store.students[f.studentID].XP)
		assert.Equal(t, 2, f.store.students[f.studentID].Level)
	})
}

func TestListLessons(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	topic := f.addTopic(1.0)

	for i := 0; i < 3; i++ {
		_, err := f.service.RegisterLesson(ctx, f.input(topic, 4, 45))
		require.NoError(t, err)
	}

	lessons, err := f.service.ListLessons(ctx, f.studentID, f.teacherID, 2)
	require.NoError(t, err)
	assert.Len(t, lessons, 2)

	_, err = f.service.ListLessons(ctx, f.studentID, uuid.New(), 0)
	assert.ErrorIs(t, err, lesson.ErrStudentNotFound)
}
