package registration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
)

var (
	windowStart = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	insideNow   = time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC)
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func seedCourse(store *MemoryStore, id string, capacity, reserve int) models.Course {
	course := models.Course{ID: id, SemesterID: "sem-1", CourseName: id, MaxCapacity: capacity, ReserveLimit: reserve}
	store.PutCourse(models.CourseDetail{Course: course, RegistrationStart: windowStart, RegistrationEnd: windowEnd})
	return course
}

func seedStudents(store *MemoryStore, prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%03d", prefix, i)
		store.PutStudent(ids[i])
	}
	return ids
}

func newTestEngine(store Store, opts ...func(*Options)) *Engine {
	o := Options{LockTimeout: time.Second, EnforceWindow: true, Clock: fixedClock(insideNow)}
	for _, fn := range opts {
		fn(&o)
	}
	return NewEngine(store, o)
}

func statusOf(rows []models.Registration, studentID string) (models.RegistrationStatus, int, bool) {
	for _, row := range rows {
		if row.StudentID == studentID {
			return row.Status, row.Position(), true
		}
	}
	return "", 0, false
}

func requireValid(t *testing.T, store *MemoryStore, course models.Course) []models.Registration {
	t.Helper()
	rows := store.Registrations(course.ID)
	require.NoError(t, Verify(course, rows))
	return rows
}

// recordingObserver counts engine outcomes.
type recordingObserver struct {
	mu        sync.Mutex
	registers map[string]int
	drops     map[string]int
	promoted  int
	lockWaits map[string]int
	waiters   int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{registers: map[string]int{}, drops: map[string]int{}, lockWaits: map[string]int{}}
}

func (o *recordingObserver) ObserveRegistration(outcome, _ string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.registers[outcome]++
}

func (o *recordingObserver) ObserveDrop(outcome string, promoted bool, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.drops[outcome]++
	if promoted {
		o.promoted++
	}
}

func (o *recordingObserver) ObserveLockWait(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lockWaits[outcome]++
}

func (o *recordingObserver) LockWaiters(delta int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.waiters += delta
}

// blockingStore parks the first unit of work until release is closed.
type blockingStore struct {
	*MemoryStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingStore(inner *MemoryStore) *blockingStore {
	return &blockingStore{MemoryStore: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *blockingStore) WithinCourse(ctx context.Context, courseID string, fn func(CourseTx) error) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	return s.MemoryStore.WithinCourse(ctx, courseID, fn)
}

// failingStore makes ShiftAfter fail after the engine has already written through the tx.
type failingStore struct {
	*MemoryStore
}

type failingTx struct {
	CourseTx
}

func (failingTx) ShiftAfter(context.Context, int) error {
	return fmt.Errorf("connection reset")
}

func (s failingStore) WithinCourse(ctx context.Context, courseID string, fn func(CourseTx) error) error {
	return s.MemoryStore.WithinCourse(ctx, courseID, func(tx CourseTx) error {
		return fn(failingTx{CourseTx: tx})
	})
}
