package registration

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
)

// Compile-time interface checks.
var (
	_ Store    = (*MemoryStore)(nil)
	_ CourseTx = (*memoryTx)(nil)
)

// MemoryStore is an in-process Store. Each course has its own mutex and writes are staged on a
// copy that replaces the committed rows only when the unit of work succeeds.
type MemoryStore struct {
	mu       sync.RWMutex
	students map[string]struct{}
	courses  map[string]*memoryCourse
}

type memoryCourse struct {
	mu     sync.Mutex
	detail models.CourseDetail
	rows   map[string]models.Registration
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		students: make(map[string]struct{}),
		courses:  make(map[string]*memoryCourse),
	}
}

// PutStudent makes studentID known to the store.
func (s *MemoryStore) PutStudent(studentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[studentID] = struct{}{}
}

// PutCourse adds or replaces course metadata, keeping existing registrations.
//
// A course mutex is never acquired while s.mu is held: WithinCourse holds the course mutex while
// Insert reads the student set.
func (s *MemoryStore) PutCourse(detail models.CourseDetail) {
	s.mu.Lock()
	c, ok := s.courses[detail.ID]
	if !ok {
		s.courses[detail.ID] = &memoryCourse{detail: detail, rows: make(map[string]models.Registration)}
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	c.mu.Lock()
	c.detail = detail
	c.mu.Unlock()
}

// Registrations returns a snapshot of the course rows: ENROLLED first by creation time, then
// RESERVED by position.
func (s *MemoryStore) Registrations(courseID string) []models.Registration {
	s.mu.RLock()
	c, ok := s.courses[courseID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	c.mu.Lock()
	out := make([]models.Registration, 0, len(c.rows))
	for _, row := range c.rows {
		out = append(out, cloneRegistration(row))
	}
	c.mu.Unlock()

	SortRoster(out)
	return out
}

// WithinCourse implements Store.
func (s *MemoryStore) WithinCourse(ctx context.Context, courseID string, fn func(CourseTx) error) error {
	s.mu.RLock()
	c, ok := s.courses[courseID]
	s.mu.RUnlock()
	if !ok {
		return ErrCourseNotFound
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	staged := make(map[string]models.Registration, len(c.rows))
	for k, row := range c.rows {
		staged[k] = cloneRegistration(row)
	}
	tx := &memoryTx{store: s, detail: c.detail, rows: staged}
	if err := fn(tx); err != nil {
		return err
	}
	c.rows = tx.rows
	return nil
}

func (s *MemoryStore) hasStudent(studentID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.students[studentID]
	return ok
}

// memoryTx operates on staged rows keyed by student id.
type memoryTx struct {
	store  *MemoryStore
	detail models.CourseDetail
	rows   map[string]models.Registration
}

func (t *memoryTx) Course() models.CourseDetail { return t.detail }

func (t *memoryTx) Lookup(_ context.Context, studentID string) (*models.Registration, error) {
	row, ok := t.rows[studentID]
	if !ok {
		return nil, nil
	}
	clone := cloneRegistration(row)
	return &clone, nil
}

func (t *memoryTx) StudentExists(_ context.Context, studentID string) (bool, error) {
	return t.store.hasStudent(studentID), nil
}

func (t *memoryTx) Counts(context.Context) (Counts, error) {
	var counts Counts
	for _, row := range t.rows {
		switch row.Status {
		case models.RegistrationStatusEnrolled:
			counts.Enrolled++
		case models.RegistrationStatusReserved:
			counts.Reserved++
		}
	}
	return counts, nil
}

func (t *memoryTx) Insert(_ context.Context, reg *models.Registration) error {
	if _, exists := t.rows[reg.StudentID]; exists {
		return ErrAlreadyRegistered
	}
	if !t.store.hasStudent(reg.StudentID) {
		return ErrStudentNotFound
	}
	t.rows[reg.StudentID] = cloneRegistration(*reg)
	return nil
}

func (t *memoryTx) Remove(_ context.Context, registrationID string) error {
	for key, row := range t.rows {
		if row.ID == registrationID {
			delete(t.rows, key)
			return nil
		}
	}
	return ErrNotRegistered
}

func (t *memoryTx) Head(context.Context) (*models.Registration, error) {
	var head *models.Registration
	for _, row := range t.rows {
		if row.Status != models.RegistrationStatusReserved {
			continue
		}
		if head == nil || row.Position() < head.Position() {
			clone := cloneRegistration(row)
			head = &clone
		}
	}
	return head, nil
}

func (t *memoryTx) Promote(_ context.Context, registrationID string) error {
	for key, row := range t.rows {
		if row.ID == registrationID && row.Status == models.RegistrationStatusReserved {
			row.Status = models.RegistrationStatusEnrolled
			row.ReservePosition = nil
			row.UpdatedAt = time.Now().UTC()
			t.rows[key] = row
			return nil
		}
	}
	return ErrNotRegistered
}

func (t *memoryTx) ShiftAfter(_ context.Context, position int) error {
	now := time.Now().UTC()
	for key, row := range t.rows {
		if row.Status == models.RegistrationStatusReserved && row.Position() > position {
			next := row.Position() - 1
			row.ReservePosition = &next
			row.UpdatedAt = now
			t.rows[key] = row
		}
	}
	return nil
}

func cloneRegistration(r models.Registration) models.Registration {
	if r.ReservePosition != nil {
		p := *r.ReservePosition
		r.ReservePosition = &p
	}
	return r
}

// SortRoster orders rows ENROLLED first by creation time and student id, then RESERVED by position.
func SortRoster(rows []models.Registration) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Status != b.Status {
			return a.Status == models.RegistrationStatusEnrolled
		}
		if a.Status == models.RegistrationStatusReserved {
			return a.Position() < b.Position()
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.StudentID < b.StudentID
	})
}
