package state

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/five82/cohort/internal/realtime"
	"github.com/five82/cohort/internal/training"
)

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	User        training.User
	HasUser     bool
	Modules     []training.Module
	Attendance  []training.Attendance
	Assessments []training.Assessment
	Grades      []training.Grade
	Messages    []training.Message
	Trainees    []training.User
	Connection  realtime.ConnectionState

	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive roster poll failures
}

// IsOffline returns true when the roster has been unreachable for multiple
// polls or the connection tracker reports the backend offline.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2 || s.Connection.Offline()
}

// IsAdmin reports whether the signed-in user is an administrator.
func (s Snapshot) IsAdmin() bool {
	return s.HasUser && s.User.Role == training.RoleAdmin
}

// Unread counts unread messages in the inbox.
func (s Snapshot) Unread() int {
	n := 0
	for _, m := range s.Messages {
		if !m.Read {
			n++
		}
	}
	return n
}

// AdminDashboard derives the admin overview.
func (s Snapshot) AdminDashboard(now time.Time) training.AdminDashboard {
	return training.BuildAdminDashboard(len(s.Trainees), s.Modules, s.Attendance, now)
}

// TraineeDashboard derives the trainee overview.
func (s Snapshot) TraineeDashboard() training.TraineeDashboard {
	return training.BuildTraineeDashboard(s.Modules, s.Assessments, s.Grades)
}

// Store coordinates concurrent updates to the snapshot. Subscription
// callbacks and the roster poller write; the UI reads.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// SetUser records the signed-in user.
func (s *Store) SetUser(u training.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.User = u
	s.snapshot.HasUser = true
}

// SetModules replaces the live module list.
func (s *Store) SetModules(modules []training.Module) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Modules = cloneSlice(modules)
	s.snapshot.LastUpdated = time.Now()
}

// SetAttendance replaces the live attendance list.
func (s *Store) SetAttendance(records []training.Attendance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Attendance = cloneSlice(records)
	s.snapshot.LastUpdated = time.Now()
}

// SetAssessments replaces the live assessment list.
func (s *Store) SetAssessments(assessments []training.Assessment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Assessments = cloneSlice(assessments)
	s.snapshot.LastUpdated = time.Now()
}

// SetGrades replaces the live grade list. Score pointers are copied so the
// snapshot never shares them with the caller.
func (s *Store) SetGrades(grades []training.Grade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Grades = cloneGrades(grades)
	s.snapshot.LastUpdated = time.Now()
}

// SetMessages replaces the live inbox.
func (s *Store) SetMessages(messages []training.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Messages = cloneSlice(messages)
	s.snapshot.LastUpdated = time.Now()
}

// SetConnection records the tracker's latest connection state.
func (s *Store) SetConnection(cs realtime.ConnectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Connection = cs
}

// UpdateTrainees replaces the trainee roster. When err is non-nil the previous
// roster is kept but the error is recorded for visibility.
func (s *Store) UpdateTrainees(trainees []training.User, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = time.Now()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return
	}
	s.snapshot.Trainees = cloneSlice(trainees)
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Modules = cloneSlice(s.snapshot.Modules)
	snap.Attendance = cloneSlice(s.snapshot.Attendance)
	snap.Assessments = cloneSlice(s.snapshot.Assessments)
	snap.Grades = cloneGrades(s.snapshot.Grades)
	snap.Messages = cloneSlice(s.snapshot.Messages)
	snap.Trainees = cloneSlice(s.snapshot.Trainees)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneSlice[T any](items []T) []T {
	if len(items) == 0 {
		return nil
	}
	return slices.Clone(items)
}

func cloneGrades(grades []training.Grade) []training.Grade {
	dup := cloneSlice(grades)
	for i := range dup {
		if dup[i].Score != nil {
			score := *dup[i].Score
			dup[i].Score = &score
		}
	}
	return dup
}
