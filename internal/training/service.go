package training

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/five82/cohort/internal/docstore"
	"github.com/five82/cohort/internal/realtime"
)

const (
	defaultTimeout       = 3 * time.Second
	defaultRetryInterval = time.Second
	userDocAttempts      = 3
)

// Service is the training-management API used by the UI. Live views go
// through the realtime registry; one-shot calls hit the backend directly
// with a bounded timeout.
type Service struct {
	backend  docstore.Backend
	registry *realtime.Registry
	logger   *log.Logger
	timeout  time.Duration
	retry    time.Duration
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTimeout bounds every one-shot call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRetryInterval sets the first user-document retry delay; later delays
// double.
func WithRetryInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retry = d
		}
	}
}

// WithNow overrides the clock used for derived timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds a Service.
func NewService(backend docstore.Backend, registry *realtime.Registry, opts ...Option) *Service {
	s := &Service{
		backend:  backend,
		registry: registry,
		timeout:  defaultTimeout,
		retry:    defaultRetryInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	return s
}

func (s *Service) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func subscribe[T any](s *Service, q docstore.Query, decode func(docstore.Record) T, fn func([]T)) func() {
	return s.registry.Subscribe(q.Key(), q, func(records []docstore.Record) {
		fn(decodeAll(records, decode))
	})
}

// SubscribeModules streams modules newest first.
func (s *Service) SubscribeModules(limit int, fn func([]Module)) func() {
	return subscribe(s, ModulesQuery(limit), ModuleFrom, fn)
}

// SubscribeAttendance streams attendance records matching f.
func (s *Service) SubscribeAttendance(f AttendanceFilter, limit int, fn func([]Attendance)) func() {
	return subscribe(s, AttendanceQuery(f, limit), AttendanceFrom, fn)
}

// SubscribeAssessments streams assessments matching f.
func (s *Service) SubscribeAssessments(f AssessmentFilter, limit int, fn func([]Assessment)) func() {
	return subscribe(s, AssessmentsQuery(f, limit), AssessmentFrom, fn)
}

// SubscribeGrades streams grades matching f.
func (s *Service) SubscribeGrades(f GradeFilter, limit int, fn func([]Grade)) func() {
	return subscribe(s, GradesQuery(f, limit), GradeFrom, fn)
}

// SubscribeMessages streams userID's inbox.
func (s *Service) SubscribeMessages(userID string, limit int, fn func([]Message)) func() {
	return subscribe(s, MessagesQuery(userID, limit), MessageFrom, fn)
}

// Close releases every live subscription.
func (s *Service) Close() {
	s.registry.Close()
}
