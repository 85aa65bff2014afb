package training

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/cohort/internal/docstore"
	"github.com/five82/cohort/internal/docstore/memstore"
	"github.com/five82/cohort/internal/realtime"
)

var refTime = time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...memstore.Option) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New(append([]memstore.Option{memstore.WithClock(func() time.Time { return refTime })}, opts...)...)
	tracker := realtime.NewTracker(store)
	reg := realtime.NewRegistry(store, tracker)
	svc := NewService(store, reg,
		WithRetryInterval(time.Millisecond),
		WithNow(func() time.Time { return refTime }),
	)
	t.Cleanup(svc.Close)
	return svc, store
}

func transient() error {
	return docstore.Errorf(docstore.CodeDeadlineExceeded, "deadline exceeded")
}

func invalidArgument(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, docstore.CodeInvalidArgument, docstore.CodeOf(err))
}

func TestCreateModule_SanitizesAndDefaultsStatus(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateModule(ctx, ModuleInput{Name: "  <b>Rigging</b> ", Description: "see javascript:alert(1)"})
	require.NoError(t, err)

	rec, err := store.Get(ctx, Modules, id)
	require.NoError(t, err)
	m := ModuleFrom(rec)
	assert.Equal(t, "bRigging/b", m.Name)
	assert.Equal(t, "see alert(1)", m.Description)
	assert.Equal(t, StatusInProgress, m.Status)
	assert.True(t, m.Created.Equal(refTime))
	assert.True(t, m.Updated.Equal(refTime))
}

func TestCreateModule_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateModule(ctx, ModuleInput{Name: " "})
	invalidArgument(t, err)
	assert.Contains(t, err.Error(), "name is required")

	_, err = svc.CreateModule(ctx, ModuleInput{Name: "X"})
	invalidArgument(t, err)
	assert.Contains(t, err.Error(), "at least 2")

	_, err = svc.CreateModule(ctx, ModuleInput{Name: "Safety", Status: "Paused"})
	invalidArgument(t, err)
	assert.Contains(t, err.Error(), `"Paused" is not a valid module status`)
}

func TestUpdateModule_BumpsUpdated(t *testing.T) {
	later := refTime.Add(time.Hour)
	now := refTime
	store := memstore.New(memstore.WithClock(func() time.Time { return now }))
	svc := NewService(store, realtime.NewRegistry(store, realtime.NewTracker(store)))
	ctx := context.Background()

	id, err := svc.CreateModule(ctx, ModuleInput{Name: "Safety"})
	require.NoError(t, err)
	now = later
	fields := map[string]any{"status": StatusCompleted}
	require.NoError(t, svc.UpdateModule(ctx, id, fields))
	assert.NotContains(t, fields, "updated", "caller map is not mutated")

	rec, err := store.Get(ctx, Modules, id)
	require.NoError(t, err)
	m := ModuleFrom(rec)
	assert.Equal(t, StatusCompleted, m.Status)
	assert.True(t, m.Updated.Equal(later))
	assert.True(t, m.Created.Equal(refTime))

	require.NoError(t, svc.DeleteModule(ctx, id))
	_, err = store.Get(ctx, Modules, id)
	assert.True(t, errors.Is(err, docstore.ErrNotFound))
}

func TestMarkAttendance(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.MarkAttendance(ctx, AttendanceInput{TraineeID: "t1", Module: "Safety", Date: "11/03/2024"})
	invalidArgument(t, err)
	assert.Contains(t, err.Error(), "date must be YYYY-MM-DD")

	_, err = svc.MarkAttendance(ctx, AttendanceInput{TraineeID: "t1", Module: "Safety", Date: "2024-03-11", Status: "Sick"})
	invalidArgument(t, err)

	id, err := svc.MarkAttendance(ctx, AttendanceInput{TraineeID: "t1", TraineeName: "Ada", Module: "Safety", Date: "2024-03-11"})
	require.NoError(t, err)
	rec, err := store.Get(ctx, Attendances, id)
	require.NoError(t, err)
	a := AttendanceFrom(rec)
	assert.Equal(t, Present, a.Status)
	assert.True(t, a.Timestamp.Equal(refTime))

	require.NoError(t, svc.UpdateAttendance(ctx, id, map[string]any{"status": Late}))
	rec, err = store.Get(ctx, Attendances, id)
	require.NoError(t, err)
	assert.Equal(t, Late, rec.String("status"))
}

func TestSubmitGrade_Validation(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitGrade(ctx, GradeInput{AssessmentID: "as", TraineeID: "t1", Score: 25, MaxScore: 20})
	invalidArgument(t, err)
	_, err = svc.SubmitGrade(ctx, GradeInput{AssessmentID: "as", TraineeID: "t1", Score: 5, MaxScore: 0})
	invalidArgument(t, err)

	id, err := svc.SubmitGrade(ctx, GradeInput{AssessmentID: "as", TraineeID: "t1", Score: 15, MaxScore: 20})
	require.NoError(t, err)
	rec, err := store.Get(ctx, Grades, id)
	require.NoError(t, err)
	g := GradeFrom(rec)
	require.NotNil(t, g.Score)
	assert.Equal(t, 15.0, *g.Score)
	assert.Equal(t, 20.0, g.MaxScore)
	assert.True(t, g.SubmittedAt.Equal(refTime))
}

func TestSendMessageAndMarkRead(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, MessageInput{RecipientID: "t1"})
	invalidArgument(t, err)
	assert.Contains(t, err.Error(), "subject or body is required")

	id, err := svc.SendMessage(ctx, MessageInput{SenderID: "admin", RecipientID: "t1", Body: "hello <there>"})
	require.NoError(t, err)
	rec, err := store.Get(ctx, Messages, id)
	require.NoError(t, err)
	m := MessageFrom(rec)
	assert.Equal(t, "hello there", m.Body)
	assert.False(t, m.Read)
	assert.True(t, m.Date.Equal(refTime))

	require.NoError(t, svc.MarkMessageRead(ctx, id))
	rec, err = store.Get(ctx, Messages, id)
	require.NoError(t, err)
	assert.True(t, rec.Bool("read"))
}

func TestTrainees_SortedCaseInsensitive(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, Seed(ctx, store, refTime))

	trainees, err := svc.Trainees(ctx)
	require.NoError(t, err)
	var names []string
	for _, u := range trainees {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"Ada Lovelace", "alan Turing", "Grace Hopper"}, names)
}

func TestEnsureUser_ExistingUser(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, Users, "u1", map[string]any{"name": "Ada", "role": "trainee"}))

	u, err := svc.EnsureUser(ctx, "u1", "ada@example.com", "boss@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "ada@example.com", u.Email, "email filled from the session")
	assert.Equal(t, RoleTrainee, u.Role)
}

func TestEnsureUser_CreatesAdminAndTrainee(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	admin, err := svc.EnsureUser(ctx, "u-admin", "Boss@Example.com", "boss@example.com")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, admin.Role)
	assert.Equal(t, "Admin", admin.Name)

	trainee, err := svc.EnsureUser(ctx, "u2", "grace@example.com", "boss@example.com")
	require.NoError(t, err)
	assert.Equal(t, RoleTrainee, trainee.Role)
	assert.Equal(t, "grace", trainee.Name)

	rec, err := store.Get(ctx, Users, "u2")
	require.NoError(t, err)
	stored := UserFrom(rec)
	assert.Equal(t, "grace@example.com", stored.Email)
	assert.True(t, stored.CreatedAt.Equal(refTime))
}

func TestEnsureUser_RetriesTransientFailures(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	store.FailNext("get", Users, transient())
	store.FailNext("get", Users, transient())
	store.FailNext("set", Users, transient())

	u, err := svc.EnsureUser(ctx, "u1", "ada@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Name)

	_, err = store.Get(ctx, Users, "u1")
	require.NoError(t, err)
}

func TestEnsureUser_ReenablesNetworkBeforeEachAttempt(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, store.SetNetworkEnabled(ctx, false))

	_, err := svc.EnsureUser(ctx, "u1", "ada@example.com", "")
	require.NoError(t, err)
	assert.True(t, store.NetworkEnabled())
}

func TestEnsureUser_GivesUpAfterThreeAttempts(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	for range userDocAttempts {
		store.FailNext("get", Users, transient())
	}

	_, err := svc.EnsureUser(ctx, "u1", "ada@example.com", "")
	require.Error(t, err)
	assert.Equal(t, docstore.CodeDeadlineExceeded, docstore.CodeOf(err))
}

func TestEnsureUser_PermanentErrorIsNotRetried(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	store.FailNext("get", Users, docstore.Errorf(docstore.CodePermissionDenied, "missing or insufficient permissions"))

	_, err := svc.EnsureUser(ctx, "u1", "ada@example.com", "")
	require.Error(t, err)
	assert.Equal(t, docstore.CodePermissionDenied, docstore.CodeOf(err))
}

func TestComputeAdminStats(t *testing.T) {
	modules := []Module{{Status: StatusInProgress}, {Status: StatusCompleted}, {Status: StatusInProgress}}
	attendance := []Attendance{{Status: Present}, {Status: Late}, {Status: Present}}

	stats := ComputeAdminStats(4, modules, attendance)
	assert.Equal(t, 4, stats.TotalTrainees)
	assert.Equal(t, 2, stats.ActiveModules)
	assert.Equal(t, 66.7, stats.AttendanceRate)

	assert.Zero(t, ComputeAdminStats(0, nil, nil).AttendanceRate)
}

func TestRecentActivity(t *testing.T) {
	modules := []Module{
		{Name: "Electrical", Created: refTime.Add(-time.Hour)},
		{Name: "Rigging", Created: refTime.Add(-3 * time.Hour)},
		{Name: "Safety", Created: refTime.Add(-time.Minute)},
	}
	attendance := []Attendance{{Module: "Rigging", Timestamp: refTime.Add(-2 * time.Hour)}, {Module: "x"}}

	got := RecentActivity(modules, attendance, refTime)
	require.Len(t, got, 3)
	assert.Equal(t, `New module "Electrical" created`, got[0].Message)
	assert.Equal(t, "Trainee marked attendance for Rigging", got[1].Message)
	assert.Equal(t, `New module "Rigging" created`, got[2].Message)

	got = RecentActivity([]Module{{Name: "Untimed"}}, nil, refTime)
	require.Len(t, got, 1)
	assert.True(t, got[0].Time.Equal(refTime))
}

func TestComputeProgressAndUpcoming(t *testing.T) {
	modules := []Module{
		{Name: "a", Status: StatusCompleted},
		{Name: "b", Status: StatusInProgress},
		{Name: "c", Status: StatusInProgress},
		{Name: "d", Status: StatusInProgress},
	}
	p := ComputeProgress(modules)
	assert.Equal(t, Progress{Overall: 25, CompletedModules: 1, TotalModules: 4}, p)
	assert.Zero(t, ComputeProgress(nil).Overall)

	upcoming := UpcomingSessions(modules)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "b", upcoming[0].Name)
	assert.Equal(t, "c", upcoming[1].Name)
}

func TestComputeAssessmentStats(t *testing.T) {
	score := func(v float64) *float64 { return &v }
	assessments := []Assessment{{Status: StatusCompleted}, {Status: "Scheduled"}, {Status: StatusCompleted}}
	grades := []Grade{
		{Score: score(18), MaxScore: 20},
		{Score: score(7), MaxScore: 10},
		{Score: nil, MaxScore: 10},
		{Score: score(5), MaxScore: 0},
	}

	stats := ComputeAssessmentStats(assessments, grades)
	assert.Equal(t, AssessmentStats{AverageScore: 80, Completed: 2, Total: 3, Pending: 1}, stats)
}

func TestDashboardStats(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, Seed(ctx, store, refTime))

	stats, err := svc.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalTrainees)
	assert.Equal(t, 2, stats.ActiveModules)
	assert.Equal(t, 50.0, stats.AttendanceRate)

	store.FailNext("query", Modules, transient())
	_, err = svc.DashboardStats(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dashboard stats")
}

func TestSubscribeMessages_DeliversInbox(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, Seed(ctx, store, refTime))

	got := make(chan []Message, 8)
	cancel := svc.SubscribeMessages(DemoTraineeID, 0, func(m []Message) { got <- m })
	defer cancel()

	first := receive(t, got)
	require.Len(t, first, 2)
	assert.Equal(t, "Rigging practical", first[0].Subject, "newest first")

	_, err := svc.SendMessage(ctx, MessageInput{SenderID: DemoAdminID, RecipientID: DemoTraineeID, Subject: "Reminder"})
	require.NoError(t, err)
	next := receive(t, got)
	require.Len(t, next, 3)
}

func TestSubscribeModules_ResubscribeReplaces(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, Seed(ctx, store, refTime))

	first := make(chan []Module, 8)
	second := make(chan []Module, 8)
	svc.SubscribeModules(0, func(m []Module) { first <- m })
	receive(t, first)
	svc.SubscribeModules(0, func(m []Module) { second <- m })
	modules := receive(t, second)
	require.Len(t, modules, 3)
	assert.Equal(t, "Electrical Isolation", modules[0].Name)

	assert.Equal(t, 1, store.Stats().Live)
}

func receive[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscription")
	}
	var zero T
	return zero
}
