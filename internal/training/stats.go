package training

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/cohort/internal/docstore"
)

// AdminStats summarizes the cohort for administrators.
type AdminStats struct {
	TotalTrainees  int
	ActiveModules  int
	AttendanceRate float64 // percent, one decimal
}

// Activity is one entry in the recent-activity feed.
type Activity struct {
	Kind    string
	Message string
	Time    time.Time
}

// Progress is a trainee's module completion.
type Progress struct {
	Overall          int // percent
	CompletedModules int
	TotalModules     int
}

// AssessmentStats summarizes a trainee's assessments and grades.
type AssessmentStats struct {
	AverageScore int // percent
	Completed    int
	Total        int
	Pending      int
}

// ComputeAdminStats derives dashboard counters. The attendance rate is the
// share of Present records, rounded to one decimal.
func ComputeAdminStats(trainees int, modules []Module, attendance []Attendance) AdminStats {
	stats := AdminStats{TotalTrainees: trainees}
	for _, m := range modules {
		if m.Status == StatusInProgress {
			stats.ActiveModules++
		}
	}
	if len(attendance) > 0 {
		present := 0
		for _, a := range attendance {
			if a.Status == Present {
				present++
			}
		}
		rate := float64(present) / float64(len(attendance)) * 100
		stats.AttendanceRate = math.Round(rate*10) / 10
	}
	return stats
}

// RecentActivity merges the two newest modules and the newest attendance
// record, newest first, keeping at most three. Entries without a timestamp
// are treated as happening now.
func RecentActivity(modules []Module, attendance []Attendance, now time.Time) []Activity {
	var out []Activity
	for _, m := range modules[:min(2, len(modules))] {
		out = append(out, Activity{
			Kind:    "module",
			Message: fmt.Sprintf("New module %q created", m.Name),
			Time:    orNow(m.Created, now),
		})
	}
	for _, a := range attendance[:min(1, len(attendance))] {
		name := a.TraineeName
		if name == "" {
			name = "Trainee"
		}
		out = append(out, Activity{
			Kind:    "attendance",
			Message: fmt.Sprintf("%s marked attendance for %s", name, a.Module),
			Time:    orNow(a.Timestamp, now),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}

// ComputeProgress reports completed modules as a rounded percentage.
func ComputeProgress(modules []Module) Progress {
	p := Progress{TotalModules: len(modules)}
	for _, m := range modules {
		if m.Status == StatusCompleted {
			p.CompletedModules++
		}
	}
	if p.TotalModules > 0 {
		p.Overall = int(math.Round(float64(p.CompletedModules) / float64(p.TotalModules) * 100))
	}
	return p
}

// UpcomingSessions returns up to two in-progress modules.
func UpcomingSessions(modules []Module) []Module {
	var out []Module
	for _, m := range modules {
		if m.Status != StatusInProgress {
			continue
		}
		out = append(out, m)
		if len(out) == 2 {
			break
		}
	}
	return out
}

// ComputeAssessmentStats averages graded scores as score/maxScore percent.
// Grades without a score or with a non-positive maximum are not averaged.
func ComputeAssessmentStats(assessments []Assessment, grades []Grade) AssessmentStats {
	stats := AssessmentStats{Total: len(assessments)}
	for _, a := range assessments {
		if a.Status == StatusCompleted {
			stats.Completed++
		}
	}
	stats.Pending = stats.Total - stats.Completed

	var sum float64
	var n int
	for _, g := range grades {
		if g.Score == nil || g.MaxScore <= 0 {
			continue
		}
		sum += *g.Score / g.MaxScore * 100
		n++
	}
	if n > 0 {
		stats.AverageScore = int(math.Round(sum / float64(n)))
	}
	return stats
}

// DashboardStats loads trainees, modules and attendance in parallel and
// derives the admin counters.
func (s *Service) DashboardStats(ctx context.Context) (AdminStats, error) {
	var (
		trainees   []User
		modules    []docstore.Record
		attendance []docstore.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		trainees, err = s.Trainees(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		modules, err = s.query(gctx, ModulesQuery(0))
		return err
	})
	g.Go(func() error {
		var err error
		attendance, err = s.query(gctx, AttendanceQuery(AttendanceFilter{}, 0))
		return err
	})
	if err := g.Wait(); err != nil {
		return AdminStats{}, fmt.Errorf("dashboard stats: %w", err)
	}
	return ComputeAdminStats(
		len(trainees),
		decodeAll(modules, ModuleFrom),
		decodeAll(attendance, AttendanceFrom),
	), nil
}

func (s *Service) query(ctx context.Context, q docstore.Query) ([]docstore.Record, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	return s.backend.RunQuery(ctx, q)
}

// AdminDashboard is everything the admin overview renders.
type AdminDashboard struct {
	Stats  AdminStats
	Recent []Activity
}

// BuildAdminDashboard derives the admin overview from live data.
func BuildAdminDashboard(trainees int, modules []Module, attendance []Attendance, now time.Time) AdminDashboard {
	return AdminDashboard{
		Stats:  ComputeAdminStats(trainees, modules, attendance),
		Recent: RecentActivity(modules, attendance, now),
	}
}

// TraineeDashboard is everything the trainee overview renders.
type TraineeDashboard struct {
	Progress    Progress
	Upcoming    []Module
	Assessments AssessmentStats
}

// BuildTraineeDashboard derives the trainee overview from live data.
func BuildTraineeDashboard(modules []Module, assessments []Assessment, grades []Grade) TraineeDashboard {
	return TraineeDashboard{
		Progress:    ComputeProgress(modules),
		Upcoming:    UpcomingSessions(modules),
		Assessments: ComputeAssessmentStats(assessments, grades),
	}
}
