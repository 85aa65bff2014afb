package training

import (
	"time"

	"github.com/spf13/cast"

	"github.com/five82/cohort/internal/docstore"
)

// Collection names.
const (
	Users       = "users"
	Modules     = "modules"
	Attendances = "attendance"
	Assessments = "assessments"
	Grades      = "grades"
	Messages    = "messages"
)

// Default query limits.
const (
	ModulesLimit     = 100
	AttendanceLimit  = 100
	AssessmentsLimit = 100
	GradesLimit      = 100
	MessagesLimit    = 50
	TraineesLimit    = 1000
)

// Role is a user's role.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTrainee Role = "trainee"
)

// Module statuses.
const (
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
)

// Attendance statuses.
const (
	Present = "Present"
	Absent  = "Absent"
	Late    = "Late"
)

type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
}

func UserFrom(r docstore.Record) User {
	created, _ := r.Time("createdAt")
	return User{
		ID:        r.ID,
		Email:     r.String("email"),
		Name:      r.String("name"),
		Role:      Role(r.String("role")),
		CreatedAt: created,
	}
}

type Module struct {
	ID          string
	Name        string
	Description string
	Status      string
	Created     time.Time
	Updated     time.Time
}

func ModuleFrom(r docstore.Record) Module {
	created, _ := r.Time("created")
	updated, _ := r.Time("updated")
	return Module{
		ID:          r.ID,
		Name:        r.String("name"),
		Description: r.String("description"),
		Status:      r.String("status"),
		Created:     created,
		Updated:     updated,
	}
}

type Attendance struct {
	ID          string
	TraineeID   string
	TraineeName string
	Module      string
	Date        string
	Status      string
	Timestamp   time.Time
}

func AttendanceFrom(r docstore.Record) Attendance {
	ts, _ := r.Time("timestamp")
	return Attendance{
		ID:          r.ID,
		TraineeID:   r.String("traineeId"),
		TraineeName: r.String("traineeName"),
		Module:      r.String("module"),
		Date:        r.String("date"),
		Status:      r.String("status"),
		Timestamp:   ts,
	}
}

type Assessment struct {
	ID        string
	TraineeID string
	Module    string
	Title     string
	Date      string
	Status    string
	Created   time.Time
}

func AssessmentFrom(r docstore.Record) Assessment {
	created, _ := r.Time("created")
	return Assessment{
		ID:        r.ID,
		TraineeID: r.String("traineeId"),
		Module:    r.String("module"),
		Title:     r.String("title"),
		Date:      r.String("date"),
		Status:    r.String("status"),
		Created:   created,
	}
}

// Grade is a submitted score. Score is nil until the assessment is graded.
type Grade struct {
	ID           string
	AssessmentID string
	TraineeID    string
	Score        *float64
	MaxScore     float64
	SubmittedAt  time.Time
}

func GradeFrom(r docstore.Record) Grade {
	g := Grade{
		ID:           r.ID,
		AssessmentID: r.String("assessmentId"),
		TraineeID:    r.String("traineeId"),
		MaxScore:     cast.ToFloat64(r.Fields["maxScore"]),
	}
	if score, ok := r.Float("score"); ok {
		g.Score = &score
	}
	g.SubmittedAt, _ = r.Time("submittedAt")
	return g
}

type Message struct {
	ID          string
	SenderID    string
	SenderName  string
	RecipientID string
	Subject     string
	Body        string
	Date        time.Time
	Read        bool
}

func MessageFrom(r docstore.Record) Message {
	date, _ := r.Time("date")
	return Message{
		ID:          r.ID,
		SenderID:    r.String("senderId"),
		SenderName:  r.String("senderName"),
		RecipientID: r.String("recipientId"),
		Subject:     r.String("subject"),
		Body:        r.String("body"),
		Date:        date,
		Read:        r.Bool("read"),
	}
}

func decodeAll[T any](records []docstore.Record, decode func(docstore.Record) T) []T {
	out := make([]T, len(records))
	for i, r := range records {
		out[i] = decode(r)
	}
	return out
}
