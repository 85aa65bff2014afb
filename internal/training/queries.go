package training

import "github.com/five82/cohort/internal/docstore"

// AttendanceFilter narrows attendance queries. Empty fields are ignored.
type AttendanceFilter struct {
	Date      string
	Module    string
	TraineeID string
}

// AssessmentFilter narrows assessment queries.
type AssessmentFilter struct {
	TraineeID string
	Module    string
}

// GradeFilter narrows grade queries.
type GradeFilter struct {
	AssessmentID string
	TraineeID    string
}

func orDefault(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}

// ModulesQuery lists modules newest first.
func ModulesQuery(limit int) docstore.Query {
	return docstore.Query{Collection: Modules}.
		OrderByDesc("created").
		WithLimit(orDefault(limit, ModulesLimit))
}

// AttendanceQuery lists attendance newest first by date.
func AttendanceQuery(f AttendanceFilter, limit int) docstore.Query {
	return docstore.Query{Collection: Attendances}.
		Where("date", f.Date).
		Where("module", f.Module).
		Where("traineeId", f.TraineeID).
		OrderByDesc("date").
		WithLimit(orDefault(limit, AttendanceLimit))
}

// AssessmentsQuery lists assessments newest first by date.
func AssessmentsQuery(f AssessmentFilter, limit int) docstore.Query {
	return docstore.Query{Collection: Assessments}.
		Where("traineeId", f.TraineeID).
		Where("module", f.Module).
		OrderByDesc("date").
		WithLimit(orDefault(limit, AssessmentsLimit))
}

// GradesQuery lists grades newest first by submission time.
func GradesQuery(f GradeFilter, limit int) docstore.Query {
	return docstore.Query{Collection: Grades}.
		Where("assessmentId", f.AssessmentID).
		Where("traineeId", f.TraineeID).
		OrderByDesc("submittedAt").
		WithLimit(orDefault(limit, GradesLimit))
}

// MessagesQuery lists a user's inbox newest first.
func MessagesQuery(userID string, limit int) docstore.Query {
	return docstore.Query{Collection: Messages}.
		Where("recipientId", userID).
		OrderByDesc("date").
		WithLimit(orDefault(limit, MessagesLimit))
}

// TraineesQuery lists trainee users. It carries no ordering so it never needs
// a composite index; callers sort by name.
func TraineesQuery() docstore.Query {
	return docstore.Query{Collection: Users}.
		Where("role", string(RoleTrainee)).
		WithLimit(TraineesLimit)
}
