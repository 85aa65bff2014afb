package training

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cenkalti/backoff/v5"

	"github.com/five82/cohort/internal/docstore"
)

// ModuleInput is the editable part of a module.
type ModuleInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=2000"`
	Status      string `json:"status" validate:"omitempty,module_status"`
}

// AttendanceInput records one trainee's attendance.
type AttendanceInput struct {
	TraineeID   string `json:"traineeId" validate:"required"`
	TraineeName string `json:"traineeName"`
	Module      string `json:"module" validate:"required"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Status      string `json:"status" validate:"omitempty,attendance_status"`
}

// AssessmentInput creates an assessment.
type AssessmentInput struct {
	TraineeID string `json:"traineeId" validate:"required"`
	Module    string `json:"module" validate:"required"`
	Title     string `json:"title" validate:"required,max=200"`
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Status    string `json:"status"`
}

// GradeInput submits a score.
type GradeInput struct {
	AssessmentID string  `json:"assessmentId" validate:"required"`
	TraineeID    string  `json:"traineeId" validate:"required"`
	Score        float64 `json:"score" validate:"gte=0,ltefield=MaxScore"`
	MaxScore     float64 `json:"maxScore" validate:"gt=0"`
}

// MessageInput sends a message.
type MessageInput struct {
	SenderID    string `json:"senderId"`
	SenderName  string `json:"senderName"`
	RecipientID string `json:"recipientId" validate:"required"`
	Subject     string `json:"subject" validate:"required_without=Body,max=200"`
	Body        string `json:"body" validate:"max=5000"`
}

// GetUser loads a user document. Missing users are docstore.ErrNotFound.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	rec, err := s.backend.Get(ctx, Users, id)
	if err != nil {
		return User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return UserFrom(rec), nil
}

// UpdateUser merges fields into a user document.
func (s *Service) UpdateUser(ctx context.Context, id string, fields map[string]any) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.backend.Update(ctx, Users, id, fields); err != nil {
		return fmt.Errorf("update user %s: %w", id, err)
	}
	return nil
}

// Trainees lists trainee users sorted by name.
func (s *Service) Trainees(ctx context.Context) ([]User, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	records, err := s.backend.RunQuery(ctx, TraineesQuery())
	if err != nil {
		return nil, fmt.Errorf("list trainees: %w", err)
	}
	users := decodeAll(records, UserFrom)
	sort.SliceStable(users, func(i, j int) bool {
		return strings.ToLower(users[i].Name) < strings.ToLower(users[j].Name)
	})
	return users, nil
}

// CreateModule adds a module stamped with server created/updated times.
func (s *Service) CreateModule(ctx context.Context, in ModuleInput) (string, error) {
	in.Name = SanitizeString(in.Name)
	in.Description = SanitizeString(in.Description)
	if err := checkInput(in); err != nil {
		return "", fmt.Errorf("create module: %w", err)
	}
	if in.Status == "" {
		in.Status = StatusInProgress
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	id, err := s.backend.Add(ctx, Modules, map[string]any{
		"name":        in.Name,
		"description": in.Description,
		"status":      in.Status,
		"created":     docstore.ServerTimestamp,
		"updated":     docstore.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("create module: %w", err)
	}
	return id, nil
}

// UpdateModule merges fields and bumps the updated time.
func (s *Service) UpdateModule(ctx context.Context, id string, fields map[string]any) error {
	merged := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged["updated"] = docstore.ServerTimestamp

	ctx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.backend.Update(ctx, Modules, id, merged); err != nil {
		return fmt.Errorf("update module %s: %w", id, err)
	}
	return nil
}

// DeleteModule removes a module.
func (s *Service) DeleteModule(ctx context.Context, id string) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.backend.Delete(ctx, Modules, id); err != nil {
		return fmt.Errorf("delete module %s: %w", id, err)
	}
	return nil
}

// MarkAttendance records attendance with a server timestamp.
func (s *Service) MarkAttendance(ctx context.Context, in AttendanceInput) (string, error) {
	if err := checkInput(in); err != nil {
		return "", fmt.Errorf("mark attendance: %w", err)
	}
	status := in.Status
	if status == "" {
		status = Present
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	id, err := s.backend.Add(ctx, Attendances, map[string]any{
		"traineeId":   in.TraineeID,
		"traineeName": SanitizeString(in.TraineeName),
		"module":      in.Module,
		"date":        in.Date,
		"status":      status,
		"timestamp":   docstore.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("mark attendance: %w", err)
	}
	return id, nil
}

// UpdateAttendance merges fields into an attendance record.
func (s *Service) UpdateAttendance(ctx context.Context, id string, fields map[string]any) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.backend.Update(ctx, Attendances, id, fields); err != nil {
		return fmt.Errorf("update attendance %s: %w", id, err)
	}
	return nil
}

// CreateAssessment adds an assessment.
func (s *Service) CreateAssessment(ctx context.Context, in AssessmentInput) (string, error) {
	in.Title = SanitizeString(in.Title)
	if err := checkInput(in); err != nil {
		return "", fmt.Errorf("create assessment: %w", err)
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	id, err := s.backend.Add(ctx, Assessments, map[string]any{
		"traineeId": in.TraineeID,
		"module":    in.Module,
		"title":     in.Title,
		"date":      in.Date,
		"status":    in.Status,
		"created":   docstore.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("create assessment: %w", err)
	}
	return id, nil
}

// SubmitGrade records a score with a server submission time.
func (s *Service) SubmitGrade(ctx context.Context, in GradeInput) (string, error) {
	if err := checkInput(in); err != nil {
		return "", fmt.Errorf("submit grade: %w", err)
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	id, err := s.backend.Add(ctx, Grades, map[string]any{
		"assessmentId": in.AssessmentID,
		"traineeId":    in.TraineeID,
		"score":        in.Score,
		"maxScore":     in.MaxScore,
		"submittedAt":  docstore.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("submit grade: %w", err)
	}
	return id, nil
}

// SendMessage delivers an unread message dated by the server.
func (s *Service) SendMessage(ctx context.Context, in MessageInput) (string, error) {
	in.Subject = SanitizeString(in.Subject)
	in.Body = SanitizeString(in.Body)
	if err := checkInput(in); err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	id, err := s.backend.Add(ctx, Messages, map[string]any{
		"senderId":    in.SenderID,
		"senderName":  SanitizeString(in.SenderName),
		"recipientId": in.RecipientID,
		"subject":     in.Subject,
		"body":        in.Body,
		"date":        docstore.ServerTimestamp,
		"read":        false,
	})
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return id, nil
}

// MarkMessageRead flags a message as read.
func (s *Service) MarkMessageRead(ctx context.Context, id string) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.backend.Update(ctx, Messages, id, map[string]any{"read": true}); err != nil {
		return fmt.Errorf("mark message %s read: %w", id, err)
	}
	return nil
}

// EnsureUser loads uid's user document, creating it when missing. The
// account named by adminEmail gets the admin role; everyone else is a
// trainee. Reads and writes are retried with exponential backoff, and the
// backend network is re-enabled before each attempt.
func (s *Service) EnsureUser(ctx context.Context, uid, email, adminEmail string) (User, error) {
	rec, err := retryUserDoc(ctx, s, "get", func(ctx context.Context) (docstore.Record, error) {
		return s.backend.Get(ctx, Users, uid)
	})
	if err == nil {
		u := UserFrom(rec)
		if u.Email == "" {
			u.Email = email
		}
		return u, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return User{}, fmt.Errorf("load user %s: %w", uid, err)
	}

	u := User{ID: uid, Email: email, Role: RoleTrainee, Name: nameFromEmail(email), CreatedAt: s.now()}
	if adminEmail != "" && strings.EqualFold(email, adminEmail) {
		u.Role = RoleAdmin
		u.Name = "Admin"
	}
	fields := map[string]any{
		"email":     u.Email,
		"role":      string(u.Role),
		"name":      u.Name,
		"createdAt": docstore.ServerTimestamp,
	}
	_, err = retryUserDoc(ctx, s, "set", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.backend.Set(ctx, Users, uid, fields)
	})
	if err != nil {
		return User{}, fmt.Errorf("create user %s: %w", uid, err)
	}
	s.logger.Info("created user document", "uid", uid, "role", u.Role)
	return u, nil
}

func retryUserDoc[T any](ctx context.Context, s *Service, op string, fn func(context.Context) (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retry
	policy.Multiplier = 2
	policy.RandomizationFactor = 0

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		if err := s.backend.SetNetworkEnabled(ctx, true); err != nil {
			s.logger.Debug("enable network before user doc", "err", err)
		}
		actx, cancel := s.bounded(ctx)
		defer cancel()
		v, err := fn(actx)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, docstore.ErrNotFound) || docstore.Classify(err) == docstore.Permanent {
			return v, backoff.Permanent(err)
		}
		s.logger.Warn("user document retry", "op", op, "attempt", attempt, "of", userDocAttempts, "err", err)
		return v, err
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(userDocAttempts))
}

func nameFromEmail(email string) string {
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		return local
	}
	return "User"
}
