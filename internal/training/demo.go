package training

import (
	"context"
	"fmt"
	"time"

	"github.com/five82/cohort/internal/docstore"
)

// Demo account ids written by Seed.
const (
	DemoAdminID   = "admin"
	DemoTraineeID = "t-ada"
)

// Seed writes a small cohort into docs: one admin, three trainees, modules,
// attendance, assessments, grades and an inbox. Existing documents with the
// same ids are overwritten.
func Seed(ctx context.Context, docs docstore.Documents, now time.Time) error {
	day := func(offset int) string { return now.AddDate(0, 0, offset).Format("2006-01-02") }
	at := func(offset time.Duration) time.Time { return now.Add(offset) }

	type doc struct {
		collection, id string
		fields         map[string]any
	}
	seed := []doc{
		{Users, DemoAdminID, map[string]any{"email": "admin@cohort.local", "name": "Admin", "role": "admin", "createdAt": at(-720 * time.Hour)}},
		{Users, DemoTraineeID, map[string]any{"email": "ada@cohort.local", "name": "Ada Lovelace", "role": "trainee", "createdAt": at(-480 * time.Hour)}},
		{Users, "t-grace", map[string]any{"email": "grace@cohort.local", "name": "Grace Hopper", "role": "trainee", "createdAt": at(-470 * time.Hour)}},
		{Users, "t-alan", map[string]any{"email": "alan@cohort.local", "name": "alan Turing", "role": "trainee", "createdAt": at(-460 * time.Hour)}},

		{Modules, "m-safety", map[string]any{"name": "Site Safety", "description": "PPE, hazards and reporting", "status": StatusCompleted, "created": at(-240 * time.Hour), "updated": at(-200 * time.Hour)}},
		{Modules, "m-rigging", map[string]any{"name": "Rigging Basics", "description": "Slings, hitches and load charts", "status": StatusInProgress, "created": at(-120 * time.Hour), "updated": at(-24 * time.Hour)}},
		{Modules, "m-electrical", map[string]any{"name": "Electrical Isolation", "description": "Lockout and tagout", "status": StatusInProgress, "created": at(-48 * time.Hour), "updated": at(-2 * time.Hour)}},

		{Attendances, "a-1", map[string]any{"traineeId": DemoTraineeID, "traineeName": "Ada Lovelace", "module": "Site Safety", "date": day(-3), "status": Present, "timestamp": at(-72 * time.Hour)}},
		{Attendances, "a-2", map[string]any{"traineeId": "t-grace", "traineeName": "Grace Hopper", "module": "Site Safety", "date": day(-3), "status": Late, "timestamp": at(-71 * time.Hour)}},
		{Attendances, "a-3", map[string]any{"traineeId": "t-alan", "traineeName": "alan Turing", "module": "Rigging Basics", "date": day(-1), "status": Absent, "timestamp": at(-23 * time.Hour)}},
		{Attendances, "a-4", map[string]any{"traineeId": DemoTraineeID, "traineeName": "Ada Lovelace", "module": "Rigging Basics", "date": day(-1), "status": Present, "timestamp": at(-22 * time.Hour)}},

		{Assessments, "as-1", map[string]any{"traineeId": DemoTraineeID, "module": "Site Safety", "title": "Safety quiz", "date": day(-5), "status": StatusCompleted, "created": at(-130 * time.Hour)}},
		{Assessments, "as-2", map[string]any{"traineeId": DemoTraineeID, "module": "Rigging Basics", "title": "Knots practical", "date": day(2), "status": "Scheduled", "created": at(-20 * time.Hour)}},

		{Grades, "g-1", map[string]any{"assessmentId": "as-1", "traineeId": DemoTraineeID, "score": 18, "maxScore": 20, "submittedAt": at(-100 * time.Hour)}},

		{Messages, "msg-1", map[string]any{"senderId": DemoAdminID, "senderName": "Admin", "recipientId": DemoTraineeID, "subject": "Welcome", "body": "Your first module starts Monday.", "date": at(-200 * time.Hour), "read": true}},
		{Messages, "msg-2", map[string]any{"senderId": DemoAdminID, "senderName": "Admin", "recipientId": DemoTraineeID, "subject": "Rigging practical", "body": "Bring gloves on Thursday.", "date": at(-3 * time.Hour), "read": false}},
		{Messages, "msg-3", map[string]any{"senderId": DemoTraineeID, "senderName": "Ada Lovelace", "recipientId": DemoAdminID, "subject": "Question", "body": "Is the quiz open book?", "date": at(-90 * time.Minute), "read": false}},
	}

	for _, d := range seed {
		if err := docs.Set(ctx, d.collection, d.id, d.fields); err != nil {
			return fmt.Errorf("seed %s/%s: %w", d.collection, d.id, err)
		}
	}
	return nil
}
