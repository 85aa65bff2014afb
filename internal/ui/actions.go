package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/cohort/internal/realtime"
	"github.com/five82/cohort/internal/training"
)

// Actions is the write side of the training service. *training.Service
// satisfies it.
type Actions interface {
	CreateModule(ctx context.Context, in training.ModuleInput) (string, error)
	UpdateModule(ctx context.Context, id string, fields map[string]any) error
	DeleteModule(ctx context.Context, id string) error
	UpdateAttendance(ctx context.Context, id string, fields map[string]any) error
	SendMessage(ctx context.Context, in training.MessageInput) (string, error)
	MarkMessageRead(ctx context.Context, id string) error
}

// Connection lets the user force the backend offline and back.
// *realtime.Tracker satisfies it.
type Connection interface {
	State() realtime.ConnectionState
	MarkOnline(ctx context.Context)
	MarkOffline(ctx context.Context)
}

const actionTimeout = 5 * time.Second

// actionResultMsg reports the outcome of a write issued from the UI.
type actionResultMsg struct {
	text string
	err  error
}

// runAction executes fn off the update loop and reports the result.
func runAction(ctx context.Context, done string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		actx, cancel := context.WithTimeout(ctx, actionTimeout)
		defer cancel()
		if err := fn(actx); err != nil {
			return actionResultMsg{text: done, err: err}
		}
		return actionResultMsg{text: done}
	}
}

func (m Model) toggleModuleStatus(mod training.Module) tea.Cmd {
	next := training.StatusCompleted
	if mod.Status == training.StatusCompleted {
		next = training.StatusInProgress
	}
	return runAction(m.ctx, fmt.Sprintf("%s marked %s", mod.Name, next), func(ctx context.Context) error {
		return m.actions.UpdateModule(ctx, mod.ID, map[string]any{"status": next})
	})
}

func (m Model) deleteModule(mod training.Module) tea.Cmd {
	return runAction(m.ctx, "deleted "+mod.Name, func(ctx context.Context) error {
		return m.actions.DeleteModule(ctx, mod.ID)
	})
}

// nextAttendanceStatus cycles Present, Late, Absent.
func nextAttendanceStatus(status string) string {
	switch status {
	case training.Present:
		return training.Late
	case training.Late:
		return training.Absent
	default:
		return training.Present
	}
}

func (m Model) cycleAttendance(rec training.Attendance) tea.Cmd {
	next := nextAttendanceStatus(rec.Status)
	return runAction(m.ctx, fmt.Sprintf("%s now %s", rec.TraineeName, next), func(ctx context.Context) error {
		return m.actions.UpdateAttendance(ctx, rec.ID, map[string]any{"status": next})
	})
}

func (m Model) markRead(msg training.Message) tea.Cmd {
	if msg.Read {
		return nil
	}
	return runAction(m.ctx, "marked read", func(ctx context.Context) error {
		return m.actions.MarkMessageRead(ctx, msg.ID)
	})
}

func (m Model) createModule(values map[string]string) tea.Cmd {
	in := training.ModuleInput{Name: values["name"], Description: values["description"]}
	return runAction(m.ctx, "created "+in.Name, func(ctx context.Context) error {
		_, err := m.actions.CreateModule(ctx, in)
		return err
	})
}

func (m Model) sendMessage(values map[string]string) tea.Cmd {
	in := training.MessageInput{
		SenderID:    m.snapshot.User.ID,
		SenderName:  m.snapshot.User.Name,
		RecipientID: values["to"],
		Subject:     values["subject"],
		Body:        values["body"],
	}
	return runAction(m.ctx, "message sent", func(ctx context.Context) error {
		_, err := m.actions.SendMessage(ctx, in)
		return err
	})
}

// toggleOffline flips the tracker between forced offline and online.
func (m Model) toggleOffline() tea.Cmd {
	conn := m.conn
	ctx := m.ctx
	return func() tea.Msg {
		if conn.State().Offline() {
			conn.MarkOnline(ctx)
			return actionResultMsg{text: "back online"}
		}
		conn.MarkOffline(ctx)
		return actionResultMsg{text: "working offline"}
	}
}
