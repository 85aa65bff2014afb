package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/five82/cohort/internal/state"
	"github.com/five82/cohort/internal/training"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Verify that backoff never exceeds maxBackoff regardless of input
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

func TestCalculateBackoff_LongIntervalIsCeiling(t *testing.T) {
	base := time.Minute
	if got := calculateBackoff(3, base); got != base {
		t.Fatalf("calculateBackoff(3, %v) = %v, want %v", base, got, base)
	}
}

type fakeRoster struct {
	mu    sync.Mutex
	users []training.User
	err   error
	calls int
}

func (f *fakeRoster) Trainees(context.Context) ([]training.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.users, f.err
}

func (f *fakeRoster) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRefresh_RecordsFailuresAndRecovers(t *testing.T) {
	store := &state.Store{}
	src := &fakeRoster{err: errors.New("unavailable")}
	logger := log.New(io.Discard)

	refresh(context.Background(), store, src, logger)
	refresh(context.Background(), store, src, logger)
	snap := store.Snapshot()
	if snap.ConsecutiveFailures != 2 || snap.LastError == nil {
		t.Fatalf("failures = %d, err = %v; want 2 and an error", snap.ConsecutiveFailures, snap.LastError)
	}
	if !snap.IsOffline() {
		t.Fatal("two failed polls should read as offline")
	}

	src.err = nil
	src.users = []training.User{{ID: "t-1", Name: "Ada"}}
	refresh(context.Background(), store, src, logger)
	snap = store.Snapshot()
	if snap.ConsecutiveFailures != 0 || len(snap.Trainees) != 1 {
		t.Fatalf("after recovery failures = %d, trainees = %d", snap.ConsecutiveFailures, len(snap.Trainees))
	}
}

func TestRefresh_IgnoresCancelledContext(t *testing.T) {
	store := &state.Store{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	refresh(ctx, store, &fakeRoster{err: context.Canceled}, log.New(io.Discard))
	if got := store.Snapshot().ConsecutiveFailures; got != 0 {
		t.Fatalf("cancelled poll counted as failure: %d", got)
	}
}

func TestStartPoller_PollsUntilCancelled(t *testing.T) {
	store := &state.Store{}
	src := &fakeRoster{users: []training.User{{ID: "t-1"}, {ID: "t-2"}}}
	ctx, cancel := context.WithCancel(context.Background())

	StartPoller(ctx, store, src, 5*time.Millisecond, log.New(io.Discard))

	deadline := time.Now().Add(2 * time.Second)
	for src.callCount() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("poller made %d calls, want at least 3", src.callCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := len(store.Snapshot().Trainees); got != 2 {
		t.Fatalf("trainees = %d, want 2", got)
	}

	cancel()
	time.Sleep(20 * time.Millisecond)
	stopped := src.callCount()
	time.Sleep(30 * time.Millisecond)
	if src.callCount() != stopped {
		t.Fatal("poller kept running after cancel")
	}
}
