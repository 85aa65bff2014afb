package app

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/five82/cohort/internal/state"
	"github.com/five82/cohort/internal/training"
)

const (
	defaultPollInterval = 15 * time.Second
	maxBackoff          = 30 * time.Second
)

// rosterSource lists trainees. *training.Service satisfies it.
type rosterSource interface {
	Trainees(ctx context.Context) ([]training.User, error)
}

// StartPoller launches a background goroutine that reloads the trainee
// roster. After failures the wait doubles per consecutive failure, capped at
// maxBackoff. It returns immediately.
func StartPoller(ctx context.Context, store *state.Store, src rosterSource, interval time.Duration, logger *log.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		for {
			refresh(ctx, store, src, logger)

			wait := calculateBackoff(store.Snapshot().ConsecutiveFailures, interval)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

func refresh(ctx context.Context, store *state.Store, src rosterSource, logger *log.Logger) {
	users, err := src.Trainees(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		store.UpdateTrainees(nil, err)
		logger.Warn("roster poll failed", "err", err)
		return
	}
	store.UpdateTrainees(users, nil)
}

// calculateBackoff returns base when healthy and base doubled per failure
// otherwise, never above maxBackoff unless base itself is larger.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	ceiling := max(maxBackoff, base)
	d := base
	for i := 0; i < failures && d < ceiling; i++ {
		d *= 2
	}
	return min(d, ceiling)
}
