package realtime

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/five82/cohort/internal/docstore"
)

const (
	// ThrottleThreshold consecutive errors within ThrottleWindow block new
	// subscriptions.
	ThrottleThreshold = 5
	ThrottleWindow    = 10 * time.Second

	// DecayInterval is both the tick period and the quiet window after which
	// the error count is forgiven.
	DecayInterval = 30 * time.Second

	ProbeInterval = 30 * time.Second
	SlowThreshold = 2 * time.Second
)

// Quality describes how usable the connection currently is.
type Quality string

const (
	QualityGood    Quality = "good"
	QualitySlow    Quality = "slow"
	QualityOffline Quality = "offline"
)

// ConnectionState is a point-in-time copy of the tracker's state.
type ConnectionState struct {
	Online            bool
	ConsecutiveErrors int
	LastErrorAt       time.Time
	Quality           Quality
	Latency           time.Duration
	Suspended         bool
}

// Offline reports whether live queries should be considered unavailable.
func (s ConnectionState) Offline() bool {
	return !s.Online || s.Quality == QualityOffline
}

// Tracker is the single source of truth for whether live queries should be
// attempted. Create one per process with NewTracker and share it.
type Tracker struct {
	network docstore.NetworkToggler
	prober  Prober
	clock   Clock
	logger  *log.Logger

	mu           sync.Mutex
	state        ConnectionState
	probeOffline bool
	resumeTimer  Timer
	observers    []func(ConnectionState)
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithProber enables the periodic latency probe.
func WithProber(p Prober) TrackerOption {
	return func(t *Tracker) { t.prober = p }
}

// WithClock overrides the tracker's clock.
func WithClock(c Clock) TrackerOption {
	return func(t *Tracker) { t.clock = c }
}

// WithLogger sets the tracker's logger.
func WithLogger(l *log.Logger) TrackerOption {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker creates an online tracker that toggles network on the backend.
func NewTracker(network docstore.NetworkToggler, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		network: network,
		clock:   SystemClock,
		state:   ConnectionState{Online: true, Quality: QualityGood},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.New(io.Discard)
	}
	return t
}

// State returns a copy of the current connection state.
func (t *Tracker) State() ConnectionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Online reports the online flag.
func (t *Tracker) Online() bool {
	return t.State().Online
}

// OnChange registers fn to receive every state change. fn runs outside the
// tracker lock and must not block.
func (t *Tracker) OnChange(fn func(ConnectionState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
}

// MarkOnline records that the network is reachable and re-enables the
// backend's network.
func (t *Tracker) MarkOnline(ctx context.Context) {
	t.mutate(func(s *ConnectionState) {
		s.Online = true
		s.Suspended = false
		if s.Quality == QualityOffline {
			s.Quality = QualityGood
		}
	})
	t.setNetwork(ctx, true)
}

// MarkOffline records that the network is unreachable and disables the
// backend's network so live queries pause instead of erroring. A manual
// offline cancels any pending suspension resume and probe recovery; only
// MarkOnline brings the tracker back.
func (t *Tracker) MarkOffline(ctx context.Context) {
	t.mu.Lock()
	t.probeOffline = false
	if t.resumeTimer != nil {
		t.resumeTimer.Stop()
		t.resumeTimer = nil
	}
	t.mu.Unlock()
	t.goOffline(ctx, func(s *ConnectionState) { s.Suspended = false })
}

func (t *Tracker) goOffline(ctx context.Context, also func(*ConnectionState)) {
	t.mutate(func(s *ConnectionState) {
		s.Online = false
		s.Quality = QualityOffline
		if also != nil {
			also(s)
		}
	})
	t.setNetwork(ctx, false)
}

// Suspend takes live updates offline and schedules MarkOnline after
// cooldown. A suspension already in progress keeps its original schedule.
func (t *Tracker) Suspend(cooldown time.Duration) {
	t.mu.Lock()
	if t.state.Suspended {
		t.mu.Unlock()
		return
	}
	t.state.Suspended = true
	var timer Timer
	timer = t.clock.AfterFunc(cooldown, func() {
		t.mu.Lock()
		pending := t.resumeTimer == timer
		if pending {
			t.resumeTimer = nil
		}
		t.mu.Unlock()
		if !pending {
			return
		}
		t.logger.Info("re-enabling network after cooldown", "cooldown", cooldown)
		t.MarkOnline(context.Background())
	})
	t.resumeTimer = timer
	t.mu.Unlock()

	t.logger.Warn("suspending live updates", "cooldown", cooldown)
	t.goOffline(context.Background(), nil)
}

// RecordError counts a listener error.
func (t *Tracker) RecordError() {
	now := t.clock.Now()
	t.mutate(func(s *ConnectionState) {
		s.ConsecutiveErrors++
		s.LastErrorAt = now
	})
}

// ResetErrors clears the error count after a successful update.
func (t *Tracker) ResetErrors() {
	t.mu.Lock()
	if t.state.ConsecutiveErrors == 0 {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	t.mutate(func(s *ConnectionState) { s.ConsecutiveErrors = 0 })
}

// ShouldThrottle reports an error storm: at least ThrottleThreshold
// consecutive errors, the latest within ThrottleWindow.
func (t *Tracker) ShouldThrottle() bool {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.ConsecutiveErrors >= ThrottleThreshold &&
		now.Sub(t.state.LastErrorAt) < ThrottleWindow
}

// Decay forgives the error count when no error occurred during the last
// DecayInterval. It reports whether the count was reset.
func (t *Tracker) Decay() bool {
	now := t.clock.Now()
	t.mu.Lock()
	stale := t.state.ConsecutiveErrors > 0 && now.Sub(t.state.LastErrorAt) >= DecayInterval
	t.mu.Unlock()
	if !stale {
		return false
	}
	t.mutate(func(s *ConnectionState) { s.ConsecutiveErrors = 0 })
	return true
}

// Probe measures latency once and updates quality. A failed probe takes the
// tracker offline; the next successful probe brings it back.
func (t *Tracker) Probe(ctx context.Context) {
	if t.prober == nil {
		return
	}
	latency, err := t.prober.Probe(ctx)
	if err != nil {
		t.logger.Debug("connection probe failed", "err", err)
		t.mu.Lock()
		wasOnline := t.state.Online
		if wasOnline {
			t.probeOffline = true
		}
		t.mu.Unlock()
		if wasOnline {
			t.goOffline(ctx, nil)
		}
		return
	}

	quality := QualityGood
	if latency > SlowThreshold {
		quality = QualitySlow
	}
	t.mu.Lock()
	recovered := t.probeOffline
	t.probeOffline = false
	t.mu.Unlock()

	t.mutate(func(s *ConnectionState) {
		s.Latency = latency
		if s.Online || recovered {
			s.Quality = quality
		}
	})
	if recovered {
		t.MarkOnline(ctx)
	}
}

// Run drives the decay tick and the latency probe until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	t.Probe(ctx)

	decay := time.NewTicker(DecayInterval)
	defer decay.Stop()
	probe := time.NewTicker(ProbeInterval)
	defer probe.Stop()

	for {
		select {
		case <-ctx.Done():
			t.mu.Lock()
			if t.resumeTimer != nil {
				t.resumeTimer.Stop()
			}
			t.mu.Unlock()
			return
		case <-decay.C:
			if t.Decay() {
				t.logger.Debug("listener error count decayed")
			}
		case <-probe.C:
			t.Probe(ctx)
		}
	}
}

func (t *Tracker) mutate(fn func(*ConnectionState)) {
	t.mu.Lock()
	fn(&t.state)
	snap := t.state
	observers := append([]func(ConnectionState){}, t.observers...)
	t.mu.Unlock()
	for _, obs := range observers {
		obs(snap)
	}
}

func (t *Tracker) setNetwork(ctx context.Context, enabled bool) {
	if t.network == nil {
		return
	}
	if err := t.network.SetNetworkEnabled(ctx, enabled); err != nil {
		t.logger.Debug("toggle backend network", "enabled", enabled, "err", err)
	}
}
