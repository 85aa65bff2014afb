package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_MarkOfflineAndOnlineToggleNetwork(t *testing.T) {
	backend := &fakeBackend{}
	tr := NewTracker(backend)
	ctx := context.Background()

	assert.True(t, tr.Online())
	tr.MarkOffline(ctx)
	st := tr.State()
	assert.False(t, st.Online)
	assert.Equal(t, QualityOffline, st.Quality)
	assert.True(t, st.Offline())

	tr.MarkOnline(ctx)
	st = tr.State()
	assert.True(t, st.Online)
	assert.Equal(t, QualityGood, st.Quality)
	assert.Equal(t, []bool{false, true}, backend.networkCalls())
}

func TestTracker_ThrottleWindow(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(nil, WithClock(clock))

	for i := 0; i < ThrottleThreshold-1; i++ {
		tr.RecordError()
	}
	assert.False(t, tr.ShouldThrottle())

	tr.RecordError()
	assert.True(t, tr.ShouldThrottle())

	clock.Advance(ThrottleWindow - time.Millisecond)
	assert.True(t, tr.ShouldThrottle())
	clock.Advance(time.Millisecond)
	assert.False(t, tr.ShouldThrottle())

	tr.ResetErrors()
	assert.Zero(t, tr.State().ConsecutiveErrors)
}

func TestTracker_Decay(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(nil, WithClock(clock))

	assert.False(t, tr.Decay(), "nothing to forgive")

	tr.RecordError()
	tr.RecordError()
	clock.Advance(DecayInterval - time.Second)
	assert.False(t, tr.Decay())
	assert.Equal(t, 2, tr.State().ConsecutiveErrors)

	clock.Advance(time.Second)
	assert.True(t, tr.Decay())
	assert.Zero(t, tr.State().ConsecutiveErrors)
}

func TestTracker_SuspendSchedulesSingleResume(t *testing.T) {
	clock := newFakeClock()
	backend := &fakeBackend{}
	tr := NewTracker(backend, WithClock(clock))

	tr.Suspend(4 * time.Second)
	tr.Suspend(4 * time.Second)
	st := tr.State()
	assert.True(t, st.Suspended)
	assert.False(t, st.Online)
	assert.Equal(t, 1, clock.pending())

	clock.Advance(4 * time.Second)
	st = tr.State()
	assert.False(t, st.Suspended)
	assert.True(t, st.Online)
	assert.Equal(t, []bool{false, true}, backend.networkCalls())
}

func TestTracker_ManualOfflineCancelsSuspensionResume(t *testing.T) {
	clock := newFakeClock()
	backend := &fakeBackend{}
	tr := NewTracker(backend, WithClock(clock))
	ctx := context.Background()

	tr.Suspend(4 * time.Second)
	require.Equal(t, 1, clock.pending())
	tr.MarkOffline(ctx)
	assert.Zero(t, clock.pending())
	assert.False(t, tr.State().Suspended)

	clock.Advance(time.Minute)
	assert.False(t, tr.Online(), "user offline survives the cooldown")
	assert.Equal(t, []bool{false, false}, backend.networkCalls())

	tr.MarkOnline(ctx)
	assert.True(t, tr.Online())

	// A fresh suspension still resumes on its own.
	tr.Suspend(4 * time.Second)
	clock.Advance(4 * time.Second)
	assert.True(t, tr.Online())
}

func TestTracker_ProbeQuality(t *testing.T) {
	var latency time.Duration
	var probeErr error
	prober := ProberFunc(func(context.Context) (time.Duration, error) { return latency, probeErr })
	backend := &fakeBackend{}
	tr := NewTracker(backend, WithProber(prober))
	ctx := context.Background()

	latency = 50 * time.Millisecond
	tr.Probe(ctx)
	assert.Equal(t, QualityGood, tr.State().Quality)
	assert.Equal(t, latency, tr.State().Latency)

	latency = 3 * time.Second
	tr.Probe(ctx)
	assert.Equal(t, QualitySlow, tr.State().Quality)
	assert.True(t, tr.Online())

	probeErr = errors.New("connection refused")
	tr.Probe(ctx)
	assert.Equal(t, QualityOffline, tr.State().Quality)
	assert.False(t, tr.Online())

	probeErr = nil
	latency = 10 * time.Millisecond
	tr.Probe(ctx)
	assert.True(t, tr.Online())
	assert.Equal(t, QualityGood, tr.State().Quality)
	assert.Equal(t, []bool{false, true}, backend.networkCalls())
}

func TestTracker_ProbeDoesNotOverrideManualOffline(t *testing.T) {
	prober := ProberFunc(func(context.Context) (time.Duration, error) { return time.Millisecond, nil })
	tr := NewTracker(nil, WithProber(prober))

	tr.MarkOffline(context.Background())
	tr.Probe(context.Background())
	assert.False(t, tr.Online())
}

func TestTracker_OnChange(t *testing.T) {
	tr := NewTracker(nil)
	var seen []ConnectionState
	tr.OnChange(func(s ConnectionState) { seen = append(seen, s) })

	tr.RecordError()
	tr.MarkOffline(context.Background())

	require.Len(t, seen, 2)
	assert.Equal(t, 1, seen[0].ConsecutiveErrors)
	assert.False(t, seen[1].Online)
}
