package geofence

import (
	"context"
	"testing"
	"time"

	"github.com/geraldsadya/Circles-sub000/internal/events"
	"github.com/geraldsadya/Circles-sub000/internal/location"
)

// drain runs queued commands synchronously, standing in for the Run loop.
func (m *TrackingManager) drain(ctx context.Context) {
	for {
		select {
		case cmd := <-m.commands:
			cmd(ctx)
		default:
			return
		}
	}
}

type settableFixes struct {
	fix location.Fix
	err error
}

func (s *settableFixes) CurrentFix(context.Context, string) (location.Fix, error) {
	return s.fix, s.err
}

func newTestTracking(fixes FixSource, gateway *fakeGateway, pub *fakePublisher) (*TrackingManager, *location.Monitor, *time.Time) {
	monitor := location.NewMonitor()
	tm := NewTrackingManager(monitor, fixes, nil, gateway, pub, nil, TrackingConfig{
		CheckInterval:      time.Minute,
		AccuracyThresholdM: 50,
	})
	clock := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return clock }
	return tm, monitor, &clock
}

func TestTrackingEnterDwellComplete(t *testing.T) {
	fixes := &settableFixes{fix: fixAtMeters(30, 10)}
	gateway := &fakeGateway{}
	pub := &fakePublisher{}
	tm, monitor, clock := newTestTracking(fixes, gateway, pub)
	ctx := context.Background()

	if err := tm.StartTracking(testChallenge, "user-1"); err != nil {
		t.Fatalf("start tracking: %v", err)
	}
	tm.drain(ctx)
	if !tm.Tracking(testChallenge.ID, "user-1") {
		t.Fatalf("expected region registered")
	}

	// Device reports a fix inside the fence: region-enter starts the attempt.
	monitor.Observe(fixAtMeters(30, 10))
	tm.drain(ctx)

	entry := tm.entries[trackKey(testChallenge.ID, "user-1")]
	if entry == nil || entry.attempt == nil || entry.attempt.State != StateTracking {
		t.Fatalf("expected tracking attempt after enter")
	}

	// Two scheduler passes cover the 20 minute dwell requirement.
	*clock = clock.Add(10 * time.Minute)
	tm.checkAll(ctx)
	if entry.attempt.AccumulatedDwellSec < 599 {
		t.Fatalf("expected accumulated dwell, got %v", entry.attempt.AccumulatedDwellSec)
	}

	*clock = clock.Add(11 * time.Minute)
	tm.checkAll(ctx)

	if len(pub.topics) != 1 || pub.topics[0] != events.TopicChallengeCompleted {
		t.Fatalf("expected challenge.completed, got %v", pub.topics)
	}
	if len(gateway.awards) != 1 || gateway.awards[0] != 50 {
		t.Fatalf("expected award, got %v", gateway.awards)
	}
	if tm.Tracking(testChallenge.ID, "user-1") {
		t.Fatalf("completion must unregister the region")
	}
	if len(tm.entries) != 0 {
		t.Fatalf("completion must remove the tracked entry")
	}
}

func TestTrackingExitFailsButRegionSurvives(t *testing.T) {
	fixes := &settableFixes{fix: fixAtMeters(30, 10)}
	gateway := &fakeGateway{}
	pub := &fakePublisher{}
	tm, monitor, clock := newTestTracking(fixes, gateway, pub)
	ctx := context.Background()

	if err := tm.StartTracking(testChallenge, "user-1"); err != nil {
		t.Fatalf("start tracking: %v", err)
	}
	tm.drain(ctx)
	monitor.Observe(fixAtMeters(30, 10))
	tm.drain(ctx)

	// User walks out before the minimum dwell.
	fixes.fix = fixAtMeters(200, 10)
	*clock = clock.Add(5 * time.Minute)
	tm.checkAll(ctx)

	entry := tm.entries[trackKey(testChallenge.ID, "user-1")]
	if entry == nil || entry.attempt == nil || entry.attempt.State != StateFailed {
		t.Fatalf("expected failed attempt")
	}
	if !tm.Tracking(testChallenge.ID, "user-1") {
		t.Fatalf("failure must keep the region registered for retries")
	}
	if len(pub.topics) != 0 || len(gateway.awards) != 0 {
		t.Fatalf("failure must not publish or award")
	}

	// Re-entry starts a brand-new attempt from pending.
	monitor.Observe(fixAtMeters(200, 10))
	fixes.fix = fixAtMeters(30, 10)
	monitor.Observe(fixAtMeters(30, 10))
	tm.drain(ctx)

	fresh := tm.entries[trackKey(testChallenge.ID, "user-1")]
	if fresh.attempt == nil || fresh.attempt.State != StateTracking {
		t.Fatalf("expected fresh attempt after re-entry")
	}
	if fresh.attempt.AccumulatedDwellSec != 0 {
		t.Fatalf("new attempt must not inherit dwell")
	}
}

func TestTrackingExitEventFailsImmediately(t *testing.T) {
	fixes := &settableFixes{fix: fixAtMeters(30, 10)}
	tm, monitor, _ := newTestTracking(fixes, &fakeGateway{}, &fakePublisher{})
	ctx := context.Background()

	if err := tm.StartTracking(testChallenge, "user-1"); err != nil {
		t.Fatalf("start tracking: %v", err)
	}
	tm.drain(ctx)
	monitor.Observe(fixAtMeters(30, 10))
	tm.drain(ctx)

	monitor.Observe(fixAtMeters(200, 10))
	tm.drain(ctx)

	entry := tm.entries[trackKey(testChallenge.ID, "user-1")]
	if entry.attempt == nil || entry.attempt.State != StateFailed {
		t.Fatalf("expected region-exit to fail the attempt")
	}
}

func TestStopTrackingIdempotent(t *testing.T) {
	fixes := &settableFixes{fix: fixAtMeters(30, 10)}
	tm, monitor, _ := newTestTracking(fixes, &fakeGateway{}, &fakePublisher{})
	ctx := context.Background()

	if err := tm.StartTracking(testChallenge, "user-1"); err != nil {
		t.Fatalf("start tracking: %v", err)
	}
	tm.drain(ctx)
	monitor.Observe(fixAtMeters(30, 10))
	tm.drain(ctx)

	tm.StopTracking(testChallenge.ID, "user-1")
	tm.drain(ctx)
	tm.StopTracking(testChallenge.ID, "user-1")
	tm.drain(ctx)

	if tm.Tracking(testChallenge.ID, "user-1") {
		t.Fatalf("expected region unregistered")
	}
	if len(tm.entries) != 0 {
		t.Fatalf("expected entry removed")
	}

	// Stopping a challenge that was never tracked is a no-op too.
	tm.StopTracking("ghost", "user-1")
	tm.drain(ctx)
}

func TestStartTrackingInvalidParams(t *testing.T) {
	tm, _, _ := newTestTracking(&settableFixes{}, &fakeGateway{}, &fakePublisher{})
	bad := testChallenge
	bad.MinDurationMin = 0
	if err := tm.StartTracking(bad, "user-1"); err == nil {
		t.Fatalf("expected validation error")
	}
}
