package geofence

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/geraldsadya/Circles-sub000/internal/events"
	"github.com/geraldsadya/Circles-sub000/internal/location"
	"github.com/geraldsadya/Circles-sub000/internal/reward"
	"github.com/geraldsadya/Circles-sub000/internal/shared/geo"
	"github.com/geraldsadya/Circles-sub000/internal/stream"

	"github.com/google/uuid"
)

type TrackingConfig struct {
	CheckInterval      time.Duration
	AccuracyThresholdM float64
	DailyCapPts        int
}

// tracked is one challenge being watched for a user. The attempt pointer is
// nil until a region-enter fires; after a failed attempt it stays terminal
// until the next enter starts a fresh one.
type tracked struct {
	challenge Challenge
	userID    string
	attempt   *Verification
	lastCheck time.Time
	lastAcc   float64
}

// TrackingManager runs the event-driven verification path: region entry
// starts an attempt, one central scheduler re-checks every active attempt
// each period. All state is owned by the Run goroutine; region callbacks and
// API calls are marshaled in through the command channel.
type TrackingManager struct {
	monitor   *location.Monitor
	fixes     FixSource
	attempts  *AttemptStore
	gateway   reward.Gateway
	publisher events.Publisher
	hub       *stream.Hub
	cfg       TrackingConfig

	now func() time.Time

	entries  map[string]*tracked
	commands chan func(ctx context.Context)
}

func NewTrackingManager(monitor *location.Monitor, fixes FixSource, attempts *AttemptStore, gateway reward.Gateway, publisher events.Publisher, hub *stream.Hub, cfg TrackingConfig) *TrackingManager {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 60 * time.Second
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &TrackingManager{
		monitor:   monitor,
		fixes:     fixes,
		attempts:  attempts,
		gateway:   gateway,
		publisher: publisher,
		hub:       hub,
		cfg:       cfg,
		now:       time.Now,
		entries:   map[string]*tracked{},
		commands:  make(chan func(ctx context.Context), 64),
	}
}

// Run owns all tracking state until ctx is cancelled.
func (m *TrackingManager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-m.commands:
			cmd(ctx)
		case <-ticker.C:
			m.checkAll(ctx)
		}
	}
}

func (m *TrackingManager) enqueue(cmd func(ctx context.Context)) {
	select {
	case m.commands <- cmd:
	default:
		log.Printf("geofence command queue full, dropping command")
	}
}

// StartTracking registers region monitoring for a challenge. The attempt
// stays pending until the user enters the region.
func (m *TrackingManager) StartTracking(challenge Challenge, userID string) error {
	if errs := challenge.Params().Validate(); len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	key := trackKey(challenge.ID, userID)
	m.enqueue(func(context.Context) {
		if _, exists := m.entries[key]; exists {
			return
		}
		m.entries[key] = &tracked{challenge: challenge, userID: userID}
		m.monitor.Register(location.Region{
			ID:      key,
			UserID:  userID,
			Lat:     challenge.TargetLat,
			Lng:     challenge.TargetLng,
			RadiusM: challenge.RadiusM,
			OnEnter: func(regionID, _ string) {
				m.enqueue(func(cmdCtx context.Context) { m.onEnter(cmdCtx, regionID) })
			},
			OnExit: func(regionID, _ string) {
				m.enqueue(func(cmdCtx context.Context) { m.onExit(cmdCtx, regionID) })
			},
		})
	})
	return nil
}

// StopTracking cancels monitoring for a challenge. Idempotent at any state:
// unknown challenges and double stops are no-ops.
func (m *TrackingManager) StopTracking(challengeID, userID string) {
	key := trackKey(challengeID, userID)
	m.enqueue(func(cmdCtx context.Context) {
		entry, ok := m.entries[key]
		if !ok {
			return
		}
		m.monitor.Unregister(key)
		if entry.attempt != nil && entry.attempt.State == StateTracking {
			m.fail(cmdCtx, entry, entry.attempt.LastKnownDistM)
		}
		delete(m.entries, key)
	})
}

func (m *TrackingManager) onEnter(ctx context.Context, key string) {
	entry, ok := m.entries[key]
	if !ok {
		return
	}
	if entry.attempt != nil && entry.attempt.State == StateTracking {
		return
	}

	now := m.now()
	attempt := &Verification{
		ID:          uuid.NewString(),
		ChallengeID: entry.challenge.ID,
		UserID:      entry.userID,
		Params:      entry.challenge.Params(),
		StartTime:   now,
		State:       StateTracking,
	}
	if m.attempts != nil {
		if err := m.attempts.Insert(ctx, *attempt); err != nil {
			log.Printf("storing verification %s: %v", attempt.ID, err)
		}
	}
	entry.attempt = attempt
	entry.lastCheck = now
}

func (m *TrackingManager) onExit(ctx context.Context, key string) {
	entry, ok := m.entries[key]
	if !ok || entry.attempt == nil || entry.attempt.State != StateTracking {
		return
	}
	if entry.attempt.AccumulatedDwellSec >= entry.challenge.Params().requiredDwellSec() {
		// Completion raced the exit; the periodic check settles it.
		return
	}
	m.fail(ctx, entry, entry.challenge.RadiusM+1)
}

// checkAll is the central scheduler pass: every active attempt re-reads the
// current fix and advances its dwell clock.
func (m *TrackingManager) checkAll(ctx context.Context) {
	for _, entry := range m.entries {
		if entry.attempt == nil || entry.attempt.State != StateTracking {
			continue
		}
		m.check(ctx, entry)
	}
}

func (m *TrackingManager) check(ctx context.Context, entry *tracked) {
	now := m.now()
	fix, err := m.fixes.CurrentFix(ctx, entry.userID)
	if err != nil {
		// Transient gap: no dwell accrues, no failure.
		entry.lastCheck = now
		return
	}
	entry.lastAcc = fix.AccuracyM

	params := entry.challenge.Params()
	dist := geo.DistanceM(fix.Lat, fix.Lng, params.TargetLat, params.TargetLng)
	entry.attempt.LastKnownDistM = dist

	if dist > params.RadiusM {
		m.fail(ctx, entry, dist)
		return
	}

	entry.attempt.AccumulatedDwellSec += now.Sub(entry.lastCheck).Seconds()
	entry.lastCheck = now

	if entry.attempt.AccumulatedDwellSec >= params.requiredDwellSec() {
		m.complete(ctx, entry, dist)
	}
}

// fail ends the current attempt but keeps the region registered: a future
// re-entry starts a brand-new attempt from pending.
func (m *TrackingManager) fail(ctx context.Context, entry *tracked, dist float64) {
	attempt := entry.attempt
	attempt.State = StateFailed
	attempt.EndTime = m.now()
	attempt.LastKnownDistM = dist
	if m.attempts != nil {
		if err := m.attempts.Finish(ctx, *attempt); err != nil {
			log.Printf("storing verification %s: %v", attempt.ID, err)
		}
	}
	if m.hub != nil {
		m.hub.BroadcastJSON(entry.userID, map[string]any{
			"type":         "challenge.failed",
			"challenge_id": entry.challenge.ID,
		})
	}
}

func (m *TrackingManager) complete(ctx context.Context, entry *tracked, dist float64) {
	attempt := entry.attempt
	attempt.State = StateCompleted
	attempt.EndTime = m.now()
	attempt.LastKnownDistM = dist
	if m.attempts != nil {
		if err := m.attempts.Finish(ctx, *attempt); err != nil {
			log.Printf("storing verification %s: %v", attempt.ID, err)
		}
	}

	score := scoreAttempt(*attempt, entry.lastAcc, m.cfg.AccuracyThresholdM, true)

	points := clampAward(ctx, m.gateway, entry.userID, entry.challenge.Points, m.cfg.DailyCapPts)
	if m.gateway != nil {
		if err := m.gateway.Award(ctx, entry.userID, entry.challenge.ID, points, rewardReasonChallenge, map[string]string{
			"challenge_id": entry.challenge.ID,
		}); err != nil {
			log.Printf("challenge award failed for %s: %v", entry.challenge.ID, err)
		}
	}

	m.publisher.Publish(events.TopicChallengeCompleted, entry.challenge.ID, events.ChallengeCompleted{
		ChallengeID: entry.challenge.ID,
		UserID:      entry.userID,
		Confidence:  score,
	})
	if m.hub != nil {
		m.hub.BroadcastJSON(entry.userID, map[string]any{
			"type":         "challenge.completed",
			"challenge_id": entry.challenge.ID,
			"confidence":   score,
		})
	}

	m.monitor.Unregister(trackKey(entry.challenge.ID, entry.userID))
	delete(m.entries, trackKey(entry.challenge.ID, entry.userID))
}

func (m *TrackingManager) Tracking(challengeID, userID string) bool {
	return m.monitor.Registered(trackKey(challengeID, userID))
}

func trackKey(challengeID, userID string) string {
	return challengeID + "|" + userID
}
