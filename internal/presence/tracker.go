package presence

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"time"

	"github.com/geraldsadya/Circles-sub000/internal/friends"
	"github.com/geraldsadya/Circles-sub000/internal/location"
	"github.com/geraldsadya/Circles-sub000/internal/shared/geo"
)

// FixSource supplies the user's own most recent fix.
type FixSource interface {
	CurrentFix(ctx context.Context, userID string) (location.Fix, error)
}

// FeedSource supplies the last known location of each friend.
type FeedSource interface {
	Snapshot(ctx context.Context, userID string) (map[string]friends.FriendLocation, error)
}

// TrackerConfig tunes the detection loop.
type TrackerConfig struct {
	Params
	MaxFixAccuracyM float64
	TickInterval    time.Duration
}

type liveSession struct {
	session       Session
	lastProximity time.Time
}

// Tracker runs proximity detection for every reporting user. All candidate
// and session state is owned by the Run goroutine; fixes and commands are
// marshaled into it through channels, so no locks guard the maps.
type Tracker struct {
	cfg     TrackerConfig
	fixes   FixSource
	feed    FeedSource
	manager *Manager

	now func() time.Time

	users      map[string]time.Time
	candidates map[string]*Candidate
	active     map[string]*liveSession

	observations chan string
	commands     chan func(ctx context.Context)
}

func NewTracker(cfg TrackerConfig, fixes FixSource, feed FeedSource, manager *Manager) *Tracker {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 30 * time.Second
	}
	return &Tracker{
		cfg:          cfg,
		fixes:        fixes,
		feed:         feed,
		manager:      manager,
		now:          time.Now,
		users:        map[string]time.Time{},
		candidates:   map[string]*Candidate{},
		active:       map[string]*liveSession{},
		observations: make(chan string, 256),
		commands:     make(chan func(ctx context.Context), 16),
	}
}

// Observe enqueues a user for re-evaluation. Safe to call from any
// goroutine; drops the tick when the queue is full (the next sweep
// covers it).
func (t *Tracker) Observe(fix location.Fix) {
	select {
	case t.observations <- fix.UserID:
	default:
	}
}

// Run owns all tracker state until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case userID := <-t.observations:
			t.evaluate(ctx, userID)
		case <-ticker.C:
			t.sweep(ctx)
		case cmd := <-t.commands:
			cmd(ctx)
		}
	}
}

// EndSession terminates an active session by id, e.g. on app teardown or an
// explicit end request. Marshaled into the run loop to keep state confined.
func (t *Tracker) EndSession(ctx context.Context, sessionID string) (Session, error) {
	type reply struct {
		session Session
		err     error
	}
	done := make(chan reply, 1)

	cmd := func(cmdCtx context.Context) {
		session, err := t.endSession(cmdCtx, sessionID)
		done <- reply{session, err}
	}

	select {
	case t.commands <- cmd:
	case <-ctx.Done():
		return Session{}, ctx.Err()
	}

	select {
	case r := <-done:
		return r.session, r.err
	case <-ctx.Done():
		return Session{}, ctx.Err()
	}
}

func (t *Tracker) endSession(ctx context.Context, sessionID string) (Session, error) {
	for key, live := range t.active {
		if live.session.ID != sessionID {
			continue
		}
		session, err := t.manager.Terminate(ctx, live.session)
		if err != nil {
			return Session{}, err
		}
		delete(t.active, key)
		return session, nil
	}

	// Not held in memory (e.g. restarted service): terminate the stored row.
	session, err := t.manager.Session(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if !session.IsActive {
		return Session{}, errors.New("session already ended")
	}
	return t.manager.Terminate(ctx, session)
}

// sweep re-evaluates every reporting user and forgets users whose last
// observation fell outside the stale window, so the tick stays bounded by
// the actively reporting population.
func (t *Tracker) sweep(ctx context.Context) {
	now := t.now()
	for userID, last := range t.users {
		if t.cfg.StaleAfter > 0 && now.Sub(last) > t.cfg.StaleAfter {
			delete(t.users, userID)
			continue
		}
		t.evaluate(ctx, userID)
	}
}

// evaluate applies one detection tick for a user: every friend in the feed
// is scored independently, then candidates and sessions whose friend has
// dropped out of the feed are checked for staleness.
func (t *Tracker) evaluate(ctx context.Context, userID string) {
	now := t.now()

	fix, err := t.fixes.CurrentFix(ctx, userID)
	if err != nil {
		// Fail-safe: a missing fix skips the whole tick, no eviction either.
		log.Printf("presence tick skipped for %s: %v", userID, err)
		return
	}
	if t.cfg.MaxFixAccuracyM > 0 && fix.AccuracyM > t.cfg.MaxFixAccuracyM {
		log.Printf("presence tick skipped for %s: fix accuracy %.0fm too poor", userID, fix.AccuracyM)
		return
	}
	t.users[userID] = now

	snapshot, err := t.feed.Snapshot(ctx, userID)
	if err != nil {
		log.Printf("friend snapshot failed for %s: %v", userID, err)
		return
	}

	seen := map[string]bool{}
	for friendID, friendLoc := range snapshot {
		seen[friendID] = true
		dist := geo.DistanceM(fix.Lat, fix.Lng, friendLoc.Lat, friendLoc.Lng)
		if t.cfg.StaleAfter > 0 && friendLoc.StalenessSec > t.cfg.StaleAfter.Seconds() {
			// A fix this old proves nothing about presence; the friend is
			// treated as absent so candidates evict instead of promoting.
			dist = math.Inf(1)
		}
		t.apply(ctx, userID, friendID, dist, now)
	}

	prefix := userID + "|"
	for key, cand := range t.candidates {
		if strings.HasPrefix(key, prefix) && !seen[cand.FriendID] {
			t.apply(ctx, userID, cand.FriendID, math.Inf(1), now)
		}
	}
	for key, live := range t.active {
		if strings.HasPrefix(key, prefix) && !seen[live.session.FriendID] {
			t.apply(ctx, userID, live.session.FriendID, math.Inf(1), now)
		}
	}
}

func (t *Tracker) apply(ctx context.Context, userID, friendID string, distM float64, now time.Time) {
	key := pairKey(userID, friendID)

	if live, ok := t.active[key]; ok {
		if distM <= t.cfg.ProximityRadiusM {
			live.lastProximity = now
		} else if now.Sub(live.lastProximity) > t.cfg.StaleAfter {
			session, err := t.manager.Terminate(ctx, live.session)
			if err != nil {
				log.Printf("terminating session %s: %v", live.session.ID, err)
				return
			}
			log.Printf("hangout %s ended after %.1f min", session.ID, session.DurationMinutes)
			delete(t.active, key)
		}
		return
	}

	next, decision := Advance(t.candidates[key], friendID, distM, now, t.cfg.Params)
	switch decision {
	case DecisionCreate, DecisionRefresh:
		t.candidates[key] = &next
	case DecisionPromote:
		delete(t.candidates, key)
		session, err := t.manager.Promote(ctx, userID, next)
		if err != nil {
			log.Printf("promoting candidate %s/%s: %v", userID, friendID, err)
			return
		}
		t.active[key] = &liveSession{session: session, lastProximity: now}
	case DecisionEvict:
		delete(t.candidates, key)
	}
}

func pairKey(userID, friendID string) string {
	return userID + "|" + friendID
}
