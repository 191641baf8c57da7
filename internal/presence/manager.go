package presence

import (
	"context"
	"log"
	"time"

	"github.com/geraldsadya/Circles-sub000/internal/db"
	"github.com/geraldsadya/Circles-sub000/internal/events"
	"github.com/geraldsadya/Circles-sub000/internal/reward"
	"github.com/geraldsadya/Circles-sub000/internal/stream"

	"github.com/google/uuid"
)

const rewardReasonHangout = "hangout"

// ManagerConfig bounds the points a terminated hangout can award.
type ManagerConfig struct {
	PointsPerMinute    int
	DailyHangoutCapPts int
}

// Manager owns the hangout session lifecycle: promotion, termination with
// point computation, persistence, and event publication. Reward and event
// writes are fire-and-forget; a failed award never rolls a session back.
type Manager struct {
	db        db.Querier
	gateway   reward.Gateway
	publisher events.Publisher
	hub       *stream.Hub
	cfg       ManagerConfig

	now func() time.Time
}

func NewManager(querier db.Querier, gateway reward.Gateway, publisher events.Publisher, hub *stream.Hub, cfg ManagerConfig) *Manager {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Manager{
		db:        querier,
		gateway:   gateway,
		publisher: publisher,
		hub:       hub,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Promote converts a candidate into a live session. The session inherits the
// candidate's start time, so dwell accrued before promotion counts.
func (m *Manager) Promote(ctx context.Context, userID string, cand Candidate) (Session, error) {
	session := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		FriendID:  cand.FriendID,
		StartTime: cand.StartTime,
		IsActive:  true,
	}

	_, err := m.db.Exec(ctx, `
		INSERT INTO hangout_sessions (id, user_id, friend_id, started_at, is_active)
		VALUES ($1,$2,$3,$4,true)
	`, session.ID, session.UserID, session.FriendID, session.StartTime)
	if err != nil {
		return Session{}, err
	}

	m.publisher.Publish(events.TopicHangoutStarted, session.ID, events.HangoutStarted{
		SessionID:      session.ID,
		ParticipantIDs: session.ParticipantIDs(),
	})
	m.notify(session, "hangout.started")
	return session, nil
}

// Terminate closes a session: end time, duration and points are computed
// exactly once. Points are clamped against the daily cap locally even though
// the gateway enforces it too.
func (m *Manager) Terminate(ctx context.Context, session Session) (Session, error) {
	if !session.IsActive {
		return session, nil
	}

	session.EndTime = m.now()
	session.IsActive = false
	session.DurationMinutes = session.EndTime.Sub(session.StartTime).Minutes()
	if session.DurationMinutes < 0 {
		session.DurationMinutes = 0
	}
	session.PointsAwarded = m.clampPoints(ctx, session)

	_, err := m.db.Exec(ctx, `
		UPDATE hangout_sessions
		SET ended_at=$2, duration_minutes=$3, points_awarded=$4, is_active=false
		WHERE id=$1 AND is_active
	`, session.ID, session.EndTime, session.DurationMinutes, session.PointsAwarded)
	if err != nil {
		return Session{}, err
	}

	if m.gateway != nil {
		if err := m.gateway.Award(ctx, session.UserID, session.ID, session.PointsAwarded, rewardReasonHangout, map[string]string{
			"friend_id": session.FriendID,
		}); err != nil {
			log.Printf("hangout award failed for session %s: %v", session.ID, err)
		}
	}

	m.publisher.Publish(events.TopicHangoutEnded, session.ID, events.HangoutEnded{
		SessionID:       session.ID,
		DurationMinutes: session.DurationMinutes,
		PointsAwarded:   session.PointsAwarded,
	})
	m.notify(session, "hangout.ended")
	return session, nil
}

func (m *Manager) clampPoints(ctx context.Context, session Session) int {
	points := int(session.DurationMinutes) * m.cfg.PointsPerMinute
	if points <= 0 {
		return 0
	}

	remaining := m.cfg.DailyHangoutCapPts
	if m.gateway != nil {
		awarded, err := m.gateway.AwardedToday(ctx, session.UserID, rewardReasonHangout)
		if err != nil {
			log.Printf("daily award lookup failed for %s: %v", session.UserID, err)
		} else {
			remaining = m.cfg.DailyHangoutCapPts - awarded
		}
	}
	if remaining < 0 {
		remaining = 0
	}
	if points > remaining {
		points = remaining
	}
	return points
}

func (m *Manager) notify(session Session, kind string) {
	if m.hub == nil {
		return
	}
	for _, participant := range session.ParticipantIDs() {
		m.hub.BroadcastJSON(participant, map[string]any{
			"type":    kind,
			"session": session,
		})
	}
}

func (m *Manager) Sessions(ctx context.Context, userID string) ([]Session, error) {
	rows, err := m.db.Query(ctx, `
		SELECT id, user_id, friend_id, started_at, COALESCE(ended_at, 'epoch'::timestamptz),
		       COALESCE(duration_minutes, 0), COALESCE(points_awarded, 0), is_active
		FROM hangout_sessions
		WHERE user_id=$1 OR friend_id=$1
		ORDER BY started_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.FriendID, &s.StartTime, &s.EndTime, &s.DurationMinutes, &s.PointsAwarded, &s.IsActive); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func (m *Manager) Session(ctx context.Context, id string) (Session, error) {
	row := m.db.QueryRow(ctx, `
		SELECT id, user_id, friend_id, started_at, COALESCE(ended_at, 'epoch'::timestamptz),
		       COALESCE(duration_minutes, 0), COALESCE(points_awarded, 0), is_active
		FROM hangout_sessions WHERE id=$1
	`, id)
	var s Session
	if err := row.Scan(&s.ID, &s.UserID, &s.FriendID, &s.StartTime, &s.EndTime, &s.DurationMinutes, &s.PointsAwarded, &s.IsActive); err != nil {
		return Session{}, err
	}
	return s, nil
}
