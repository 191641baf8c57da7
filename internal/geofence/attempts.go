package geofence

import (
	"context"

	"github.com/geraldsadya/Circles-sub000/internal/db"
)

// AttemptStore persists verification attempts. State rows follow the
// in-memory machine: inserted when tracking starts, updated once on the
// terminal transition.
type AttemptStore struct {
	db db.Querier
}

func NewAttemptStore(querier db.Querier) *AttemptStore {
	return &AttemptStore{db: querier}
}

func (s *AttemptStore) Insert(ctx context.Context, v Verification) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO dwell_verifications
			(id, challenge_id, user_id, target, radius_m, min_duration_min, label, started_at, state)
		VALUES ($1,$2,$3, ST_SetSRID(ST_MakePoint($4,$5), 4326)::geography, $6,$7,$8,$9,$10)
	`, v.ID, v.ChallengeID, v.UserID, v.Params.TargetLng, v.Params.TargetLat,
		v.Params.RadiusM, v.Params.MinDurationMin, v.Params.Label, v.StartTime, string(v.State))
	return err
}

func (s *AttemptStore) Finish(ctx context.Context, v Verification) error {
	_, err := s.db.Exec(ctx, `
		UPDATE dwell_verifications
		SET ended_at=$2, accumulated_dwell_sec=$3, last_known_dist_m=$4, state=$5
		WHERE id=$1 AND state='tracking'
	`, v.ID, v.EndTime, v.AccumulatedDwellSec, v.LastKnownDistM, string(v.State))
	return err
}

func (s *AttemptStore) ListByChallenge(ctx context.Context, challengeID, userID string) ([]Verification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, challenge_id, user_id, ST_Y(target::geometry), ST_X(target::geometry),
		       radius_m, min_duration_min, label, started_at,
		       COALESCE(ended_at, 'epoch'::timestamptz),
		       COALESCE(accumulated_dwell_sec, 0), COALESCE(last_known_dist_m, 0), state
		FROM dwell_verifications
		WHERE challenge_id=$1 AND user_id=$2
		ORDER BY started_at DESC
	`, challengeID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []Verification
	for rows.Next() {
		var v Verification
		var state string
		if err := rows.Scan(&v.ID, &v.ChallengeID, &v.UserID, &v.Params.TargetLat, &v.Params.TargetLng,
			&v.Params.RadiusM, &v.Params.MinDurationMin, &v.Params.Label, &v.StartTime,
			&v.EndTime, &v.AccumulatedDwellSec, &v.LastKnownDistM, &state); err != nil {
			return nil, err
		}
		v.State = State(state)
		attempts = append(attempts, v)
	}
	return attempts, nil
}
