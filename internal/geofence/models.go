package geofence

import "time"

// State of a verification attempt. Transitions are strictly monotonic:
// pending -> tracking -> completed or failed. Terminal states never change.
type State string

const (
	StatePending   State = "pending"
	StateTracking  State = "tracking"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Challenge is a location-bound commitment created by a user.
type Challenge struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	TargetLat      float64   `json:"target_lat"`
	TargetLng      float64   `json:"target_lng"`
	RadiusM        float64   `json:"radius_m"`
	MinDurationMin int       `json:"min_duration_min"`
	Points         int       `json:"points"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

func (c Challenge) Params() Params {
	return Params{
		TargetLat:      c.TargetLat,
		TargetLng:      c.TargetLng,
		RadiusM:        c.RadiusM,
		MinDurationMin: c.MinDurationMin,
		Label:          c.Name,
	}
}

// Verification is one dwell verification attempt. AccumulatedDwellSec only
// grows while State is tracking and freezes on a terminal transition.
type Verification struct {
	ID                  string    `json:"id"`
	ChallengeID         string    `json:"challenge_id"`
	UserID              string    `json:"user_id"`
	Params              Params    `json:"params"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time,omitempty"`
	AccumulatedDwellSec float64   `json:"accumulated_dwell_sec"`
	LastKnownDistM      float64   `json:"last_known_dist_m"`
	State               State     `json:"state"`
}

// Result is the outcome of a verification attempt. Never mutated after
// construction.
type Result struct {
	IsVerified       bool     `json:"is_verified"`
	ConfidenceScore  float64  `json:"confidence_score"`
	DwellMinutes     float64  `json:"dwell_minutes"`
	LastFixAccuracyM float64  `json:"last_fix_accuracy_m"`
	Notes            []string `json:"notes,omitempty"`
}
