package presence

import "time"

// Candidate tracks one friend's sustained proximity before promotion.
// Snapshots are immutable; the tracker replaces them on every transition.
type Candidate struct {
	FriendID          string
	StartTime         time.Time
	LastProximityTime time.Time
	MinObservedDistM  float64
}

// Session is a promoted hangout between the user and one friend. Terminal
// fields are set exactly once; the row is immutable once IsActive is false.
type Session struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	FriendID        string    `json:"friend_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time,omitempty"`
	DurationMinutes float64   `json:"duration_minutes"`
	PointsAwarded   int       `json:"points_awarded"`
	IsActive        bool      `json:"is_active"`
}

func (s Session) ParticipantIDs() []string {
	return []string{s.UserID, s.FriendID}
}
