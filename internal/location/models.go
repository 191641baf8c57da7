package location

import "time"

// Fix is a single positioning sample reported by a device.
type Fix struct {
	UserID     string    `json:"user_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	AccuracyM  float64   `json:"accuracy_m"`
	SpeedMps   float64   `json:"speed_mps"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Region is a monitored circular area for one user. Enter/exit callbacks
// fire on containment flips as new fixes arrive.
type Region struct {
	ID      string
	UserID  string
	Lat     float64
	Lng     float64
	RadiusM float64

	OnEnter func(regionID, userID string)
	OnExit  func(regionID, userID string)
}
