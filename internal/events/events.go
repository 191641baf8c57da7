package events

// Topics published by the presence and geofence engines. Fire-and-forget:
// publish failures are logged by adapters and never propagated into verdicts.
const (
	TopicHangoutStarted     = "hangout.started"
	TopicHangoutEnded       = "hangout.ended"
	TopicChallengeCompleted = "challenge.completed"
)

type HangoutStarted struct {
	SessionID      string   `json:"session_id"`
	ParticipantIDs []string `json:"participant_ids"`
}

type HangoutEnded struct {
	SessionID       string  `json:"session_id"`
	DurationMinutes float64 `json:"duration_minutes"`
	PointsAwarded   int     `json:"points_awarded"`
}

type ChallengeCompleted struct {
	ChallengeID string  `json:"challenge_id"`
	UserID      string  `json:"user_id"`
	Confidence  float64 `json:"confidence"`
}

// Publisher delivers domain events to subscribers outside this service.
type Publisher interface {
	Publish(topic string, key string, payload any)
}

// Noop drops every event. Used when no broker is configured and in tests.
type Noop struct{}

func (Noop) Publish(string, string, any) {}
