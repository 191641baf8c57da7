package friends

import "time"

type Friendship struct {
	UserID    string    `json:"user_id"`
	FriendID  string    `json:"friend_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FriendLocation is one entry of the friend location feed: a friend's last
// known coordinate and how stale it is.
type FriendLocation struct {
	FriendID     string    `json:"friend_id"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	AccuracyM    float64   `json:"accuracy_m"`
	RecordedAt   time.Time `json:"recorded_at"`
	StalenessSec float64   `json:"staleness_sec"`
}
