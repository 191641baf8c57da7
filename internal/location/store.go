package location

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const fixTTL = 6 * time.Hour

var ErrNoFix = errors.New("no location fix available")

// Store keeps each user's last known fix in redis.
type Store struct {
	redis *redis.Client
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) SetFix(ctx context.Context, fix Fix) error {
	if s.redis == nil {
		return errors.New("redis not configured")
	}
	payload, err := json.Marshal(fix)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, fixKey(fix.UserID), payload, fixTTL).Err()
}

// LastFix returns the user's most recent fix, or ErrNoFix when none is known.
func (s *Store) LastFix(ctx context.Context, userID string) (Fix, error) {
	if s.redis == nil {
		return Fix{}, ErrNoFix
	}
	payload, err := s.redis.Get(ctx, fixKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Fix{}, ErrNoFix
	}
	if err != nil {
		return Fix{}, err
	}
	var fix Fix
	if err := json.Unmarshal(payload, &fix); err != nil {
		return Fix{}, err
	}
	return fix, nil
}

func fixKey(userID string) string {
	return "location:" + userID + ":last"
}
