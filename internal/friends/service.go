package friends

import (
	"context"
	"errors"
	"time"

	"github.com/geraldsadya/Circles-sub000/internal/db"
	"github.com/geraldsadya/Circles-sub000/internal/location"
)

type Service struct {
	db    db.Querier
	fixes *location.Store

	now func() time.Time
}

func NewService(querier db.Querier, fixes *location.Store) *Service {
	return &Service{db: querier, fixes: fixes, now: time.Now}
}

// AddFriend creates a mutual friendship. Adding twice is a no-op.
func (s *Service) AddFriend(ctx context.Context, userID, friendID string) error {
	if userID == friendID {
		return errors.New("cannot befriend yourself")
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO friendships (user_id, friend_id)
		VALUES ($1,$2), ($2,$1)
		ON CONFLICT DO NOTHING
	`, userID, friendID)
	return err
}

func (s *Service) RemoveFriend(ctx context.Context, userID, friendID string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM friendships
		WHERE (user_id=$1 AND friend_id=$2) OR (user_id=$2 AND friend_id=$1)
	`, userID, friendID)
	return err
}

func (s *Service) Friends(ctx context.Context, userID string) ([]Friendship, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, friend_id, created_at
		FROM friendships WHERE user_id=$1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []Friendship
	for rows.Next() {
		var f Friendship
		if err := rows.Scan(&f.UserID, &f.FriendID, &f.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, f)
	}
	return links, nil
}

// Snapshot returns the last known location of each friend that has reported
// a fix. Friends with no stored fix are omitted.
func (s *Service) Snapshot(ctx context.Context, userID string) (map[string]FriendLocation, error) {
	links, err := s.Friends(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	snapshot := map[string]FriendLocation{}
	for _, link := range links {
		fix, err := s.fixes.LastFix(ctx, link.FriendID)
		if errors.Is(err, location.ErrNoFix) {
			continue
		}
		if err != nil {
			return nil, err
		}
		snapshot[link.FriendID] = FriendLocation{
			FriendID:     link.FriendID,
			Lat:          fix.Lat,
			Lng:          fix.Lng,
			AccuracyM:    fix.AccuracyM,
			RecordedAt:   fix.RecordedAt,
			StalenessSec: now.Sub(fix.RecordedAt).Seconds(),
		}
	}
	return snapshot, nil
}
