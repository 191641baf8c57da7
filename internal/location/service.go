package location

import (
	"context"
	"time"
)

// Observer receives every accepted fix. The proximity tracker and the
// geofence monitor both hang off this hook.
type Observer func(fix Fix)

type Service struct {
	store     *Store
	monitor   *Monitor
	observers []Observer
}

func NewService(store *Store, monitor *Monitor) *Service {
	return &Service{store: store, monitor: monitor}
}

func (s *Service) AddObserver(obs Observer) {
	s.observers = append(s.observers, obs)
}

// Ingest stores a device fix and fans it out to the region monitor and
// registered observers.
func (s *Service) Ingest(ctx context.Context, fix Fix) (Fix, error) {
	if fix.RecordedAt.IsZero() {
		fix.RecordedAt = time.Now()
	}
	if err := s.store.SetFix(ctx, fix); err != nil {
		return Fix{}, err
	}
	if s.monitor != nil {
		s.monitor.Observe(fix)
	}
	for _, obs := range s.observers {
		obs(fix)
	}
	return fix, nil
}

// CurrentFix returns the user's last known fix.
func (s *Service) CurrentFix(ctx context.Context, userID string) (Fix, error) {
	return s.store.LastFix(ctx, userID)
}
