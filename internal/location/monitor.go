package location

import (
	"sync"

	"github.com/geraldsadya/Circles-sub000/internal/shared/geo"
)

// Monitor tracks registered circular regions and fires enter/exit callbacks
// when a user's fixes cross a region boundary. Registration survives any
// number of enter/exit cycles; only Unregister removes a region.
type Monitor struct {
	mu      sync.RWMutex
	regions map[string]*Region
	inside  map[string]bool
}

func NewMonitor() *Monitor {
	return &Monitor{
		regions: map[string]*Region{},
		inside:  map[string]bool{},
	}
}

func (m *Monitor) Register(region Region) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := region
	m.regions[region.ID] = &r
	delete(m.inside, region.ID)
}

// Unregister is an idempotent no-op for unknown region ids.
func (m *Monitor) Unregister(regionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.regions, regionID)
	delete(m.inside, regionID)
}

func (m *Monitor) Registered(regionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.regions[regionID]
	return ok
}

// Observe evaluates a fix against every region registered for its user and
// fires callbacks for containment flips. Callbacks run outside the lock.
func (m *Monitor) Observe(fix Fix) {
	type event struct {
		fn       func(regionID, userID string)
		regionID string
		userID   string
	}
	var fired []event

	m.mu.Lock()
	for id, region := range m.regions {
		if region.UserID != fix.UserID {
			continue
		}
		contained := geo.DistanceM(fix.Lat, fix.Lng, region.Lat, region.Lng) <= region.RadiusM
		was := m.inside[id]
		if contained == was {
			continue
		}
		m.inside[id] = contained
		if contained && region.OnEnter != nil {
			fired = append(fired, event{region.OnEnter, id, fix.UserID})
		}
		if !contained && region.OnExit != nil {
			fired = append(fired, event{region.OnExit, id, fix.UserID})
		}
	}
	m.mu.Unlock()

	for _, ev := range fired {
		ev.fn(ev.regionID, ev.userID)
	}
}
