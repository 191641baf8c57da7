package presence

import "time"

// Params are the promotion and eviction thresholds for candidate tracking.
type Params struct {
	ProximityRadiusM float64
	PromoteAfter     time.Duration
	StaleAfter       time.Duration
}

type Decision int

const (
	// DecisionKeep leaves the candidate (or its absence) unchanged.
	DecisionKeep Decision = iota
	// DecisionCreate starts tracking a new candidate.
	DecisionCreate
	// DecisionRefresh updates an existing candidate in place.
	DecisionRefresh
	// DecisionPromote converts the candidate into a hangout session.
	DecisionPromote
	// DecisionEvict discards the candidate without promotion.
	DecisionEvict
)

// Advance applies a single distance observation to an optional candidate
// snapshot and returns the next snapshot plus the decision. Pure function:
// all state changes flow through the returned value.
//
// Within the radius a candidate is created or refreshed, and promoted once
// sustained proximity reaches PromoteAfter. Outside the radius a candidate
// survives brief excursions and is evicted only after StaleAfter without a
// proximity observation.
func Advance(cand *Candidate, friendID string, distM float64, now time.Time, p Params) (Candidate, Decision) {
	if distM <= p.ProximityRadiusM {
		if cand == nil {
			return Candidate{
				FriendID:          friendID,
				StartTime:         now,
				LastProximityTime: now,
				MinObservedDistM:  distM,
			}, DecisionCreate
		}

		next := *cand
		next.LastProximityTime = now
		if distM < next.MinObservedDistM {
			next.MinObservedDistM = distM
		}
		if next.LastProximityTime.Sub(next.StartTime) >= p.PromoteAfter &&
			next.MinObservedDistM <= p.ProximityRadiusM {
			return next, DecisionPromote
		}
		return next, DecisionRefresh
	}

	if cand == nil {
		return Candidate{}, DecisionKeep
	}
	if now.Sub(cand.LastProximityTime) > p.StaleAfter {
		return *cand, DecisionEvict
	}
	return *cand, DecisionKeep
}
