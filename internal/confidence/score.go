package confidence

// Weights for the verification confidence model. Dwell completeness
// dominates; positional accuracy and final containment refine it.
const (
	durationWeight    = 0.6
	accuracyWeight    = 0.3
	containmentWeight = 0.1
)

// Inputs describes one verification outcome to be scored.
type Inputs struct {
	AchievedDwellSec   float64
	RequiredDwellSec   float64
	FixAccuracyM       float64
	AccuracyThresholdM float64
	Contained          bool
}

// Score combines dwell fraction, fix accuracy and containment into a
// confidence value in [0,1]. Pure: identical inputs always yield identical
// output.
func Score(in Inputs) float64 {
	durationFactor := 0.0
	if in.RequiredDwellSec > 0 {
		durationFactor = in.AchievedDwellSec / in.RequiredDwellSec
		if durationFactor > 1 {
			durationFactor = 1
		}
	}

	accuracyFactor := 0.0
	if in.AccuracyThresholdM > 0 {
		accuracyFactor = 1 - in.FixAccuracyM/in.AccuracyThresholdM
		if accuracyFactor < 0 {
			accuracyFactor = 0
		}
	}

	containmentFactor := 0.0
	if in.Contained {
		containmentFactor = 1
	}

	score := durationWeight*durationFactor + accuracyWeight*accuracyFactor + containmentWeight*containmentFactor
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
