package confidence

import (
	"math"
	"testing"
)

func TestScoreFullDwellGoodAccuracy(t *testing.T) {
	// 20 min dwell of 20 required, 10m accuracy against a 50m threshold,
	// still contained: 0.6*1.0 + 0.3*0.8 + 0.1*1.0 = 0.94
	score := Score(Inputs{
		AchievedDwellSec:   20 * 60,
		RequiredDwellSec:   20 * 60,
		FixAccuracyM:       10,
		AccuracyThresholdM: 50,
		Contained:          true,
	})
	if math.Abs(score-0.94) > 1e-9 {
		t.Fatalf("expected 0.94, got %v", score)
	}
}

func TestScoreClampedDurationFraction(t *testing.T) {
	over := Score(Inputs{AchievedDwellSec: 3000, RequiredDwellSec: 600, AccuracyThresholdM: 50, Contained: true})
	exact := Score(Inputs{AchievedDwellSec: 600, RequiredDwellSec: 600, AccuracyThresholdM: 50, Contained: true})
	if over != exact {
		t.Fatalf("dwell beyond requirement should not raise the score: %v vs %v", over, exact)
	}
}

func TestScorePoorAccuracyFloorsAtZero(t *testing.T) {
	score := Score(Inputs{
		AchievedDwellSec:   600,
		RequiredDwellSec:   600,
		FixAccuracyM:       500,
		AccuracyThresholdM: 50,
		Contained:          true,
	})
	if math.Abs(score-0.7) > 1e-9 {
		t.Fatalf("expected accuracy factor to floor at zero, got %v", score)
	}
}

func TestScoreAlwaysInRange(t *testing.T) {
	cases := []Inputs{
		{},
		{AchievedDwellSec: -100, RequiredDwellSec: 600},
		{AchievedDwellSec: 1e9, RequiredDwellSec: 1, FixAccuracyM: -5, AccuracyThresholdM: 50, Contained: true},
		{RequiredDwellSec: 0, FixAccuracyM: 10, AccuracyThresholdM: 0},
	}
	for i, in := range cases {
		score := Score(in)
		if score < 0 || score > 1 {
			t.Fatalf("case %d: score out of range: %v", i, score)
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	in := Inputs{AchievedDwellSec: 300, RequiredDwellSec: 600, FixAccuracyM: 25, AccuracyThresholdM: 50, Contained: false}
	if Score(in) != Score(in) {
		t.Fatalf("score must be pure")
	}
}
