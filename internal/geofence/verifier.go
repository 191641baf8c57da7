package geofence

import (
	"context"
	"log"
	"time"

	"github.com/geraldsadya/Circles-sub000/internal/confidence"
	"github.com/geraldsadya/Circles-sub000/internal/events"
	"github.com/geraldsadya/Circles-sub000/internal/location"
	"github.com/geraldsadya/Circles-sub000/internal/reward"
	"github.com/geraldsadya/Circles-sub000/internal/shared/geo"
	"github.com/geraldsadya/Circles-sub000/internal/stream"

	"github.com/google/uuid"
)

const rewardReasonChallenge = "challenge"

// FixSource supplies a user's most recent fix.
type FixSource interface {
	CurrentFix(ctx context.Context, userID string) (location.Fix, error)
}

type VerifierConfig struct {
	PollInterval       time.Duration
	AccuracyThresholdM float64
	DailyCapPts        int
}

// Verifier runs the synchronous dwell verification path: the caller blocks
// until the attempt reaches a terminal state.
type Verifier struct {
	fixes     FixSource
	attempts  *AttemptStore
	gateway   reward.Gateway
	publisher events.Publisher
	hub       *stream.Hub
	cfg       VerifierConfig

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewVerifier(fixes FixSource, attempts *AttemptStore, gateway reward.Gateway, publisher events.Publisher, hub *stream.Hub, cfg VerifierConfig) *Verifier {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Verifier{
		fixes:     fixes,
		attempts:  attempts,
		gateway:   gateway,
		publisher: publisher,
		hub:       hub,
		cfg:       cfg,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// VerifyNow checks the challenge's dwell condition starting from the current
// moment. It blocks, polling containment until the minimum duration is
// reached or the user leaves the geofence. Prior dwell never carries over
// into a verdict once the fence is exited.
func (v *Verifier) VerifyNow(ctx context.Context, challenge Challenge, userID string) (Result, error) {
	params := challenge.Params()
	if errs := params.Validate(); len(errs) > 0 {
		return Result{IsVerified: false, Notes: errs}, nil
	}

	fix, err := v.fixes.CurrentFix(ctx, userID)
	if err != nil {
		return Result{IsVerified: false, Notes: []string{"no location data"}}, nil
	}

	dist := geo.DistanceM(fix.Lat, fix.Lng, params.TargetLat, params.TargetLng)
	if dist > params.RadiusM {
		return Result{
			IsVerified:       false,
			ConfidenceScore:  v.score(params, 0, fix.AccuracyM, false),
			LastFixAccuracyM: fix.AccuracyM,
			Notes:            []string{"outside geofence"},
		}, nil
	}

	attempt := Verification{
		ID:          uuid.NewString(),
		ChallengeID: challenge.ID,
		UserID:      userID,
		Params:      params,
		StartTime:   v.now(),
		State:       StateTracking,
	}
	if v.attempts != nil {
		if err := v.attempts.Insert(ctx, attempt); err != nil {
			return Result{}, err
		}
	}

	lastSample := attempt.StartTime
	lastAccuracy := fix.AccuracyM
	required := params.requiredDwellSec()

	for attempt.AccumulatedDwellSec < required {
		if err := v.sleep(ctx, v.cfg.PollInterval); err != nil {
			attempt.State = StateFailed
			v.finish(ctx, &attempt, dist)
			return Result{}, err
		}

		now := v.now()
		fix, err := v.fixes.CurrentFix(ctx, userID)
		if err != nil {
			// Transient gap: no dwell accrues, no failure.
			log.Printf("dwell poll skipped for %s: %v", userID, err)
			lastSample = now
			continue
		}
		lastAccuracy = fix.AccuracyM

		dist = geo.DistanceM(fix.Lat, fix.Lng, params.TargetLat, params.TargetLng)
		if dist > params.RadiusM {
			attempt.State = StateFailed
			v.finish(ctx, &attempt, dist)
			return Result{
				IsVerified:       false,
				ConfidenceScore:  v.score(params, attempt.AccumulatedDwellSec, lastAccuracy, false),
				DwellMinutes:     attempt.AccumulatedDwellSec / 60,
				LastFixAccuracyM: lastAccuracy,
				Notes:            []string{"left geofence before minimum duration"},
			}, nil
		}

		attempt.AccumulatedDwellSec += now.Sub(lastSample).Seconds()
		lastSample = now
	}

	attempt.State = StateCompleted
	v.finish(ctx, &attempt, dist)

	result := Result{
		IsVerified:       true,
		ConfidenceScore:  v.score(params, attempt.AccumulatedDwellSec, lastAccuracy, true),
		DwellMinutes:     attempt.AccumulatedDwellSec / 60,
		LastFixAccuracyM: lastAccuracy,
	}
	v.reportCompletion(ctx, challenge, userID, result.ConfidenceScore)
	return result, nil
}

func (v *Verifier) score(params Params, dwellSec, accuracyM float64, contained bool) float64 {
	return confidence.Score(confidence.Inputs{
		AchievedDwellSec:   dwellSec,
		RequiredDwellSec:   params.requiredDwellSec(),
		FixAccuracyM:       accuracyM,
		AccuracyThresholdM: v.cfg.AccuracyThresholdM,
		Contained:          contained,
	})
}

func scoreAttempt(v Verification, accuracyM, thresholdM float64, contained bool) float64 {
	return confidence.Score(confidence.Inputs{
		AchievedDwellSec:   v.AccumulatedDwellSec,
		RequiredDwellSec:   v.Params.requiredDwellSec(),
		FixAccuracyM:       accuracyM,
		AccuracyThresholdM: thresholdM,
		Contained:          contained,
	})
}

func (v *Verifier) finish(ctx context.Context, attempt *Verification, dist float64) {
	attempt.EndTime = v.now()
	attempt.LastKnownDistM = dist
	if v.attempts == nil {
		return
	}
	if err := v.attempts.Finish(ctx, *attempt); err != nil {
		log.Printf("storing verification %s: %v", attempt.ID, err)
	}
}

// reportCompletion awards points and publishes the verdict. Both writes are
// fire-and-forget: a lost award never invalidates the verdict.
func (v *Verifier) reportCompletion(ctx context.Context, challenge Challenge, userID string, score float64) {
	points := clampAward(ctx, v.gateway, userID, challenge.Points, v.cfg.DailyCapPts)
	if v.gateway != nil {
		if err := v.gateway.Award(ctx, userID, challenge.ID, points, rewardReasonChallenge, map[string]string{
			"challenge_id": challenge.ID,
		}); err != nil {
			log.Printf("challenge award failed for %s: %v", challenge.ID, err)
		}
	}

	v.publisher.Publish(events.TopicChallengeCompleted, challenge.ID, events.ChallengeCompleted{
		ChallengeID: challenge.ID,
		UserID:      userID,
		Confidence:  score,
	})
	if v.hub != nil {
		v.hub.BroadcastJSON(userID, map[string]any{
			"type":         "challenge.completed",
			"challenge_id": challenge.ID,
			"confidence":   score,
		})
	}
}

// clampAward bounds a challenge award by the remaining daily budget. The
// gateway enforces caps authoritatively; this is local defense in depth.
func clampAward(ctx context.Context, gateway reward.Gateway, userID string, points, capPts int) int {
	if points <= 0 {
		return 0
	}
	if capPts <= 0 || gateway == nil {
		return points
	}
	awarded, err := gateway.AwardedToday(ctx, userID, rewardReasonChallenge)
	if err != nil {
		log.Printf("daily award lookup failed for %s: %v", userID, err)
		return points
	}
	remaining := capPts - awarded
	if remaining < 0 {
		remaining = 0
	}
	if points > remaining {
		points = remaining
	}
	return points
}
