package geofence

import (
	"context"
	"fmt"
	"strings"

	"github.com/geraldsadya/Circles-sub000/internal/db"

	"github.com/google/uuid"
)

// ChallengeService persists challenge definitions. Challenges created
// without an explicit point value fall back to defaultPoints.
type ChallengeService struct {
	db            db.Querier
	defaultPoints int
}

func NewChallengeService(querier db.Querier, defaultPoints int) *ChallengeService {
	return &ChallengeService{db: querier, defaultPoints: defaultPoints}
}

func (s *ChallengeService) Create(ctx context.Context, input Challenge) (Challenge, error) {
	if input.Points <= 0 {
		input.Points = s.defaultPoints
	}
	if errs := input.Params().Validate(); len(errs) > 0 {
		return Challenge{}, fmt.Errorf("invalid challenge: %s", strings.Join(errs, "; "))
	}

	input.ID = uuid.NewString()
	row := s.db.QueryRow(ctx, `
		INSERT INTO challenges (id, name, description, target, radius_m, min_duration_min, points, created_by)
		VALUES ($1,$2,$3, ST_SetSRID(ST_MakePoint($4,$5), 4326)::geography, $6,$7,$8,$9)
		RETURNING created_at
	`, input.ID, input.Name, input.Description, input.TargetLng, input.TargetLat,
		input.RadiusM, input.MinDurationMin, input.Points, input.CreatedBy)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Challenge{}, err
	}
	return input, nil
}

func (s *ChallengeService) Get(ctx context.Context, id string) (Challenge, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, description, ST_Y(target::geometry), ST_X(target::geometry),
		       radius_m, min_duration_min, points, created_by, created_at
		FROM challenges WHERE id=$1
	`, id)
	var ch Challenge
	if err := row.Scan(&ch.ID, &ch.Name, &ch.Description, &ch.TargetLat, &ch.TargetLng,
		&ch.RadiusM, &ch.MinDurationMin, &ch.Points, &ch.CreatedBy, &ch.CreatedAt); err != nil {
		return Challenge{}, err
	}
	return ch, nil
}

func (s *ChallengeService) List(ctx context.Context) ([]Challenge, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, description, ST_Y(target::geometry), ST_X(target::geometry),
		       radius_m, min_duration_min, points, created_by, created_at
		FROM challenges
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var challenges []Challenge
	for rows.Next() {
		var ch Challenge
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Description, &ch.TargetLat, &ch.TargetLng,
			&ch.RadiusM, &ch.MinDurationMin, &ch.Points, &ch.CreatedBy, &ch.CreatedAt); err != nil {
			return nil, err
		}
		challenges = append(challenges, ch)
	}
	return challenges, nil
}

func (s *ChallengeService) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM challenges WHERE id=$1`, id)
	return err
}
