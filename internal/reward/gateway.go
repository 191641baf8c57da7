package reward

import (
	"context"
	"encoding/json"
	"time"

	"github.com/geraldsadya/Circles-sub000/internal/db"

	"github.com/google/uuid"
)

// Gateway accepts point-award requests. Idempotency per
// (entity, reason, day bucket) and cap enforcement live behind this
// interface; callers treat Award as fire-and-forget.
type Gateway interface {
	Award(ctx context.Context, userID, entityID string, points int, reason string, metadata map[string]string) error
	AwardedToday(ctx context.Context, userID, reason string) (int, error)
}

// PostgresGateway records awards in an append-only ledger. A unique index on
// (entity_id, reason, day_bucket) makes duplicate awards no-ops.
type PostgresGateway struct {
	db db.Querier

	now func() time.Time
}

func NewPostgresGateway(querier db.Querier) *PostgresGateway {
	return &PostgresGateway{db: querier, now: time.Now}
}

func (g *PostgresGateway) Award(ctx context.Context, userID, entityID string, points int, reason string, metadata map[string]string) error {
	if points <= 0 {
		return nil
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	day := g.now().UTC().Format("2006-01-02")
	_, err = g.db.Exec(ctx, `
		INSERT INTO point_awards (id, user_id, entity_id, points, reason, day_bucket, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (entity_id, reason, day_bucket) DO NOTHING
	`, uuid.NewString(), userID, entityID, points, reason, day, meta)
	return err
}

// AwardedToday sums the points already granted to a user for a reason in the
// current UTC day. Used by callers for local cap clamping.
func (g *PostgresGateway) AwardedToday(ctx context.Context, userID, reason string) (int, error) {
	day := g.now().UTC().Format("2006-01-02")
	var total int
	err := g.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(points), 0)
		FROM point_awards
		WHERE user_id=$1 AND reason=$2 AND day_bucket=$3
	`, userID, reason, day).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}
