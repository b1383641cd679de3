package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const hoursTableName = "volunteer_hours"

type HoursRepository struct {
	pool *pgxpool.Pool
}

func NewHoursRepository(pool *pgxpool.Pool) *HoursRepository {
	return &HoursRepository{pool: pool}
}

// Upsert stores hours for the (event, user) pair, replacing any earlier
// value. The replaced value is returned, nil when the pair had none.
func (r *HoursRepository) Upsert(ctx context.Context, hours *types.VolunteerHours) (*float64, error) {
	hours.UpdatedAt = time.Now()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin volunteer hours transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	selectQuery, selectArgs, err := psql().
		Select("hours").
		From(hoursTableName).
		Where(sq.Eq{"event_id": hours.EventID, "user_id": hours.UserID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate previous hours query: %w", err)
	}

	var previous *float64
	var prev float64
	err = tx.QueryRow(ctx, selectQuery, selectArgs...).Scan(&prev)
	switch {
	case err == nil:
		previous = &prev
	case errors.Is(err, pgx.ErrNoRows):
		// first save for this pair
	default:
		return nil, fmt.Errorf("failed to fetch previous hours: %w", err)
	}

	upsertQuery, upsertArgs, err := psql().
		Insert(hoursTableName).
		SetMap(utils.StructToMap(hours)).
		Suffix("ON CONFLICT (event_id, user_id) DO UPDATE SET " + buildUpdateClause([]string{"hours", "updated_at"})).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate upsert hours query: %w", err)
	}

	if _, err := tx.Exec(ctx, upsertQuery, upsertArgs...); err != nil {
		return nil, fmt.Errorf("failed to upsert volunteer hours: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit volunteer hours transaction: %w", err)
	}

	return previous, nil
}

// RecordsByUser returns every event userID signed up for together with the
// hours logged against it, oldest event first.
func (r *HoursRepository) RecordsByUser(ctx context.Context, userID string) ([]*types.HoursRecord, error) {
	query, args, err := psql().
		Select("e.id AS event_id", "e.title", "e.event_date", "h.hours").
		From(signupTableName + " s").
		Join(eventTableName + " e ON e.id = s.event_id").
		LeftJoin(hoursTableName + " h ON h.event_id = s.event_id AND h.user_id = s.user_id").
		Where(sq.Eq{"s.user_id": userID}).
		OrderBy("e.event_date ASC", "e.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate hours records query: %w", err)
	}

	records := make([]*types.HoursRecord, 0)
	err = pgxscan.Select(ctx, r.pool, &records, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch hours records: %w", err)
	}

	return records, nil
}

