package store

import (
	"context"
	"fmt"
	"time"

	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const signupTableName = "event_signups"

type SignupRepository struct {
	pool *pgxpool.Pool
}

func NewSignupRepository(pool *pgxpool.Pool) *SignupRepository {
	return &SignupRepository{pool: pool}
}

// SignUp records userID against eventID. It reports false when the pair was
// already signed up.
func (r *SignupRepository) SignUp(ctx context.Context, userID string, eventID int64) (bool, error) {
	signup := &types.EventSignup{
		ID:        uuid.NewString(),
		UserID:    userID,
		EventID:   eventID,
		Status:    types.SignupStatusSignedUp,
		CreatedAt: time.Now(),
	}

	query, args, err := psql().
		Insert(signupTableName).
		SetMap(utils.StructToMap(signup)).
		Suffix("ON CONFLICT (user_id, event_id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate signup query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to sign up for event %d: %w", eventID, err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *SignupRepository) Cancel(ctx context.Context, userID string, eventID int64) error {
	query, args, err := psql().
		Delete(signupTableName).
		Where(sq.Eq{"user_id": userID, "event_id": eventID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate cancel signup query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to cancel signup")
}

// EventIDsByUser returns the set of events userID is signed up for.
func (r *SignupRepository) EventIDsByUser(ctx context.Context, userID string) (map[int64]bool, error) {
	query, args, err := psql().
		Select("event_id").
		From(signupTableName).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate signed up events query: %w", err)
	}

	var ids []int64
	err = pgxscan.Select(ctx, r.pool, &ids, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch signed up events: %w", err)
	}

	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}

	return out, nil
}

func (r *SignupRepository) IsSignedUp(ctx context.Context, userID string, eventID int64) (bool, error) {
	query, args, err := psql().
		Select("1").
		Prefix("SELECT EXISTS (").
		From(signupTableName).
		Where(sq.Eq{"user_id": userID, "event_id": eventID}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate signup exists query: %w", err)
	}

	var exists bool
	err = r.pool.QueryRow(ctx, query, args...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check signup: %w", err)
	}

	return exists, nil
}

// Counts returns the number of signups per event.
func (r *SignupRepository) Counts(ctx context.Context) (map[int64]int, error) {
	query, args, err := psql().
		Select("event_id", "count(*) AS signups").
		From(signupTableName).
		GroupBy("event_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate signup counts query: %w", err)
	}

	var rows []struct {
		EventID int64 `db:"event_id"`
		Signups int   `db:"signups"`
	}
	err = pgxscan.Select(ctx, r.pool, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch signup counts: %w", err)
	}

	out := make(map[int64]int, len(rows))
	for _, row := range rows {
		out[row.EventID] = row.Signups
	}

	return out, nil
}

// Roster lists the volunteers signed up for eventID, earliest signup first.
func (r *SignupRepository) Roster(ctx context.Context, eventID int64) ([]*types.SignupRosterEntry, error) {
	columns := utils.PrefixColumns("u", userColumns)
	columns = append(columns, "s.created_at AS signed_up_at")

	query, args, err := psql().
		Select(columns...).
		From(signupTableName + " s").
		Join(userTableName + " u ON u.id = s.user_id").
		Where(sq.Eq{"s.event_id": eventID}).
		OrderBy("s.created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate roster query: %w", err)
	}

	entries := make([]*types.SignupRosterEntry, 0)
	err = pgxscan.Select(ctx, r.pool, &entries, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster for event %d: %w", eventID, err)
	}

	return entries, nil
}
