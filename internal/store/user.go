package store

import (
	"context"
	"fmt"
	"time"

	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userTableName = "users"

var userColumns = utils.StructTagValues(types.User{})

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) User(ctx context.Context, userID string) (*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user query: %w", err)
	}

	var user types.User
	err = pgxscan.Get(ctx, r.pool, &user, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return &user, nil
}

// Access fetches only the status and role of a user. A missing row is
// reported as types.ErrUserNotFound.
func (r *UserRepository) Access(ctx context.Context, userID string) (*types.UserAccess, error) {
	query, args, err := psql().
		Select("status", "role").
		From(userTableName).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user access query: %w", err)
	}

	var access types.UserAccess
	err = pgxscan.Get(ctx, r.pool, &access, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user access: %w", err)
	}

	return &access, nil
}

func (r *UserRepository) All(ctx context.Context) ([]*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate users query: %w", err)
	}

	users := make([]*types.User, 0)
	err = pgxscan.Select(ctx, r.pool, &users, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}

	return users, nil
}

// Create inserts a new user. Status always starts as pending regardless of
// what the caller set.
func (r *UserRepository) Create(ctx context.Context, user *types.User) error {
	now := time.Now()
	user.Status = types.UserStatusPending
	user.CreatedAt = now
	user.UpdatedAt = now

	query, args, err := psql().
		Insert(userTableName).
		SetMap(utils.StructToMap(user)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create user query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *UserRepository) UpdateStatus(ctx context.Context, userID string, status types.UserStatus) error {
	return r.updateFields(ctx, userID, map[string]any{"status": status})
}

func (r *UserRepository) UpdateRole(ctx context.Context, userID string, role types.Role) error {
	return r.updateFields(ctx, userID, map[string]any{"role": role})
}

func (r *UserRepository) updateFields(ctx context.Context, userID string, fields map[string]any) error {
	fields["updated_at"] = time.Now()

	query, args, err := psql().
		Update(userTableName).
		SetMap(fields).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update user query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrUserNotFound
	}

	return nil
}
