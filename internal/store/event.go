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

const eventTableName = "events"

var eventColumns = utils.StructTagValues(types.Event{})

type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// Events returns every event ordered by date, oldest first.
func (r *EventRepository) Events(ctx context.Context) ([]*types.Event, error) {
	query, args, err := psql().
		Select(eventColumns...).
		From(eventTableName).
		OrderBy("event_date ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate events query: %w", err)
	}

	events := make([]*types.Event, 0)
	err = pgxscan.Select(ctx, r.pool, &events, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}

	return events, nil
}

func (r *EventRepository) Event(ctx context.Context, eventID int64) (*types.Event, error) {
	query, args, err := psql().
		Select(eventColumns...).
		From(eventTableName).
		Where(sq.Eq{"id": eventID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate event query: %w", err)
	}

	var event types.Event
	err = pgxscan.Get(ctx, r.pool, &event, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to fetch event: %w", err)
	}

	return &event, nil
}

// CreateEvent inserts event and sets its generated ID.
func (r *EventRepository) CreateEvent(ctx context.Context, event *types.Event) error {
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now

	query, args, err := psql().
		Insert(eventTableName).
		SetMap(utils.StructToMap(event, "id")).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert event query: %w", err)
	}

	err = r.pool.QueryRow(ctx, query, args...).Scan(&event.ID)
	return utils.ErrorWrapOrNil(err, "failed to create event")
}

// UpdateEvent writes every editable column of event and returns the number of
// rows the update touched.
func (r *EventRepository) UpdateEvent(ctx context.Context, event *types.Event) (int64, error) {
	event.UpdatedAt = time.Now()

	query, args, err := psql().
		Update(eventTableName).
		SetMap(utils.StructToMap(event, "id", "created_at")).
		Where(sq.Eq{"id": event.ID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate update event query for event %d: %w", event.ID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update event: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *EventRepository) DeleteEvent(ctx context.Context, eventID int64) error {
	query, args, err := psql().Delete(eventTableName).Where(sq.Eq{"id": eventID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete event query for event %d: %w", eventID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrEventNotFound
	}

	return nil
}

// ClearEventFiles drops the image and/or waiver reference of an event after
// its storage objects were removed.
func (r *EventRepository) ClearEventFiles(ctx context.Context, eventID int64, image, waiver bool) error {
	if !image && !waiver {
		return nil
	}

	fields := map[string]any{"updated_at": time.Now()}
	if image {
		fields["image_id"] = nil
	}
	if waiver {
		fields["waiver_url"] = nil
	}

	query, args, err := psql().
		Update(eventTableName).
		SetMap(fields).
		Where(sq.Eq{"id": eventID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate clear event files query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to clear event files")
}

// CleanupExpiredImages invokes the server side sweep for past event images.
func (r *EventRepository) CleanupExpiredImages(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, "SELECT cleanup_expired_event_images_rpc()")
	return utils.ErrorWrapOrNil(err, "failed to call cleanup_expired_event_images_rpc")
}
