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

const (
	websiteDetailsTableName = "website_details"
	contactTableName        = "contact_messages"
)

var websiteDetailsColumns = utils.StructTagValues(types.WebsiteDetails{})

type WebsiteRepository struct {
	pool *pgxpool.Pool
}

func NewWebsiteRepository(pool *pgxpool.Pool) *WebsiteRepository {
	return &WebsiteRepository{pool: pool}
}

// Details returns the singleton website details row, or zero values when it
// has never been saved.
func (r *WebsiteRepository) Details(ctx context.Context) (*types.WebsiteDetails, error) {
	query, args, err := psql().
		Select(websiteDetailsColumns...).
		From(websiteDetailsTableName).
		Where(sq.Eq{"id": types.WebsiteDetailsID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate website details query: %w", err)
	}

	var details types.WebsiteDetails
	err = pgxscan.Get(ctx, r.pool, &details, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return &types.WebsiteDetails{ID: types.WebsiteDetailsID, Leadership: []types.Leader{}}, nil
		}
		return nil, fmt.Errorf("failed to fetch website details: %w", err)
	}

	if details.Leadership == nil {
		details.Leadership = []types.Leader{}
	}

	return &details, nil
}

func (r *WebsiteRepository) Upsert(ctx context.Context, details *types.WebsiteDetails) error {
	details.ID = types.WebsiteDetailsID
	details.UpdatedAt = time.Now()
	if details.Leadership == nil {
		details.Leadership = []types.Leader{}
	}

	query, args, err := psql().
		Insert(websiteDetailsTableName).
		SetMap(utils.StructToMap(details)).
		Suffix("ON CONFLICT (id) DO UPDATE SET " + buildUpdateClause(utils.StructTagValues(details, "id"))).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert website details query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to upsert website details")
}

func (r *WebsiteRepository) CreateContactMessage(ctx context.Context, msg *types.ContactMessage) error {
	msg.ID = utils.NanoID()
	msg.CreatedAt = time.Now()

	query, args, err := psql().
		Insert(contactTableName).
		SetMap(utils.StructToMap(msg)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build contact message insert: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "insert contact message")
}
