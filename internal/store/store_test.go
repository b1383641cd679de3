package store

import (
	"strings"
	"testing"

	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpdateClause(t *testing.T) {
	assert.Equal(t, "hours = EXCLUDED.hours, updated_at = EXCLUDED.updated_at", buildUpdateClause([]string{"hours", "updated_at"}))
	assert.Equal(t, "", buildUpdateClause(nil))
}

func TestPSQLUsesDollarPlaceholders(t *testing.T) {
	query, args, err := psql().
		Select("id").
		From(eventTableName).
		Where("id = ?", 7).
		ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT id FROM events WHERE id = $1", query)
	assert.Equal(t, []any{7}, args)
}

func TestColumnsSkipResolvedFields(t *testing.T) {
	assert.NotContains(t, eventColumns, "image_url")
	assert.Contains(t, eventColumns, "image_id")
	assert.Contains(t, userColumns, "status")
	assert.Equal(t, []string{"event_id", "user_id", "hours", "updated_at"}, utils.StructTagValues(types.VolunteerHours{}))
}

func TestWebsiteUpsertClauseExcludesID(t *testing.T) {
	clause := buildUpdateClause(utils.StructTagValues(types.WebsiteDetails{}, "id"))
	assert.False(t, strings.HasPrefix(clause, "id ="))
	assert.NotContains(t, clause, " id = EXCLUDED.id")
	assert.Contains(t, clause, "leadership = EXCLUDED.leadership")
}

func TestDefaultWebsiteDetailsID(t *testing.T) {
	assert.Equal(t, 1, types.WebsiteDetailsID)
}
