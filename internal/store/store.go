package store

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// buildUpdateClause creates the SET clause for ON CONFLICT DO UPDATE
// e.g., "hours = EXCLUDED.hours, updated_at = EXCLUDED.updated_at"
func buildUpdateClause(columns []string) string {
	var clause string
	for i, column := range columns {
		if i > 0 {
			clause += ", "
		}
		clause += fmt.Sprintf("%s = EXCLUDED.%s", column, column)
	}
	return clause
}
