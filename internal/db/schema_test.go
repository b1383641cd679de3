package db

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanupFunctionBody(t *testing.T) string {
	t.Helper()

	start := strings.Index(schemaSQL, "FUNCTION volunteerhub.cleanup_expired_event_images_rpc()")
	require.NotEqual(t, -1, start, "cleanup function missing from schema")

	body := schemaSQL[start:]
	end := strings.Index(body, "\n$$;")
	require.NotEqual(t, -1, end)

	return body[:end]
}

func TestCleanupRPCKeepsRowsWithStoredImage(t *testing.T) {
	body := cleanupFunctionBody(t)

	// a row is only cleared when its object is gone from storage
	assert.Regexp(t, regexp.MustCompile(`(?s)UPDATE volunteerhub\.events.*WHERE.*AND NOT EXISTS \(\s*SELECT 1 FROM storage\.objects o\s*WHERE o\.id::text = e\.image_id`), body)
	assert.Contains(t, body, "e.event_date < current_date")
}

func TestCleanupRPCSkipsWithoutStorageSchema(t *testing.T) {
	body := cleanupFunctionBody(t)

	guard := strings.Index(body, "to_regclass('storage.objects') IS NULL")
	update := strings.Index(body, "UPDATE volunteerhub.events")
	require.NotEqual(t, -1, guard)
	require.NotEqual(t, -1, update)
	assert.Less(t, guard, update)
}

func TestSchemaCreatesAllTables(t *testing.T) {
	tables := []string{"users", "events", "event_signups", "volunteer_hours", "website_details", "contact_messages"}

	for _, table := range tables {
		t.Run(table, func(t *testing.T) {
			assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS volunteerhub."+table+" (")
		})
	}
}
