package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationFilesOrdered(t *testing.T) {
	files, err := migrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	require.Equal(t, "0001_init.sql", files[0])

	body, err := migrationFS.ReadFile("migrations/" + files[0])
	require.NoError(t, err)
	for _, table := range []string{"employees", "products", "transactions", "sale_items", "inventory_transactions", "payment_tokens", "audit_logs"} {
		require.True(t, strings.Contains(string(body), "CREATE TABLE IF NOT EXISTS "+table+" "), table)
	}
}
