package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationVersions_SortedAndEmbedded(t *testing.T) {
	versions, err := migrationVersions()
	require.NoError(t, err)
	require.NotEmpty(t, versions)
	assert.Equal(t, "0001_init.sql", versions[0])
	assert.IsIncreasing(t, versions)
}

func TestInitMigration_DeclaresUniqueIdentityColumns(t *testing.T) {
	script, err := migrationFiles.ReadFile("migrations/0001_init.sql")
	require.NoError(t, err)

	for _, fragment := range []string{
		"email TEXT UNIQUE",
		"mobile TEXT UNIQUE",
		"telegram_id TEXT UNIQUE",
		"session_token TEXT UNIQUE",
		"email TEXT NOT NULL UNIQUE",
	} {
		assert.Contains(t, string(script), fragment)
	}
}
