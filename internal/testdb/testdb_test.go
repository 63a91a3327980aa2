package testdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseURL(t *testing.T) {
	t.Setenv("RECALL_TEST_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	assert.Empty(t, DatabaseURL())

	t.Setenv("DATABASE_URL", "postgres://fallback/recall")
	assert.Equal(t, "postgres://fallback/recall", DatabaseURL())

	t.Setenv("RECALL_TEST_DATABASE_URL", "postgres://test/recall")
	assert.Equal(t, "postgres://test/recall", DatabaseURL())
}

func TestOpenSkipsWithoutURL(t *testing.T) {
	t.Setenv("RECALL_TEST_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")

	var reached bool
	t.Run("skipped", func(t *testing.T) {
		Open(t)
		reached = true
	})
	assert.False(t, reached)
}
