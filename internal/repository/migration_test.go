package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestModelsMatchTables(t *testing.T) {
	all := models()
	require.Len(t, all, len(Tables))
	for i, m := range all {
		tabler, ok := m.(schema.Tabler)
		require.True(t, ok, "%T has no table name", m)
		assert.Equal(t, Tables[i], tabler.TableName())
	}
}
