package sqldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialect_Rebind(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "duckdb keeps question marks",
			dialect:  DialectDuckDB,
			query:    "SELECT * FROM t WHERE a = ? AND b = ?",
			expected: "SELECT * FROM t WHERE a = ? AND b = ?",
		},
		{
			name:     "postgres numbers placeholders",
			dialect:  DialectPostgres,
			query:    "SELECT * FROM t WHERE a = ? AND b IN (?,?)",
			expected: "SELECT * FROM t WHERE a = $1 AND b IN ($2,$3)",
		},
		{
			name:     "databricks keeps question marks",
			dialect:  DialectDatabricks,
			query:    "SELECT ?",
			expected: "SELECT ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.dialect.Rebind(tt.query))
		})
	}
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", Placeholders(0))
	assert.Equal(t, "?", Placeholders(1))
	assert.Equal(t, "?,?,?", Placeholders(3))
}
