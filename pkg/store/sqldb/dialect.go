package sqldb

import (
	"strconv"
	"strings"
)

type Dialect string

const (
	DialectDuckDB     Dialect = "duckdb"
	DialectPostgres   Dialect = "postgres"
	DialectDatabricks Dialect = "databricks"
)

// Rebind rewrites `?` placeholders into the dialect's bind syntax.
// Queries are written with `?` and contain no literal question marks.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Placeholders returns n comma separated `?` placeholders.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
