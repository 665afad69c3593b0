package storage

import (
	"strconv"
	"strings"
)

// dialect captures the SQL differences between SQLite and PostgreSQL
type dialect struct {
	name  string
	codec VectorCodec

	// schema template substitutions
	serial string // auto-increment primary key
	bigint string // foreign key to a serial column
	setup  string // statements run before the schema

	tableExistsQuery string
	numbered         bool // $1 placeholders instead of ?
}

var sqliteDialect = dialect{
	name:             BackendSQLite,
	codec:            jsonCodec{},
	serial:           "INTEGER PRIMARY KEY AUTOINCREMENT",
	bigint:           "INTEGER",
	tableExistsQuery: "SELECT name FROM sqlite_master WHERE type='table' AND name=?",
}

var postgresDialect = dialect{
	name:             BackendPostgres,
	codec:            pgvectorCodec{},
	serial:           "BIGSERIAL PRIMARY KEY",
	bigint:           "BIGINT",
	setup:            "CREATE EXTENSION IF NOT EXISTS vector;",
	tableExistsQuery: "SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?",
	numbered:         true,
}

// render fills a schema template for this dialect
func (d dialect) render(tmpl string) string {
	return strings.NewReplacer(
		"{{setup}}", d.setup,
		"{{serial}}", d.serial,
		"{{bigint}}", d.bigint,
		"{{vector}}", d.codec.ColumnType(),
	).Replace(tmpl)
}

// rebind converts ? placeholders to $n for PostgreSQL
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
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
