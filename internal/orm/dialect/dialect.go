// Package dialect abstracts the SQL differences between the databases the
// ORM talks to: identifier quoting, bind placeholders and generated-key
// retrieval. SQL is generated with '?' placeholders and rebound once per
// statement for the target database.
package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// Dialect describes one SQL flavour
type Dialect interface {
	// Name returns the dialect name
	Name() string
	// Quote quotes an identifier such as a table or column name
	Quote(ident string) string
	// Placeholder returns the bind placeholder for the n-th argument (1-based)
	Placeholder(n int) string
	// Returning reports whether INSERT ... RETURNING is used to read
	// generated keys instead of sql.Result.LastInsertId
	Returning() bool
}

var (
	// MySQL covers MySQL and MariaDB
	MySQL Dialect = mysqlDialect{}
	// Postgres covers PostgreSQL through pgx or lib/pq
	Postgres Dialect = postgresDialect{}
	// SQLite covers SQLite 3
	SQLite Dialect = sqliteDialect{}
)

// For returns the dialect for a database/sql driver name
func For(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "mysql", "mariadb":
		return MySQL, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) Returning() bool { return false }

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Quote(ident string) string {
	return pq.QuoteIdentifier(ident)
}

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) Returning() bool { return true }

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite3" }

func (sqliteDialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) Returning() bool { return false }

// Rebind rewrites '?' placeholders into the dialect's form. Question marks
// inside single-quoted literals are left alone.
func Rebind(d Dialect, query string) string {
	if d.Placeholder(1) == "?" || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	inLiteral := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inLiteral = !inLiteral
			b.WriteByte(c)
		case c == '?' && !inLiteral:
			n++
			b.WriteString(d.Placeholder(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Placeholders returns n comma separated '?' placeholders
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
