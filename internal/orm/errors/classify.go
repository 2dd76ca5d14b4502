package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes (class 23)
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

// MySQL/MariaDB error numbers
const (
	mysqlDuplicateEntry   = 1062
	mysqlNotNull          = 1048
	mysqlForeignKeyParent = 1451
	mysqlForeignKeyChild  = 1452
	mysqlCheckViolation   = 3819
)

// Classify maps driver-specific constraint errors onto the package
// sentinels. The driver error stays in the chain, so errors.As still reaches
// it. Errors that are not constraint violations are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	if sentinel := constraintSentinel(err); sentinel != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}

func constraintSentinel(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	// pgx
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fromSQLState(pgErr.Code)
	}

	// lib/pq
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fromSQLState(string(pqErr.Code))
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return ErrUniqueViolation
		case mysqlForeignKeyParent, mysqlForeignKeyChild:
			return ErrForeignKeyViolation
		case mysqlNotNull:
			return ErrNotNullViolation
		case mysqlCheckViolation:
			return ErrCheckViolation
		}
		return nil
	}

	// sqlite drivers only expose the message reliably
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return ErrUniqueViolation
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return ErrForeignKeyViolation
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return ErrNotNullViolation
	case strings.Contains(msg, "CHECK constraint failed"):
		return ErrCheckViolation
	}
	return nil
}

func fromSQLState(code string) error {
	switch code {
	case pgUniqueViolation:
		return ErrUniqueViolation
	case pgForeignKeyViolation:
		return ErrForeignKeyViolation
	case pgCheckViolation:
		return ErrCheckViolation
	case pgNotNullViolation:
		return ErrNotNullViolation
	}
	return nil
}
