package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsNotFound reports whether err is GORM's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsUniqueViolation reports whether err is a unique constraint failure. With a
// constraint name, a Postgres error must name that constraint. SQLite names
// columns rather than constraints, so its message only has to mention a
// column the constraint covers, given as "table_column_key".
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
	}

	msg := err.Error()
	if strings.Contains(msg, "duplicate key value") {
		return constraint == "" || strings.Contains(msg, constraint)
	}
	const sqlitePrefix = "UNIQUE constraint failed: "
	if i := strings.Index(msg, sqlitePrefix); i >= 0 {
		if constraint == "" {
			return true
		}
		table, column, ok := strings.Cut(strings.TrimSuffix(constraint, "_key"), "_")
		return ok && strings.Contains(msg[i+len(sqlitePrefix):], table+"."+column)
	}
	return false
}
