package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// UniqueConstraint names a unique constraint and the column it guards so the
// violation can be recognised on Postgres and on SQLite, which reports
// "UNIQUE constraint failed: <table>.<column>" instead of a constraint name.
type UniqueConstraint struct {
	Name   string
	Table  string
	Column string
}

// Violated reports whether err is a unique violation of this constraint.
func (c UniqueConstraint) Violated(err error) bool {
	if err == nil {
		return false
	}
	if IsUniqueViolation(err, c.Name) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") &&
		strings.Contains(msg, c.Table+"."+c.Column)
}

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation. When constraintName is provided, only violations of that
// constraint match.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation &&
			(constraintName == "" || pgErr.ConstraintName == constraintName)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation &&
			(constraintName == "" || pqErr.Constraint == constraintName)
	}

	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, "duplicate key value") && strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}
