package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// LogFields flattens err for structured logs: the code, each link of the
// wrap chain and, when the root is a Postgres error from either driver, its
// SQLSTATE and constraint. Empty values are left out.
func LogFields(err error) map[string]any {
	if err == nil {
		return nil
	}
	fields := map[string]any{"error": err.Error()}
	if typed := As(err); typed != nil {
		fields["error_code"] = string(typed.code)
	}

	var chain []string
	for e := stdErrors.Unwrap(err); e != nil; e = stdErrors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T", e))
	}
	if len(chain) > 0 {
		fields["error_chain"] = chain
	}

	var pg pgFields
	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case stdErrors.As(err, &pgxErr):
		pg = pgFields{pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName, pgxErr.Detail}
	case stdErrors.As(err, &pqErr):
		pg = pgFields{string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Detail}
	}
	pg.addTo(fields)
	return fields
}

type pgFields struct {
	code, constraint, table, detail string
}

func (p pgFields) addTo(fields map[string]any) {
	for key, value := range map[string]string{
		"pg_code":       p.code,
		"pg_constraint": p.constraint,
		"pg_table":      p.table,
		"pg_detail":     p.detail,
	} {
		if value != "" {
			fields[key] = value
		}
	}
}
