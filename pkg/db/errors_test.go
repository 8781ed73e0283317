package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "invoices_order_id_key"}
	require.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", pgxErr), "invoices_order_id_key"))
	require.True(t, IsUniqueViolation(pgxErr, ""))
	require.False(t, IsUniqueViolation(pgxErr, "invoices_invoice_number_key"))

	pqErr := &pq.Error{Code: "23505", Constraint: "invoices_invoice_number_key"}
	require.True(t, IsUniqueViolation(pqErr, "invoices_invoice_number_key"))

	notUnique := &pgconn.PgError{Code: "23503", ConstraintName: "invoices_order_id_key"}
	require.False(t, IsUniqueViolation(notUnique, "invoices_order_id_key"))

	require.False(t, IsUniqueViolation(nil, ""))
	require.False(t, IsUniqueViolation(errors.New("boom"), ""))
}

func TestUniqueConstraintViolatedOnSQLiteMessage(t *testing.T) {
	c := UniqueConstraint{Name: "invoices_order_id_key", Table: "invoices", Column: "order_id"}

	require.True(t, c.Violated(errors.New("UNIQUE constraint failed: invoices.order_id")))
	require.False(t, c.Violated(errors.New("UNIQUE constraint failed: invoices.invoice_number")))
	require.True(t, c.Violated(&pgconn.PgError{Code: "23505", ConstraintName: "invoices_order_id_key"}))
	require.False(t, c.Violated(nil))
}
