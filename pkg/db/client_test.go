package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/tradelink-backend/pkg/config"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type ledgerRow struct {
	ID     int
	Amount int64
}

func newSQLiteClient(t *testing.T, logg *logger.Logger, slow time.Duration) *Client {
	t.Helper()
	client, err := New(context.Background(), config.DBConfig{
		Driver:    DriverSQLite,
		DSN:       fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		SlowQuery: slow,
	}, logg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(&ledgerRow{}))
	return client
}

func countRows(t *testing.T, c *Client) int64 {
	t.Helper()
	var n int64
	require.NoError(t, c.DB().Model(&ledgerRow{}).Count(&n).Error)
	return n
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	c := newSQLiteClient(t, nil, 0)
	err := c.WithTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&ledgerRow{Amount: 1500}).Error
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), countRows(t, c))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	c := newSQLiteClient(t, nil, 0)
	sentinel := errors.New("stock check failed")
	err := c.WithTx(context.Background(), func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&ledgerRow{Amount: 1}).Error)
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.Zero(t, countRows(t, c))
}

func TestWithTxRollsBackAndRepanics(t *testing.T) {
	c := newSQLiteClient(t, nil, 0)
	require.PanicsWithValue(t, "boom", func() {
		_ = c.WithTx(context.Background(), func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&ledgerRow{Amount: 1}).Error)
			panic("boom")
		})
	})
	require.Zero(t, countRows(t, c))
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{Driver: "mysql", DSN: "x"}, nil)
	require.ErrorContains(t, err, "unsupported")

	_, err = New(context.Background(), config.DBConfig{Driver: DriverSQLite}, nil)
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	c := newSQLiteClient(t, nil, 0)
	require.NoError(t, c.Ping(context.Background()))
}

func TestQueryLoggerReportsSlowStatements(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "db-test", Output: &buf})
	c := newSQLiteClient(t, logg, time.Nanosecond)

	buf.Reset()
	require.NoError(t, c.DB().Create(&ledgerRow{Amount: 7}).Error)
	require.Contains(t, buf.String(), "slow query")
}

func TestQueryLoggerIgnoresNotFound(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "db-test", Output: &buf})
	c := newSQLiteClient(t, logg, 0)

	buf.Reset()
	var row ledgerRow
	err := c.DB().First(&row, 999).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.Empty(t, buf.String())
}
