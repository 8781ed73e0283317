package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradelink-backend/pkg/db"
	"github.com/angelmondragon/tradelink-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradelink-backend/pkg/db/models"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox"
)

func TestRequeueDLQResetsOutboxRow(t *testing.T) {
	conn := dbtest.Open(t)
	client := db.FromConn(conn)
	repo := outbox.NewRepository(conn)
	dlqRepo := outbox.NewDLQRepository(conn)

	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventInvoicePaid,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.Insert(conn, row))
	require.NoError(t, repo.MarkTerminalTx(conn, row.ID, errors.New("message too large"), 10))
	msg := "message too large"
	require.NoError(t, dlqRepo.InsertTx(conn, models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   enums.DLQReasonRejected,
		ErrorMessage:  &msg,
		AttemptCount:  10,
		FailedAt:      time.Now().UTC(),
	}))

	var out bytes.Buffer
	require.NoError(t, printDLQ(context.Background(), &out, dlqRepo, 10))
	require.Contains(t, out.String(), row.ID.String())
	require.Contains(t, out.String(), "rejected")

	require.NoError(t, requeueDLQ(context.Background(), client, dlqRepo, repo, row.ID))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, row.ID, rows[0].ID)

	// second requeue has nothing to act on
	require.Error(t, requeueDLQ(context.Background(), client, dlqRepo, repo, row.ID))
}
