package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/tradelink-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradelink-backend/pkg/db/models"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEmitWritesEnvelope(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)
	orderID := uuid.New()
	actor := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{UserID: actor, Role: "retailer"},
			Data:          map[string]any{"order_id": orderID},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, orderID, rows[0].AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.Equal(t, rows[0].ID.String(), envelope.EventID)
	require.Equal(t, actor, envelope.Actor.UserID)
	require.JSONEq(t, `{"order_id":"`+orderID.String()+`"}`, string(envelope.Data))
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventInvoiceIssued,
			AggregateType: enums.AggregateInvoice,
			AggregateID:   uuid.New(),
			Data:          map[string]any{},
		}); err != nil {
			return err
		}
		return errors.New("invoice insert failed")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestEmitRejectsUnknownEvent(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)

	err := svc.Emit(context.Background(), db, DomainEvent{EventType: enums.OutboxEventType("bogus")})
	require.Error(t, err)
	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventInvoicePaid}))
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	base := time.Now().UTC().Add(-time.Hour)

	ids := make([]uuid.UUID, 3)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, repo.Insert(db, models.OutboxEvent{
			ID:            ids[i],
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, ids[0], rows[0].ID)

	require.NoError(t, repo.MarkPublishedTx(db, ids[0]))
	require.NoError(t, repo.MarkFailedTx(db, ids[1], errors.New("pubsub unavailable")))
	require.NoError(t, repo.MarkTerminalTx(db, ids[2], errors.New("bad payload"), 3))

	rows, err = repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, ids[1], rows[0].ID)
	require.Equal(t, 1, rows[0].AttemptCount)
	require.Equal(t, "pubsub unavailable", *rows[0].LastError)

	deleted, err := repo.DeletePublishedBefore(context.Background(), nil, time.Now().UTC().Add(time.Minute), 3)
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)
}

func TestDLQRepositoryLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	dlq := NewDLQRepository(db)

	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventInvoicePaid,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.Insert(db, row))
	require.NoError(t, repo.MarkTerminalTx(db, row.ID, errors.New("no route"), 10))

	msg := strings.Repeat("é", maxDLQErrorLen)
	require.NoError(t, dlq.InsertTx(db, models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   enums.DLQReasonNoRoute,
		ErrorMessage:  &msg,
		AttemptCount:  10,
		FailedAt:      time.Now().UTC(),
	}))
	require.Error(t, dlq.InsertTx(db, models.OutboxDLQ{EventID: uuid.New(), ErrorReason: "bogus"}))

	found, err := dlq.Get(context.Background(), row.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.LessOrEqual(t, len(*found.ErrorMessage), maxDLQErrorLen)
	require.True(t, utf8.ValidString(*found.ErrorMessage))

	missing, err := dlq.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, missing)

	recent, err := dlq.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)

	// requeue: row becomes fetchable again and the dlq entry is dropped
	requeued, err := repo.RequeueTx(db, row.ID)
	require.NoError(t, err)
	require.True(t, requeued)
	deleted, err := dlq.DeleteTx(db, row.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Zero(t, rows[0].AttemptCount)
	require.Nil(t, rows[0].LastError)
}

func TestDecodeEnvelope(t *testing.T) {
	id := uuid.New()
	env, got, err := DecodeEnvelope([]byte(`{"eventId":"` + id.String() + `","data":{"a":1}}`))
	require.NoError(t, err)
	require.Equal(t, id, got)
	require.Equal(t, CurrentEnvelopeVersion, env.Version)

	for _, raw := range []string{
		`not json`,
		`{"eventId":"nope","data":{}}`,
		`{"eventId":"` + id.String() + `","data":null}`,
		`{"eventId":"` + id.String() + `"}`,
	} {
		_, _, err := DecodeEnvelope([]byte(raw))
		require.Error(t, err, raw)
	}
}
