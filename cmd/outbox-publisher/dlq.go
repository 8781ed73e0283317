package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradelink-backend/pkg/db/models"
)

type dlqAdminStore interface {
	Recent(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
	DeleteTx(tx *gorm.DB, eventID uuid.UUID) (bool, error)
}

type requeuer interface {
	RequeueTx(tx *gorm.DB, id uuid.UUID) (bool, error)
}

func printDLQ(ctx context.Context, w io.Writer, store dlqAdminStore, limit int) error {
	rows, err := store.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("list dlq: %w", err)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EVENT ID\tTYPE\tREASON\tATTEMPTS\tFAILED AT\tERROR")
	for _, row := range rows {
		msg := ""
		if row.ErrorMessage != nil {
			msg = *row.ErrorMessage
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			row.EventID, row.EventType, row.ErrorReason, row.AttemptCount,
			row.FailedAt.UTC().Format(time.RFC3339), msg)
	}
	return tw.Flush()
}

// requeueDLQ removes the DLQ entry and resets the outbox row in one
// transaction so the publisher picks the event up on its next poll.
func requeueDLQ(ctx context.Context, db dbClient, store dlqAdminStore, outbox requeuer, eventID uuid.UUID) error {
	return db.WithTx(ctx, func(tx *gorm.DB) error {
		found, err := store.DeleteTx(tx, eventID)
		if err != nil {
			return fmt.Errorf("delete dlq entry: %w", err)
		}
		if !found {
			return fmt.Errorf("no dlq entry for event %s", eventID)
		}
		reset, err := outbox.RequeueTx(tx, eventID)
		if err != nil {
			return fmt.Errorf("reset outbox row: %w", err)
		}
		if !reset {
			return fmt.Errorf("outbox row %s missing or already published", eventID)
		}
		return nil
	})
}
