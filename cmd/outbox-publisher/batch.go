package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradelink-backend/pkg/db/models"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox/registry"
)

// inflight is a row handed to Pub/Sub whose result has not been read yet.
type inflight struct {
	event  models.OutboxEvent
	topic  string
	fields map[string]any
	result publishResult
}

// processBatch publishes one locked batch in three passes: resolve every
// row, hand every message to its publisher, then await each result. A
// failure on one row is recorded against that row only. The returned
// error covers bookkeeping failures, which roll the whole batch back.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch batch: %w", err)
		}
		if len(events) == 0 {
			return nil
		}
		processed = true

		publishCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
		defer cancel()

		pending := make([]inflight, 0, len(events))
		for _, event := range events {
			resolved, err := s.registry.Resolve(event)
			if err != nil {
				if err := s.deadLetter(ctx, tx, event, enums.DLQReasonInvalidEvent, err, s.eventFields(event, nil)); err != nil {
					return err
				}
				continue
			}

			fields := s.eventFields(event, resolved)
			topic := resolved.Descriptor.Topic
			pub := s.publisherFactory(topic)
			if pub == nil {
				routeErr := fmt.Errorf("publisher not configured for topic %s", topic)
				if err := s.deadLetter(ctx, tx, event, enums.DLQReasonNoRoute, routeErr, fields); err != nil {
					return err
				}
				continue
			}
			pending = append(pending, inflight{
				event:  event,
				topic:  topic,
				fields: fields,
				result: pub.Publish(publishCtx, s.message(event, resolved)),
			})
		}

		for _, p := range pending {
			if err := s.settle(publishCtx, ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

func (s *Service) settle(publishCtx, ctx context.Context, tx *gorm.DB, p inflight) error {
	pubErr := errors.New("publisher returned no result")
	if p.result != nil {
		_, pubErr = p.result.Get(publishCtx)
	}
	if pubErr == nil {
		if err := s.repo.MarkPublishedTx(tx, p.event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", p.event.ID, err)
		}
		s.metrics.IncPublished(string(p.event.EventType))
		s.logg.Info(s.logg.WithFields(ctx, p.fields), "outbox event published")
		return nil
	}

	var rejected registry.NonRetryableError
	if errors.As(pubErr, &rejected) {
		return s.deadLetter(ctx, tx, p.event, enums.DLQReasonRejected, pubErr, p.fields)
	}

	attempt := p.event.AttemptCount + 1
	p.fields["attempt_count"] = attempt
	if attempt >= s.maxAttempts {
		return s.deadLetter(ctx, tx, p.event, enums.DLQReasonMaxAttempts,
			fmt.Errorf("max publish attempts reached: %w", pubErr), p.fields)
	}

	s.metrics.IncFailed(string(p.event.EventType))
	logCtx := s.logg.WithField(s.logg.WithFields(ctx, p.fields), "error", pubErr.Error())
	s.logg.Warn(logCtx, "outbox publish failed")
	if err := s.repo.MarkFailedTx(tx, p.event.ID, pubErr); err != nil {
		return fmt.Errorf("mark failure %s: %w", p.event.ID, err)
	}
	return nil
}

// deadLetter copies the row into outbox_dlq and marks it terminal so the
// fetch query skips it.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.DLQReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	logCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", cause.Error())
	s.logg.Warn(logCtx, "outbox event moved to dlq")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      s.now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	s.metrics.IncDeadLettered(string(event.EventType))
	return nil
}

// message publishes the stored envelope unchanged; attributes let
// subscribers filter without decoding the body.
func (s *Service) message(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}
}

func (s *Service) eventFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if resolved != nil {
		fields["topic"] = resolved.Descriptor.Topic
		fields["occurred_at"] = resolved.Envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}
