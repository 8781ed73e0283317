package notifications

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox/registry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const tradeNotificationConsumer = "trade-notifications"

type eventClaimer interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer turns order and invoice lifecycle events into messages for both
// parties of the trade.
type Consumer struct {
	sender       Sender
	subscription *pubsub.Subscriber
	idempotency  eventClaimer
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds a trade notification consumer.
func NewConsumer(sender Sender, subscription *pubsub.Subscriber, tracker eventClaimer, logg *logger.Logger) (*Consumer, error) {
	if sender == nil {
		return nil, fmt.Errorf("notification sender required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if tracker == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		sender:       sender,
		subscription: subscription,
		idempotency:  tracker,
		decoders:     registry.NewTradeDecoders(),
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.ID, msg.Attributes["event_type"], msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

// message is one rendered notification for one recipient.
type message struct {
	to      uuid.UUID
	subject string
	body    string
}

func (c *Consumer) process(ctx context.Context, messageID, eventType string, data []byte) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	if !handled(enums.OutboxEventType(eventType)) {
		c.logg.Info(logCtx, "skipping unhandled event")
		return processResult{ack: true}
	}

	envelope, eventID, err := outbox.DecodeEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	first, err := c.idempotency.Claim(ctx, tradeNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if !first {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	payload, err := c.decoders.Decode(enums.OutboxEventType(eventType), envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}
	delivery, messages, err := render(payload)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}
	delivery.EventID = eventID
	sendCtx := WithDelivery(logCtx, delivery)

	for _, m := range messages {
		if m.to == uuid.Nil {
			continue
		}
		if err := c.sender.Send(sendCtx, m.to, m.subject, m.body); err != nil {
			c.logg.Error(c.logg.WithField(logCtx, "recipient_id", m.to.String()), "notification send failed", err)
		}
	}
	// Shutdown interrupted the sends; let the redelivery try again.
	if ctx.Err() != nil {
		if err := c.idempotency.Release(context.WithoutCancel(ctx), tradeNotificationConsumer, eventID); err != nil {
			c.logg.Error(logCtx, "failed to release event claim", err)
		}
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func handled(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventOrderPlaced, enums.EventOrderStatusChanged, enums.EventInvoiceIssued, enums.EventInvoicePaid:
		return true
	default:
		return false
	}
}

func render(payload any) (Delivery, []message, error) {
	switch p := payload.(type) {
	case *payloads.OrderPlacedEvent:
		amount := formatAmount(p.TotalMinor, p.Currency)
		return Delivery{Type: enums.NotificationTypeOrderAlert, Link: orderLink(p.OrderID)}, []message{
			{
				to:      p.WholesalerID,
				subject: "New order received",
				body:    fmt.Sprintf("Order %s for %s (%d items) is waiting for confirmation.", p.OrderID, amount, p.ItemCount),
			},
			{
				to:      p.RetailerID,
				subject: "Order placed",
				body:    fmt.Sprintf("Your order %s for %s has been placed.", p.OrderID, amount),
			},
		}, nil

	case *payloads.OrderStatusChangedEvent:
		body := fmt.Sprintf("Order %s moved from %s to %s.", p.OrderID, p.PreviousStatus, p.Status)
		return Delivery{Type: enums.NotificationTypeOrderAlert, Link: orderLink(p.OrderID)}, []message{
			{to: p.RetailerID, subject: "Order " + string(p.Status), body: body},
			{to: p.WholesalerID, subject: "Order " + string(p.Status), body: body},
		}, nil

	case *payloads.InvoiceIssuedEvent:
		amount := formatAmount(p.AmountMinor, p.Currency)
		return Delivery{Type: enums.NotificationTypeInvoiceAlert, Link: invoiceLink(p.InvoiceID)}, []message{
			{
				to:      p.IssuedTo,
				subject: "Invoice " + p.InvoiceNumber,
				body:    fmt.Sprintf("Invoice %s for %s is due for order %s.", p.InvoiceNumber, amount, p.OrderID),
			},
			{
				to:      p.IssuedBy,
				subject: "Invoice " + p.InvoiceNumber + " issued",
				body:    fmt.Sprintf("Invoice %s for %s was issued for order %s.", p.InvoiceNumber, amount, p.OrderID),
			},
		}, nil

	case *payloads.InvoicePaidEvent:
		body := fmt.Sprintf("Invoice %s was paid in full (%s).", p.InvoiceNumber, formatAmount(p.AmountMinor, p.Currency))
		return Delivery{Type: enums.NotificationTypePaymentAlert, Link: invoiceLink(p.InvoiceID)}, []message{
			{to: p.IssuedBy, subject: "Payment received", body: body},
			{to: p.IssuedTo, subject: "Payment confirmed", body: body},
		}, nil
	}
	return Delivery{}, nil, fmt.Errorf("unhandled payload %T", payload)
}

func formatAmount(amountMinor int64, currency enums.Currency) string {
	exp := currency.MinorUnitExponent()
	return fmt.Sprintf("%s %s", currency, decimal.New(amountMinor, -exp).StringFixed(exp))
}

func orderLink(id uuid.UUID) string   { return "/orders/" + id.String() }
func invoiceLink(id uuid.UUID) string { return "/invoices/" + id.String() }
