package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/tradelink-backend/pkg/db/models"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
	"github.com/google/uuid"
)

// Sender delivers a message to a single user. Delivery is best effort and
// callers never roll back business state when it fails.
type Sender interface {
	Send(ctx context.Context, to uuid.UUID, subject, body string) error
}

// Delivery carries the event metadata the inbox needs alongside a Send call.
type Delivery struct {
	EventID uuid.UUID
	Type    enums.NotificationType
	Link    string
}

type deliveryKey struct{}

// WithDelivery attaches delivery metadata to ctx for the next Send.
func WithDelivery(ctx context.Context, d Delivery) context.Context {
	return context.WithValue(ctx, deliveryKey{}, d)
}

func deliveryFrom(ctx context.Context) Delivery {
	d, _ := ctx.Value(deliveryKey{}).(Delivery)
	return d
}

// InboxSender stores each message as an in-app notification row.
type InboxSender struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewInboxSender builds a Sender backed by the notifications table.
func NewInboxSender(repo Repository, logg *logger.Logger) (*InboxSender, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &InboxSender{repo: repo, logg: logg, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Send writes the notification. A repeat delivery of the same event to the
// same user is treated as already sent.
func (s *InboxSender) Send(ctx context.Context, to uuid.UUID, subject, body string) error {
	if to == uuid.Nil {
		return fmt.Errorf("recipient required")
	}
	d := deliveryFrom(ctx)
	if d.EventID == uuid.Nil {
		d.EventID = uuid.New()
	}
	if !d.Type.IsValid() {
		d.Type = enums.NotificationTypeOrderAlert
	}

	notification := &models.Notification{
		ID:        uuid.New(),
		UserID:    to,
		EventID:   d.EventID,
		Type:      d.Type,
		Title:     strings.TrimSpace(subject),
		Message:   strings.TrimSpace(body),
		CreatedAt: s.now(),
	}
	if d.Link != "" {
		link := d.Link
		notification.Link = &link
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"recipient_id": to.String(),
		"event_id":     d.EventID.String(),
		"type":         d.Type,
	})
	if err := s.repo.Create(ctx, notification); err != nil {
		if deliveryUniqueConstraint.Violated(err) {
			s.logg.Info(logCtx, "notification already delivered")
			return nil
		}
		return err
	}
	s.logg.Info(logCtx, "notification delivered")
	return nil
}
