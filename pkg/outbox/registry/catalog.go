package registry

import (
	"encoding/json"

	"github.com/angelmondragon/tradelink-backend/pkg/config"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox/payloads"
)

type decodeFunc func(json.RawMessage) (any, error)

// eventDef describes one event type at one payload version. A new payload
// version is a new row; old rows stay until nothing emits them.
type eventDef struct {
	eventType enums.OutboxEventType
	aggregate enums.OutboxAggregateType
	version   int
	topic     func(config.PubSubConfig) string
	decode    decodeFunc
}

func ordersTopic(cfg config.PubSubConfig) string   { return cfg.OrdersTopic }
func invoicesTopic(cfg config.PubSubConfig) string { return cfg.InvoicesTopic }

var catalog = []eventDef{
	{enums.EventOrderPlaced, enums.AggregateOrder, 1, ordersTopic, decodeInto[payloads.OrderPlacedEvent]},
	{enums.EventOrderStatusChanged, enums.AggregateOrder, 1, ordersTopic, decodeInto[payloads.OrderStatusChangedEvent]},
	{enums.EventInvoiceIssued, enums.AggregateInvoice, 1, invoicesTopic, decodeInto[payloads.InvoiceIssuedEvent]},
	{enums.EventInvoicePaid, enums.AggregateInvoice, 1, invoicesTopic, decodeInto[payloads.InvoicePaidEvent]},
}

func decodeInto[T any](data json.RawMessage) (any, error) {
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}
