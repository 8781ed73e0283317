package enums

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateInvoice OutboxAggregateType = "invoice"
)

var aggregateTypes = []OutboxAggregateType{AggregateOrder, AggregateInvoice}

func (a OutboxAggregateType) IsValid() bool { return known(a, aggregateTypes) }

func ParseOutboxAggregateType(raw string) (OutboxAggregateType, error) {
	return parse("aggregate type", raw, aggregateTypes)
}

// OutboxEventType is also the Pub/Sub event_type attribute.
type OutboxEventType string

const (
	EventOrderPlaced        OutboxEventType = "order_placed"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventInvoiceIssued      OutboxEventType = "invoice_issued"
	EventInvoicePaid        OutboxEventType = "invoice_paid"
)

var eventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderStatusChanged,
	EventInvoiceIssued,
	EventInvoicePaid,
}

func (e OutboxEventType) IsValid() bool { return known(e, eventTypes) }

func ParseOutboxEventType(raw string) (OutboxEventType, error) {
	return parse("event type", raw, eventTypes)
}

// DLQReason explains why an outbox row stopped being retried.
type DLQReason string

const (
	// DLQReasonInvalidEvent: the row could not be decoded or does not match
	// its registered aggregate.
	DLQReasonInvalidEvent DLQReason = "invalid_event"
	// DLQReasonNoRoute: no publisher exists for the event's topic.
	DLQReasonNoRoute DLQReason = "no_route"
	// DLQReasonRejected: the broker refused the message permanently.
	DLQReasonRejected    DLQReason = "rejected"
	DLQReasonMaxAttempts DLQReason = "max_attempts"
)

var dlqReasons = []DLQReason{DLQReasonInvalidEvent, DLQReasonNoRoute, DLQReasonRejected, DLQReasonMaxAttempts}

func (r DLQReason) IsValid() bool { return known(r, dlqReasons) }
