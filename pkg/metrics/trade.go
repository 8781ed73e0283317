package metrics

import "github.com/prometheus/client_golang/prometheus"

// Reservation results recorded by the inventory ledger.
const (
	ReservationReserved          = "reserved"
	ReservationInsufficientStock = "insufficient_stock"
	ReservationMOQNotMet         = "moq_not_met"
	ReservationNotFound          = "not_found"
	ReservationWrongWholesaler   = "wrong_wholesaler"
	ReservationReleased          = "released"
	ReservationError             = "error"
)

// InventoryMetrics counts reservation outcomes per result.
type InventoryMetrics struct {
	reservations *prometheus.CounterVec
}

// NewInventoryMetrics registers the inventory metrics on the provided registerer.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tradelink_inventory_reservations_total",
		Help: "Inventory reservation attempts by result.",
	}, []string{"result"})
	reg.MustRegister(reservations)
	return &InventoryMetrics{reservations: reservations}
}

// ObserveReservation increments the counter for result.
func (m *InventoryMetrics) ObserveReservation(result string) {
	if m == nil || m.reservations == nil {
		return
	}
	m.reservations.WithLabelValues(normalizeLabel(result)).Inc()
}

// PaymentMetrics tracks intent creation and confirmation outcomes. Signature
// mismatches get a dedicated counter so they can be alerted on.
type PaymentMetrics struct {
	intents           *prometheus.CounterVec
	confirmations     *prometheus.CounterVec
	signatureMismatch prometheus.Counter
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	intents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tradelink_payment_intents_total",
		Help: "Payment intent requests by result.",
	}, []string{"result"})
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tradelink_payment_confirmations_total",
		Help: "Payment confirmations by result.",
	}, []string{"result"})
	mismatch := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tradelink_payment_signature_mismatch_total",
		Help: "Payment confirmations rejected because the signature did not verify.",
	})
	reg.MustRegister(intents, confirmations, mismatch)
	return &PaymentMetrics{
		intents:           intents,
		confirmations:     confirmations,
		signatureMismatch: mismatch,
	}
}

// ObserveIntent increments the intent counter for result.
func (m *PaymentMetrics) ObserveIntent(result string) {
	if m == nil || m.intents == nil {
		return
	}
	m.intents.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveConfirmation increments the confirmation counter for result.
func (m *PaymentMetrics) ObserveConfirmation(result string) {
	if m == nil || m.confirmations == nil {
		return
	}
	m.confirmations.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncSignatureMismatch records a rejected signature.
func (m *PaymentMetrics) IncSignatureMismatch() {
	if m == nil || m.signatureMismatch == nil {
		return
	}
	m.signatureMismatch.Inc()
}

// OutboxMetrics tracks the publisher loop.
type OutboxMetrics struct {
	published  *prometheus.CounterVec
	failed     *prometheus.CounterVec
	deadLetter *prometheus.CounterVec
}

// NewOutboxMetrics registers the outbox publisher metrics.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tradelink_outbox_published_total",
		Help: "Outbox events published by event type.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tradelink_outbox_publish_failures_total",
		Help: "Outbox publish attempts that failed, by event type.",
	}, []string{"event_type"})
	deadLetter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tradelink_outbox_dead_lettered_total",
		Help: "Outbox events moved to the DLQ, by event type.",
	}, []string{"event_type"})
	reg.MustRegister(published, failed, deadLetter)
	return &OutboxMetrics{published: published, failed: failed, deadLetter: deadLetter}
}

func (m *OutboxMetrics) IncPublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncDeadLettered(eventType string) {
	if m == nil || m.deadLetter == nil {
		return
	}
	m.deadLetter.WithLabelValues(normalizeLabel(eventType)).Inc()
}
