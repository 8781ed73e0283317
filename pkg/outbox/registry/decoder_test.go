package registry

import (
	"encoding/json"
	"testing"

	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	"github.com/angelmondragon/tradelink-backend/pkg/outbox/payloads"
	"github.com/stretchr/testify/require"
)

func TestDecoderRegistry(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventOrderStatusChanged, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded payloads.OrderStatusChangedEvent
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})

	input := json.RawMessage(`{"status":"shipped","previous_status":"confirmed"}`)
	output, err := reg.Decode(enums.EventOrderStatusChanged, 1, input)
	require.NoError(t, err)

	decoded, ok := output.(payloads.OrderStatusChangedEvent)
	require.True(t, ok)
	require.Equal(t, enums.OrderStatusShipped, decoded.Status)
	require.Equal(t, enums.OrderStatusConfirmed, decoded.PreviousStatus)
}

func TestDecoderRegistryUnknownVersion(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventInvoicePaid, 1, func(json.RawMessage) (interface{}, error) { return nil, nil })

	_, err := reg.Decode(enums.EventInvoicePaid, 2, json.RawMessage(`{}`))
	require.Error(t, err)
}

func TestTradeDecodersCoverEveryEvent(t *testing.T) {
	reg := NewTradeDecoders()

	out, err := reg.Decode(enums.EventInvoicePaid, 1, json.RawMessage(`{"invoice_number":"INV-1","amount_minor":400}`))
	require.NoError(t, err)
	paid, ok := out.(*payloads.InvoicePaidEvent)
	require.True(t, ok)
	require.Equal(t, "INV-1", paid.InvoiceNumber)
	require.Equal(t, int64(400), paid.AmountMinor)

	for _, eventType := range []enums.OutboxEventType{enums.EventOrderPlaced, enums.EventOrderStatusChanged, enums.EventInvoiceIssued} {
		_, err := reg.Decode(eventType, 1, json.RawMessage(`{}`))
		require.NoError(t, err, eventType)
	}

	_, err = reg.Decode(enums.EventOrderPlaced, 1, json.RawMessage(`not-json`))
	require.Error(t, err)
}
