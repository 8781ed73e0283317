package registry

import (
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/tradelink-backend/pkg/enums"
)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps (event type, envelope version) to a payload decoder.
// It is filled once at startup and read concurrently afterwards.
type DecoderRegistry struct {
	decoders map[decoderKey]decodeFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: map[decoderKey]decodeFunc{}}
}

// Register must not be called once Decode is in use.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decode func(json.RawMessage) (any, error)) {
	r.decoders[decoderKey{eventType, version}] = decode
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	decode, ok := r.decoders[decoderKey{eventType, version}]
	if !ok {
		return nil, fmt.Errorf("no decoder for %s version %d", eventType, version)
	}
	return decode(data)
}

// NewTradeDecoders covers every event in the catalog.
func NewTradeDecoders() *DecoderRegistry {
	r := NewDecoderRegistry()
	for _, s := range catalog {
		r.Register(s.eventType, s.version, s.decode)
	}
	return r
}
