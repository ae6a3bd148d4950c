package observability

import (
	"coverpool/core/events"
	"coverpool/native/swaporder"
	"coverpool/native/treasury"
	"coverpool/observability/metrics"
)

// MeteredEmitter decorates an event emitter with prometheus counters so every
// engine event is both forwarded and counted.
type MeteredEmitter struct {
	next events.Emitter
}

// NewMeteredEmitter wraps next. A nil next still counts events.
func NewMeteredEmitter(next events.Emitter) *MeteredEmitter {
	return &MeteredEmitter{next: next}
}

func (m *MeteredEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	registry := metrics.Pool()
	switch evt.EventType() {
	case treasury.EventTypeTokensBought:
		registry.ObserveTokensBought()
	case treasury.EventTypeTokensSold:
		registry.ObserveTokensSold()
	case treasury.EventTypePayoutSent:
		registry.ObservePayoutSent()
	case swaporder.EventTypeSwapRequested:
		registry.ObserveSwapRequest("accepted")
	case swaporder.EventTypeSwapRequestSupersede:
		registry.ObserveSwapRequest("superseded")
	case swaporder.EventTypeOrderPlaced:
		registry.ObserveOrderPlaced()
	case swaporder.EventTypeOrderClosed:
		registry.ObserveOrderClosed()
	case swaporder.EventTypeAssetRecovered:
		registry.ObserveAssetRecovered()
	}
	if m != nil && m.next != nil {
		m.next.Emit(evt)
	}
}
