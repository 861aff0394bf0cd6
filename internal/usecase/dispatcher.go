package usecase

import (
	"context"
	"errors"

	"line-assistant/internal/domain"
	"line-assistant/internal/observability"
)

// EventHandler answers one inbound event.
type EventHandler func(ctx context.Context, ev domain.InboundEvent) error

// EventLedger records webhook event ids that have already been answered.
// Claim reports false when the id was claimed before.
type EventLedger interface {
	Claim(ctx context.Context, webhookEventID string) (bool, error)
}

// DispatchResult counts what happened to the events of one callback.
type DispatchResult struct {
	Handled    int
	Ignored    int
	Duplicates int
	Failed     int
}

// Dispatcher maps event type tags to handlers. The mapping is fixed at
// construction; events run sequentially in delivery order.
type Dispatcher struct {
	handlers map[domain.EventType]EventHandler
	ledger   EventLedger
}

// NewDispatcher wires text message events to messages. ledger may be nil, in
// which case redelivered events are answered again.
func NewDispatcher(messages *MessageService, ledger EventLedger) (*Dispatcher, error) {
	if messages == nil {
		return nil, errors.New("usecase: message service must not be nil")
	}
	return &Dispatcher{
		handlers: map[domain.EventType]EventHandler{
			domain.EventTextMessage: messages.HandleText,
		},
		ledger: ledger,
	}, nil
}

// Dispatch runs the handler of every event. Handler failures are logged and do
// not stop the remaining events.
func (d *Dispatcher) Dispatch(ctx context.Context, events []domain.InboundEvent) DispatchResult {
	log := observability.LoggerFromContext(ctx)
	var res DispatchResult

	for _, ev := range events {
		handle, ok := d.handlers[ev.Type]
		if !ok {
			log.Debug("ignoring event", "type", string(ev.Type), "webhook_event_id", ev.WebhookEventID)
			res.Ignored++
			continue
		}
		if !d.claim(ctx, ev) {
			log.Info("skipping already answered event", "webhook_event_id", ev.WebhookEventID, "redelivery", ev.Redelivery)
			res.Duplicates++
			continue
		}
		if err := handle(ctx, ev); err != nil {
			log.Error("failed to answer event", "webhook_event_id", ev.WebhookEventID, "err", err)
			res.Failed++
			continue
		}
		res.Handled++
	}
	return res
}

// claim reports whether ev should be answered. Ledger failures fail open.
func (d *Dispatcher) claim(ctx context.Context, ev domain.InboundEvent) bool {
	if d.ledger == nil || ev.WebhookEventID == "" {
		return true
	}
	claimed, err := d.ledger.Claim(ctx, ev.WebhookEventID)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("event ledger unavailable", "webhook_event_id", ev.WebhookEventID, "err", err)
		return true
	}
	return claimed
}
