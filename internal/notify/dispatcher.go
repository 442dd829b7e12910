package notify

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/bottlerun/exchange-api/internal/core/domain"
	"github.com/bottlerun/exchange-api/internal/metrics"
)

const (
	resultDelivered = "delivered"
	resultOffline   = "offline"
	resultDropped   = "dropped"
)

// Dispatcher fans lifecycle events out to registered channels. Delivery is
// best-effort: failures are logged and counted, never returned.
type Dispatcher struct {
	registry *Registry
	logger   zerolog.Logger
}

func NewDispatcher(registry *Registry, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger}
}

// NotifyUser sends the event to userID's channel, if any.
func (d *Dispatcher) NotifyUser(_ context.Context, userID int64, event domain.EventType, payload any) {
	data, ok := d.encode(event, payload)
	if !ok {
		return
	}

	ch, ok := d.registry.Lookup(userID)
	if !ok {
		metrics.NotificationsTotal.WithLabelValues(string(event), resultOffline).Inc()
		d.logger.Debug().Int64("user_id", userID).Str("event", string(event)).Msg("recipient offline")
		return
	}
	d.deliver(ch, event, data)
}

// BroadcastRole sends the event to every open channel of users with role.
// One failing channel does not affect the others.
func (d *Dispatcher) BroadcastRole(_ context.Context, role domain.Role, event domain.EventType, payload any) {
	data, ok := d.encode(event, payload)
	if !ok {
		return
	}

	channels := d.registry.LookupByRole(role)
	for _, ch := range channels {
		d.deliver(ch, event, data)
	}
	d.logger.Debug().Str("role", string(role)).Str("event", string(event)).Int("recipients", len(channels)).Msg("broadcast")
}

func (d *Dispatcher) encode(event domain.EventType, payload any) ([]byte, bool) {
	data, err := json.Marshal(domain.Envelope{Type: event, Payload: payload})
	if err != nil {
		d.logger.Error().Err(err).Str("event", string(event)).Msg("failed to encode notification")
		return nil, false
	}
	return data, true
}

func (d *Dispatcher) deliver(ch Channel, event domain.EventType, data []byte) {
	if err := ch.Send(data); err != nil {
		metrics.NotificationsTotal.WithLabelValues(string(event), resultDropped).Inc()
		lvl := d.logger.Warn()
		if errors.Is(err, ErrChannelClosed) {
			lvl = d.logger.Debug()
		}
		lvl.Err(err).Str("conn_id", ch.ID()).Str("event", string(event)).Msg("notification dropped")
		return
	}
	metrics.NotificationsTotal.WithLabelValues(string(event), resultDelivered).Inc()
}
