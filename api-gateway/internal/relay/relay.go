// Package relay forwards event bus traffic to external sinks.
package relay

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aaronwang/auction-platform/api-gateway/internal/events"
)

// Sink receives every message published on the bus
type Sink interface {
	Name() string
	Forward(ctx context.Context, msg events.Message) error
}

// Relay owns one bus subscription and fans it out to its sinks
type Relay struct {
	bus   *events.Bus
	sinks []Sink
	log   *logrus.Entry
}

// New creates a relay. It does nothing until Run is called.
func New(bus *events.Bus, log *logrus.Entry, sinks ...Sink) *Relay {
	return &Relay{bus: bus, sinks: sinks, log: log}
}

// Run subscribes to the bus and forwards messages until ctx is done. Sink
// failures are logged and never retried.
func (r *Relay) Run(ctx context.Context) {
	if len(r.sinks) == 0 {
		return
	}

	sub := r.bus.Subscribe()
	defer r.bus.Unsubscribe(sub)

	for {
		msg, ok, err := sub.Next(ctx, time.Minute)
		if err != nil {
			return
		}
		if !ok {
			continue
		}
		for _, sink := range r.sinks {
			if err := sink.Forward(ctx, msg); err != nil {
				r.log.WithError(err).WithFields(logrus.Fields{
					"sink": sink.Name(),
					"type": msg.Type,
				}).Warn("Failed to forward update")
			}
		}
	}
}
