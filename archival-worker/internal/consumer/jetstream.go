package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"

	"github.com/aaronwang/auction-platform/shared/models"
)

// DurableName is the consumer name the archival worker resumes from
const DurableName = "archival-worker"

// EventStore persists archived history events
type EventStore interface {
	InsertEvent(ctx context.Context, event *models.HistoryEvent) (bool, error)
}

// Message is the part of jetstream.Msg the consumer needs
type Message interface {
	Data() []byte
	Subject() string
	Ack() error
	Nak() error
	TermWithReason(reason string) error
}

// Consumer archives history events delivered by JetStream
type Consumer struct {
	js    jetstream.JetStream
	store EventStore
	log   *logrus.Entry
	cc    jetstream.ConsumeContext
}

// NewConsumer creates a consumer writing to store
func NewConsumer(js jetstream.JetStream, store EventStore, log *logrus.Entry) *Consumer {
	return &Consumer{js: js, store: store, log: log}
}

// Start attaches the durable consumer and processes messages until ctx is done
func (c *Consumer) Start(ctx context.Context) error {
	setupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cons, err := c.js.CreateOrUpdateConsumer(setupCtx, models.HistoryStream, jetstream.ConsumerConfig{
		Durable:       DurableName,
		FilterSubject: models.HistorySubjectPrefix + "*",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    10,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		c.Handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	c.cc = cc
	c.log.WithField("subject", models.HistorySubjectPrefix+"*").Info("Consuming history events")

	<-ctx.Done()
	return nil
}

// Handle archives one message. Malformed messages are terminated so they are
// never redelivered; storage failures are NAK'ed for another attempt.
func (c *Consumer) Handle(ctx context.Context, msg Message) {
	var event models.HistoryEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil || event.ID == "" || event.AuctionID == "" {
		c.log.WithField("subject", msg.Subject()).Warn("Dropping malformed history event")
		if err := msg.TermWithReason("malformed history event"); err != nil {
			c.log.WithError(err).Warn("Failed to terminate message")
		}
		return
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	inserted, err := c.store.InsertEvent(dbCtx, &event)
	if err != nil {
		c.log.WithError(err).WithField("event_id", event.ID).Error("Failed to archive history event")
		if err := msg.Nak(); err != nil {
			c.log.WithError(err).Warn("Failed to NAK message")
		}
		return
	}

	c.log.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"auction_id": event.AuctionID,
		"event_type": event.EventType,
		"duplicate":  !inserted,
	}).Info("Archived history event")

	if err := msg.Ack(); err != nil {
		c.log.WithError(err).Warn("Failed to ack message")
	}
}

// Close stops message delivery
func (c *Consumer) Close() {
	if c.cc != nil {
		c.cc.Stop()
	}
}
