package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"

	"github.com/aaronwang/auction-platform/api-gateway/internal/events"
	"github.com/aaronwang/auction-platform/shared/models"
	"github.com/aaronwang/auction-platform/shared/streaming"
)

// StreamPublisher is the part of jetstream.JetStream the archive uses
type StreamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// CorePublisher is the part of *nats.Conn the archive uses
type CorePublisher interface {
	Publish(subject string, data []byte) error
}

// Archive sends history events to JetStream for archival and announces
// auction winners on plain NATS subjects
type Archive struct {
	js  StreamPublisher
	nc  CorePublisher
	log *logrus.Entry
}

// Connect dials NATS, makes sure the history stream exists, and returns an
// archive publishing to it
func Connect(ctx context.Context, url string, log *logrus.Entry) (*Archive, *nats.Conn, error) {
	nc, js, err := streaming.Connect(ctx, url, "api-gateway")
	if err != nil {
		return nil, nil, err
	}
	log.WithField("stream", models.HistoryStream).Info("JetStream stream ready")

	return NewArchive(js, nc, log), nc, nil
}

// NewArchive creates an archive over existing publishers
func NewArchive(js StreamPublisher, nc CorePublisher, log *logrus.Entry) *Archive {
	return &Archive{js: js, nc: nc, log: log}
}

// Name identifies the sink in logs
func (a *Archive) Name() string { return "nats" }

// Forward archives history events and announces winners of closed auctions
func (a *Archive) Forward(ctx context.Context, msg events.Message) error {
	switch payload := msg.Payload.(type) {
	case *models.HistoryEvent:
		return a.archive(ctx, payload)
	case *models.Auction:
		if payload.Status == models.StatusClosed && payload.HighestBidder != "" {
			return a.announceWinner(payload)
		}
	}
	return nil
}

func (a *Archive) archive(ctx context.Context, event *models.HistoryEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	subject := models.HistorySubjectPrefix + event.AuctionID
	ack, err := a.js.Publish(ctx, subject, data, jetstream.WithMsgID(event.ID))
	if err != nil {
		return fmt.Errorf("failed to publish to JetStream: %w", err)
	}

	a.log.WithFields(logrus.Fields{
		"subject": subject,
		"seq":     ack.Sequence,
	}).Debug("Archived history event")
	return nil
}

func (a *Archive) announceWinner(auction *models.Auction) error {
	note := models.WinnerNotification{
		AuctionID: auction.ID,
		Winner:    auction.HighestBidder,
		Amount:    auction.CurrentBid,
		ClosedAt:  auction.ClosingTime,
		Message:   "Winner: " + auction.HighestBidder + " for $" + strconv.FormatFloat(auction.CurrentBid, 'f', 2, 64),
	}
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := a.nc.Publish(models.WinnerSubjectPrefix+auction.ID, data); err != nil {
		return fmt.Errorf("failed to publish winner: %w", err)
	}
	a.log.WithField("auction_id", auction.ID).Info(note.Message)
	return nil
}
