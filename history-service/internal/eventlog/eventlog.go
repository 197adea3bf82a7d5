// Package eventlog is the append-only auction history.
package eventlog

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aaronwang/auction-platform/shared/apperror"
	"github.com/aaronwang/auction-platform/shared/models"
)

// Log stores history events in insertion order
type Log struct {
	mu     sync.Mutex
	events []*models.HistoryEvent
	now    func() time.Time
}

// New creates an empty log; a nil clock means time.Now
func New(now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{now: now}
}

// Append validates req and stores a new event, returning the stored record
func (l *Log) Append(req models.AppendEventRequest) (*models.HistoryEvent, error) {
	if strings.TrimSpace(req.AuctionID) == "" {
		return nil, apperror.InvalidInput("auction_id is required")
	}
	if !req.EventType.Valid() {
		return nil, apperror.InvalidInput("event_type must be one of created, bid, closed")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	event := &models.HistoryEvent{
		ID:        uuid.New().String(),
		AuctionID: req.AuctionID,
		EventType: req.EventType,
		Payload:   req.Payload,
		Timestamp: models.EpochSeconds(l.now()),
	}
	l.events = append(l.events, event)

	out := *event
	return &out, nil
}

// List returns copies of all events in insertion order
func (l *Log) List() []*models.HistoryEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*models.HistoryEvent, len(l.events))
	for i, e := range l.events {
		cp := *e
		out[i] = &cp
	}
	return out
}
