package models

// EventType identifies a history event
type EventType string

// EventType constants
const (
	EventCreated EventType = "created"
	EventBid     EventType = "bid"
	EventClosed  EventType = "closed"
)

// Valid reports whether t is a known event type
func (t EventType) Valid() bool {
	switch t {
	case EventCreated, EventBid, EventClosed:
		return true
	}
	return false
}

// HistoryEvent is an immutable record in the append-only history log.
// For closed events the payload is the final highest bidder.
type HistoryEvent struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auction_id"`
	EventType EventType `json:"event_type"`
	Payload   string    `json:"payload"`
	Timestamp float64   `json:"timestamp"`
}

// AppendEventRequest is the body accepted by the history log
type AppendEventRequest struct {
	AuctionID string    `json:"auction_id"`
	EventType EventType `json:"event_type"`
	Payload   string    `json:"payload"`
}

// HistoryEnvelope wraps a single history event in responses
type HistoryEnvelope struct {
	Event *HistoryEvent `json:"event"`
}

// HistoryListEnvelope wraps the full history in responses
type HistoryListEnvelope struct {
	Events []*HistoryEvent `json:"events"`
}
