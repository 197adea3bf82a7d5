package models

// UpdateType names a message on the live update stream
type UpdateType string

// UpdateType constants
const (
	UpdateSnapshot UpdateType = "snapshot"
	UpdateAuction  UpdateType = "auction"
	UpdateHistory  UpdateType = "history"
	UpdatePing     UpdateType = "ping"
)

// Snapshot is the full state sent once when a stream client connects
type Snapshot struct {
	Auctions []*Auction      `json:"auctions"`
	Events   []*HistoryEvent `json:"events"`
}

// AuctionUpdate is the message mirrored to Redis for the broadcast service.
// Payload is either an *Auction or a *HistoryEvent depending on Type.
type AuctionUpdate struct {
	Type      UpdateType `json:"type"`
	AuctionID string     `json:"auction_id"`
	Payload   any        `json:"payload"`
}

// WinnerNotification is published when an auction closes with a winner
type WinnerNotification struct {
	AuctionID string  `json:"auction_id"`
	Winner    string  `json:"winner"`
	Amount    float64 `json:"amount"`
	ClosedAt  float64 `json:"closed_at"`
	Message   string  `json:"message"`
}

// Names shared by the gateway relay and its downstream consumers
const (
	// UpdateChannelPrefix + auction id is the Redis pub/sub channel for updates
	UpdateChannelPrefix = "auction_events:"
	// LatestKeyPrefix + auction id holds the last auction state mirrored to Redis
	LatestKeyPrefix = "auction_latest:"

	// HistoryStream is the JetStream stream archiving history events
	HistoryStream = "AUCTION_EVENTS"
	// HistorySubjectPrefix + auction id is the JetStream subject for history events
	HistorySubjectPrefix = "auction.events."
	// WinnerSubjectPrefix + auction id is the NATS subject for winner notifications
	WinnerSubjectPrefix = "auction.winner."
)

// AuctionIDOf returns the auction a bus payload belongs to
func AuctionIDOf(payload any) string {
	switch p := payload.(type) {
	case *Auction:
		return p.ID
	case *HistoryEvent:
		return p.AuctionID
	}
	return ""
}
