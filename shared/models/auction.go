package models

import "time"

// AuctionStatus is the lifecycle state of an auction
type AuctionStatus string

// AuctionStatus constants
const (
	StatusOpen   AuctionStatus = "OPEN"
	StatusEnded  AuctionStatus = "ENDED"
	StatusClosed AuctionStatus = "CLOSED"
)

// Status reasons reported alongside the status
const (
	ReasonOpen   = "Open for bids"
	ReasonEnded  = "Bid time ended"
	ReasonClosed = "Closed manually"
)

// Terminal reports whether no further transitions are possible from s
func (s AuctionStatus) Terminal() bool {
	return s == StatusEnded || s == StatusClosed
}

// Auction represents an auction item and its bidding state.
// Times are epoch seconds so the wire format matches what the frontend expects;
// a ClosingTime of 0 means the auction never expires.
type Auction struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	StartingBid     float64       `json:"starting_bid"`
	CurrentBid      float64       `json:"current_bid"`
	HighestBidder   string        `json:"highest_bidder"`
	DurationSeconds int64         `json:"duration_seconds"`
	Status          AuctionStatus `json:"status"`
	StatusReason    string        `json:"status_reason"`
	ClosingTime     float64       `json:"closing_time"`
	Bids            []Bid         `json:"bids"`
}

// Clone returns a deep copy so callers never share the bid slice with the store
func (a *Auction) Clone() *Auction {
	if a == nil {
		return nil
	}
	out := *a
	out.Bids = make([]Bid, len(a.Bids))
	copy(out.Bids, a.Bids)
	return &out
}

// CreateAuctionRequest is the body accepted by the create endpoints.
// DurationSeconds is a float so that non-integer values can be rejected
// explicitly instead of failing the whole decode.
type CreateAuctionRequest struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	StartingBid     float64  `json:"starting_bid"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
}

// AuctionEnvelope wraps a single auction in responses
type AuctionEnvelope struct {
	Auction *Auction `json:"auction"`
}

// AuctionListEnvelope wraps a list of auctions in responses
type AuctionListEnvelope struct {
	Auctions []*Auction `json:"auctions"`
}

// CloseAuctionResponse is returned by the auction store's close endpoint.
// Transitioned is false when the call was an idempotent no-op.
type CloseAuctionResponse struct {
	Auction      *Auction `json:"auction"`
	Transitioned bool     `json:"transitioned"`
}

// EpochSeconds converts t into fractional unix seconds
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
