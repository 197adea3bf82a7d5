package models

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Bid represents a single accepted bid on an auction
type Bid struct {
	Bidder    string  `json:"bidder"`
	Amount    float64 `json:"amount"`
	Timestamp float64 `json:"timestamp"`
}

// BidRequest represents the incoming bid request from API.
// Amount is kept raw so a non-numeric value fails only its own entry
// in a bulk submission.
type BidRequest struct {
	Bidder string          `json:"bidder"`
	Amount json.RawMessage `json:"amount"`
}

// StoreBidRequest is the body the auction store accepts for a bid
type StoreBidRequest struct {
	Bidder string  `json:"bidder"`
	Amount float64 `json:"amount"`
}

// BulkBidRequest represents a list of bids applied in order
type BulkBidRequest struct {
	Bids []BidRequest `json:"bids"`
}

// UnmarshalJSON decodes the bid list leniently: an entry that is not an
// object, or whose bidder is not a string, decodes with an empty bidder so
// it fails on its own instead of failing the whole submission.
func (r *BulkBidRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Bids []json.RawMessage `json:"bids"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Bids == nil {
		r.Bids = nil
		return nil
	}
	r.Bids = make([]BidRequest, len(raw.Bids))
	for i, entry := range raw.Bids {
		r.Bids[i] = decodeBulkEntry(entry)
	}
	return nil
}

func decodeBulkEntry(entry json.RawMessage) BidRequest {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil {
		return BidRequest{}
	}
	var req BidRequest
	_ = json.Unmarshal(fields["bidder"], &req.Bidder)
	req.Amount = fields["amount"]
	return req
}

// BulkBidResult is the outcome of one entry in a bulk submission
type BulkBidResult struct {
	Bidder   string          `json:"bidder"`
	Amount   json.RawMessage `json:"amount"`
	Status   int             `json:"status"`
	Response json.RawMessage `json:"response"`
}

// BulkBidResponse represents the API response for a bulk submission
type BulkBidResponse struct {
	Submitted int             `json:"submitted"`
	Accepted  int             `json:"accepted"`
	Results   []BulkBidResult `json:"results"`
}

// ValidationRequest is sent to the bid validator
type ValidationRequest struct {
	Amount     float64 `json:"amount"`
	CurrentBid float64 `json:"current_bid"`
	Bidder     string  `json:"bidder"`
}

// ValidationResult is the bid validator's verdict
type ValidationResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// ErrAmountNotNumeric is returned by ParseAmount for values that are not numbers
var ErrAmountNotNumeric = errors.New("amount must be numeric")

// ParseAmount accepts a JSON number or a numeric string. NaN and the
// infinities are not amounts.
func ParseAmount(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, ErrAmountNotNumeric
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, ErrAmountNotNumeric
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, ErrAmountNotNumeric
	}
	return n, nil
}
