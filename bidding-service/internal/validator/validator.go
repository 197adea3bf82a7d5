// Package validator holds the stateless bid acceptance rules.
package validator

import (
	"strings"

	"github.com/aaronwang/auction-platform/shared/models"
)

// Rejection and acceptance messages
const (
	MessageTooLow         = "Bid must exceed current value"
	MessageBidderRequired = "Bidder is required"
	MessageAccepted       = "Bid accepted"
)

// Validate decides whether a bid may be placed. The amount check runs first.
func Validate(req models.ValidationRequest) models.ValidationResult {
	if req.Amount <= req.CurrentBid {
		return models.ValidationResult{OK: false, Message: MessageTooLow}
	}
	if strings.TrimSpace(req.Bidder) == "" {
		return models.ValidationResult{OK: false, Message: MessageBidderRequired}
	}
	return models.ValidationResult{OK: true, Message: MessageAccepted}
}
