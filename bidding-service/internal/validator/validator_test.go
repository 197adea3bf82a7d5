package validator

import (
	"testing"

	"github.com/aaronwang/auction-platform/shared/models"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  models.ValidationRequest
		want models.ValidationResult
	}{
		{
			name: "higher bid",
			req:  models.ValidationRequest{Amount: 51, CurrentBid: 50, Bidder: "alice"},
			want: models.ValidationResult{OK: true, Message: MessageAccepted},
		},
		{
			name: "equal bid",
			req:  models.ValidationRequest{Amount: 50, CurrentBid: 50, Bidder: "alice"},
			want: models.ValidationResult{OK: false, Message: MessageTooLow},
		},
		{
			name: "lower bid",
			req:  models.ValidationRequest{Amount: 40, CurrentBid: 50, Bidder: "alice"},
			want: models.ValidationResult{OK: false, Message: MessageTooLow},
		},
		{
			name: "blank bidder",
			req:  models.ValidationRequest{Amount: 60, CurrentBid: 50, Bidder: " "},
			want: models.ValidationResult{OK: false, Message: MessageBidderRequired},
		},
		{
			name: "amount checked before bidder",
			req:  models.ValidationRequest{Amount: 10, CurrentBid: 50},
			want: models.ValidationResult{OK: false, Message: MessageTooLow},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.req))
		})
	}
}
