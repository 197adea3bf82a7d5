package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    float64
		wantErr bool
	}{
		{name: "number", raw: `12.5`, want: 12.5},
		{name: "numeric string", raw: `" 7 "`, want: 7},
		{name: "negative stays parseable", raw: `-3`, want: -3},
		{name: "missing", raw: ``, wantErr: true},
		{name: "null", raw: `null`, wantErr: true},
		{name: "text", raw: `"lots"`, wantErr: true},
		{name: "bool", raw: `true`, wantErr: true},
		{name: "infinity", raw: `"Inf"`, wantErr: true},
		{name: "signed infinity", raw: `"-Inf"`, wantErr: true},
		{name: "nan", raw: `"NaN"`, wantErr: true},
		{name: "overflow", raw: `"1e400"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrAmountNotNumeric)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBulkBidRequestDecodesEntriesLeniently(t *testing.T) {
	var req BulkBidRequest
	err := json.Unmarshal([]byte(`{"bids":[1,"x",null,{"bidder":7,"amount":3},{"bidder":"a","amount":"5"}]}`), &req)
	require.NoError(t, err)

	require.Len(t, req.Bids, 5)
	for _, entry := range req.Bids[:3] {
		assert.Empty(t, entry.Bidder)
		assert.Nil(t, entry.Amount)
	}
	assert.Empty(t, req.Bids[3].Bidder)
	assert.JSONEq(t, `3`, string(req.Bids[3].Amount))
	assert.Equal(t, "a", req.Bids[4].Bidder)
	assert.JSONEq(t, `"5"`, string(req.Bids[4].Amount))
}

func TestBulkBidRequestRejectsNonList(t *testing.T) {
	var req BulkBidRequest
	err := json.Unmarshal([]byte(`{"bids":"nope"}`), &req)

	var typeErr *json.UnmarshalTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "bids", typeErr.Field)
}

func TestBulkBidRequestMissingList(t *testing.T) {
	var req BulkBidRequest
	require.NoError(t, json.Unmarshal([]byte(`{}`), &req))
	assert.Empty(t, req.Bids)
}
