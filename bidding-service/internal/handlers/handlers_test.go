package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aaronwang/auction-platform/shared/logging"
	"github.com/stretchr/testify/assert"
)

func TestValidateEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantBody string
	}{
		{
			name:     "accepted",
			body:     `{"amount":60,"current_bid":50,"bidder":"alice"}`,
			wantCode: http.StatusOK,
			wantBody: `{"ok":true,"message":"Bid accepted"}`,
		},
		{
			name:     "too low",
			body:     `{"amount":50,"current_bid":50,"bidder":"alice"}`,
			wantCode: http.StatusOK,
			wantBody: `{"ok":false,"message":"Bid must exceed current value"}`,
		},
		{
			name:     "malformed",
			body:     `{"amount":`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"Invalid JSON"}`,
		},
	}

	router := NewHandler(logging.Discard()).SetupRoutes()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/validate", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}
