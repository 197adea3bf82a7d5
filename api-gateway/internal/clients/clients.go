// Package clients wraps the gateway's backend services.
package clients

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/aaronwang/auction-platform/shared/httputil"
	"github.com/aaronwang/auction-platform/shared/models"
)

// AuctionClient talks to the auction store
type AuctionClient struct {
	svc *httputil.ServiceClient
}

// NewAuctionClient creates a client for the auction store at baseURL
func NewAuctionClient(baseURL string, timeout time.Duration) *AuctionClient {
	return &AuctionClient{svc: httputil.NewServiceClient("auction service", baseURL, timeout)}
}

// Create creates an auction
func (c *AuctionClient) Create(ctx context.Context, req models.CreateAuctionRequest) (*models.Auction, error) {
	var env models.AuctionEnvelope
	if _, err := c.svc.Do(ctx, http.MethodPost, "/auctions", req, &env); err != nil {
		return nil, err
	}
	return env.Auction, nil
}

// List returns every auction
func (c *AuctionClient) List(ctx context.Context) ([]*models.Auction, error) {
	var env models.AuctionListEnvelope
	if _, err := c.svc.Do(ctx, http.MethodGet, "/auctions", nil, &env); err != nil {
		return nil, err
	}
	if env.Auctions == nil {
		env.Auctions = []*models.Auction{}
	}
	return env.Auctions, nil
}

// Get returns one auction
func (c *AuctionClient) Get(ctx context.Context, id string) (*models.Auction, error) {
	var env models.AuctionEnvelope
	if _, err := c.svc.Do(ctx, http.MethodGet, "/auctions/"+url.PathEscape(id), nil, &env); err != nil {
		return nil, err
	}
	return env.Auction, nil
}

// Bid commits a bid without comparing it to the current bid
func (c *AuctionClient) Bid(ctx context.Context, id string, req models.StoreBidRequest) (*models.Auction, error) {
	var env models.AuctionEnvelope
	if _, err := c.svc.Do(ctx, http.MethodPost, "/auctions/"+url.PathEscape(id)+"/bid", req, &env); err != nil {
		return nil, err
	}
	return env.Auction, nil
}

// Close closes an auction
func (c *AuctionClient) Close(ctx context.Context, id string) (*models.CloseAuctionResponse, error) {
	var resp models.CloseAuctionResponse
	if _, err := c.svc.Do(ctx, http.MethodPost, "/auctions/"+url.PathEscape(id)+"/close", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidatorClient talks to the bid validator
type ValidatorClient struct {
	svc *httputil.ServiceClient
}

// NewValidatorClient creates a client for the bid validator at baseURL
func NewValidatorClient(baseURL string, timeout time.Duration) *ValidatorClient {
	return &ValidatorClient{svc: httputil.NewServiceClient("bidding service", baseURL, timeout)}
}

// Validate asks the validator for a verdict on a bid
func (c *ValidatorClient) Validate(ctx context.Context, req models.ValidationRequest) (*models.ValidationResult, error) {
	var result models.ValidationResult
	if _, err := c.svc.Do(ctx, http.MethodPost, "/validate", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// HistoryClient talks to the history log
type HistoryClient struct {
	svc *httputil.ServiceClient
}

// NewHistoryClient creates a client for the history log at baseURL
func NewHistoryClient(baseURL string, timeout time.Duration) *HistoryClient {
	return &HistoryClient{svc: httputil.NewServiceClient("history service", baseURL, timeout)}
}

// Append records a history event
func (c *HistoryClient) Append(ctx context.Context, req models.AppendEventRequest) (*models.HistoryEvent, error) {
	var env models.HistoryEnvelope
	if _, err := c.svc.Do(ctx, http.MethodPost, "/events", req, &env); err != nil {
		return nil, err
	}
	return env.Event, nil
}

// List returns the full history
func (c *HistoryClient) List(ctx context.Context) ([]*models.HistoryEvent, error) {
	var env models.HistoryListEnvelope
	if _, err := c.svc.Do(ctx, http.MethodGet, "/events", nil, &env); err != nil {
		return nil, err
	}
	if env.Events == nil {
		env.Events = []*models.HistoryEvent{}
	}
	return env.Events, nil
}
