package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/aaronwang/auction-platform/shared/apperror"
	"github.com/aaronwang/auction-platform/shared/metrics"
	"github.com/aaronwang/auction-platform/shared/models"
)

// AuctionBackend is the auction store as seen by the gateway
type AuctionBackend interface {
	Create(ctx context.Context, req models.CreateAuctionRequest) (*models.Auction, error)
	List(ctx context.Context) ([]*models.Auction, error)
	Get(ctx context.Context, id string) (*models.Auction, error)
	Bid(ctx context.Context, id string, req models.StoreBidRequest) (*models.Auction, error)
	Close(ctx context.Context, id string) (*models.CloseAuctionResponse, error)
}

// BidValidator decides whether a bid may be committed
type BidValidator interface {
	Validate(ctx context.Context, req models.ValidationRequest) (*models.ValidationResult, error)
}

// HistoryBackend is the append-only history log
type HistoryBackend interface {
	Append(ctx context.Context, req models.AppendEventRequest) (*models.HistoryEvent, error)
	List(ctx context.Context) ([]*models.HistoryEvent, error)
}

// Publisher fans updates out to live subscribers
type Publisher interface {
	Publish(msgType models.UpdateType, payload any)
}

// Orchestrator turns one client action into the ordered backend calls it needs
type Orchestrator struct {
	auctions  AuctionBackend
	validator BidValidator
	history   HistoryBackend
	publisher Publisher
	log       *logrus.Entry
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(auctions AuctionBackend, validator BidValidator, history HistoryBackend, publisher Publisher, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{
		auctions:  auctions,
		validator: validator,
		history:   history,
		publisher: publisher,
		log:       log,
	}
}

// CreateAuction creates an auction, then records and publishes it
func (o *Orchestrator) CreateAuction(ctx context.Context, req models.CreateAuctionRequest) (*models.Auction, error) {
	auction, err := o.auctions.Create(ctx, req)
	if err != nil {
		record("create", err)
		return nil, err
	}

	o.publisher.Publish(models.UpdateAuction, auction)
	o.recordHistory(ctx, models.AppendEventRequest{
		AuctionID: auction.ID,
		EventType: models.EventCreated,
		Payload:   auction.Name,
	})

	record("create", nil)
	return auction, nil
}

// ListAuctions passes through to the auction store
func (o *Orchestrator) ListAuctions(ctx context.Context) ([]*models.Auction, error) {
	return o.auctions.List(ctx)
}

// GetAuction passes through to the auction store
func (o *Orchestrator) GetAuction(ctx context.Context, id string) (*models.Auction, error) {
	return o.auctions.Get(ctx, id)
}

// ListHistory passes through to the history log
func (o *Orchestrator) ListHistory(ctx context.Context) ([]*models.HistoryEvent, error) {
	return o.history.List(ctx)
}

// PlaceBid runs the single-bid workflow:
// 1. Check bidder and amount locally
// 2. Fetch the auction and require it to be OPEN
// 3. Ask the validator whether the amount beats the current bid
// 4. Commit the bid to the auction store
// 5. Record a history event and publish both updates (best effort)
//
// The auction store does not re-check the amount, so two concurrent bids that
// both pass step 3 against the same current bid resolve last-write-wins.
func (o *Orchestrator) PlaceBid(ctx context.Context, auctionID string, req models.BidRequest) (*models.Auction, error) {
	auction, err := o.placeBid(ctx, auctionID, req)
	record("bid", err)
	return auction, err
}

func (o *Orchestrator) placeBid(ctx context.Context, auctionID string, req models.BidRequest) (*models.Auction, error) {
	bidder := strings.TrimSpace(req.Bidder)
	if bidder == "" {
		return nil, apperror.InvalidInput("bidder is required")
	}
	amount, err := models.ParseAmount(req.Amount)
	if err != nil {
		return nil, apperror.InvalidInput("amount must be numeric")
	}
	if amount <= 0 {
		return nil, apperror.InvalidInput("amount must be positive")
	}

	current, err := o.auctions.Get(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.StatusOpen {
		return nil, apperror.Conflict("%s", current.StatusReason)
	}

	verdict, err := o.validator.Validate(ctx, models.ValidationRequest{
		Amount:     amount,
		CurrentBid: current.CurrentBid,
		Bidder:     bidder,
	})
	if err != nil {
		return nil, err
	}
	if !verdict.OK {
		return nil, apperror.Conflict("%s", verdict.Message).WithDetails(map[string]any{
			"ok":      false,
			"message": verdict.Message,
		})
	}

	updated, err := o.auctions.Bid(ctx, auctionID, models.StoreBidRequest{Bidder: bidder, Amount: amount})
	if err != nil {
		return nil, err
	}

	o.publisher.Publish(models.UpdateAuction, updated)
	o.recordHistory(ctx, models.AppendEventRequest{
		AuctionID: auctionID,
		EventType: models.EventBid,
		Payload:   fmt.Sprintf("%s bid $%.2f", bidder, amount),
	})
	return updated, nil
}

// PlaceBids applies each bid in list order so later entries see the current
// bid set by earlier ones. The returned status is 200 when at least one entry
// was accepted and 409 otherwise.
func (o *Orchestrator) PlaceBids(ctx context.Context, auctionID string, req models.BulkBidRequest) (*models.BulkBidResponse, int, error) {
	if len(req.Bids) == 0 {
		return nil, 0, apperror.InvalidInput("bids must be a non-empty list")
	}

	resp := &models.BulkBidResponse{
		Submitted: len(req.Bids),
		Results:   make([]models.BulkBidResult, 0, len(req.Bids)),
	}
	for _, entry := range req.Bids {
		result := models.BulkBidResult{Bidder: entry.Bidder, Amount: entry.Amount}

		auction, err := o.PlaceBid(ctx, auctionID, entry)
		if err != nil {
			appErr, ok := apperror.As(err)
			if !ok {
				appErr = apperror.Internal(err)
			}
			result.Status = appErr.HTTPStatus()
			result.Response = appErr.ResponseBody()
		} else {
			result.Status = http.StatusOK
			result.Response = mustMarshal(models.AuctionEnvelope{Auction: auction})
			resp.Accepted++
		}
		resp.Results = append(resp.Results, result)
	}

	status := http.StatusOK
	if resp.Accepted == 0 {
		status = http.StatusConflict
	}
	o.log.WithFields(logrus.Fields{
		"auction_id": auctionID,
		"submitted":  resp.Submitted,
		"accepted":   resp.Accepted,
	}).Info("Bulk bids applied")
	return resp, status, nil
}

// CloseAuction closes an auction. History and publication happen only when
// the store reports a real OPEN to CLOSED transition.
func (o *Orchestrator) CloseAuction(ctx context.Context, auctionID string) (*models.Auction, error) {
	resp, err := o.auctions.Close(ctx, auctionID)
	if err != nil {
		record("close", err)
		return nil, err
	}

	if resp.Transitioned && resp.Auction != nil {
		o.publisher.Publish(models.UpdateAuction, resp.Auction)
		o.recordHistory(ctx, models.AppendEventRequest{
			AuctionID: auctionID,
			EventType: models.EventClosed,
			Payload:   resp.Auction.HighestBidder,
		})
	}

	record("close", nil)
	return resp.Auction, nil
}

// Snapshot returns every auction and every history event
func (o *Orchestrator) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	auctions, err := o.auctions.List(ctx)
	if err != nil {
		return nil, err
	}
	events, err := o.history.List(ctx)
	if err != nil {
		return nil, err
	}
	return &models.Snapshot{Auctions: auctions, Events: events}, nil
}

// recordHistory appends a history event and publishes it. Failures are logged
// and never fail the primary operation.
func (o *Orchestrator) recordHistory(ctx context.Context, req models.AppendEventRequest) {
	event, err := o.history.Append(ctx, req)
	if err != nil {
		o.log.WithError(err).WithFields(logrus.Fields{
			"auction_id": req.AuctionID,
			"event_type": req.EventType,
		}).Warn("Failed to record history event")
		return
	}
	o.publisher.Publish(models.UpdateHistory, event)
}

func record(flow string, err error) {
	if err == nil {
		metrics.RecordOrchestration(flow, "ok")
		return
	}
	metrics.RecordOrchestration(flow, string(apperror.KindOf(err)))
}

func mustMarshal(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{"error":"internal error"}`)
	}
	return raw
}
