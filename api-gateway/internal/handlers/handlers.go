package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/aaronwang/auction-platform/api-gateway/internal/events"
	"github.com/aaronwang/auction-platform/shared/httputil"
	"github.com/aaronwang/auction-platform/shared/metrics"
	"github.com/aaronwang/auction-platform/shared/models"
)

// DefaultKeepAlive is how long the update stream waits before sending a ping
const DefaultKeepAlive = 15 * time.Second

// Gateway is the orchestration layer the handlers drive
type Gateway interface {
	CreateAuction(ctx context.Context, req models.CreateAuctionRequest) (*models.Auction, error)
	ListAuctions(ctx context.Context) ([]*models.Auction, error)
	GetAuction(ctx context.Context, id string) (*models.Auction, error)
	PlaceBid(ctx context.Context, auctionID string, req models.BidRequest) (*models.Auction, error)
	PlaceBids(ctx context.Context, auctionID string, req models.BulkBidRequest) (*models.BulkBidResponse, int, error)
	CloseAuction(ctx context.Context, auctionID string) (*models.Auction, error)
	ListHistory(ctx context.Context) ([]*models.HistoryEvent, error)
	Snapshot(ctx context.Context) (*models.Snapshot, error)
}

// Options tunes the public surface
type Options struct {
	KeepAlive time.Duration
	// RateLimitRPS of 0 disables rate limiting
	RateLimitRPS   float64
	RateLimitBurst int
}

// Handler contains HTTP request handlers
type Handler struct {
	gateway   Gateway
	bus       *events.Bus
	keepAlive time.Duration
	limiter   *RateLimiter
	log       *logrus.Entry
}

// NewHandler creates a new HTTP handler
func NewHandler(gateway Gateway, bus *events.Bus, opts Options, log *logrus.Entry) *Handler {
	h := &Handler{
		gateway:   gateway,
		bus:       bus,
		keepAlive: opts.KeepAlive,
		log:       log,
	}
	if h.keepAlive <= 0 {
		h.keepAlive = DefaultKeepAlive
	}
	if opts.RateLimitRPS > 0 {
		h.limiter = NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst, log)
	}
	return h
}

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", httputil.HealthHandler("api-gateway")).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auctions", h.CreateAuction).Methods(http.MethodPost)
	api.HandleFunc("/auctions", h.ListAuctions).Methods(http.MethodGet)
	api.HandleFunc("/auctions/{id}", h.GetAuction).Methods(http.MethodGet)
	api.HandleFunc("/auctions/{id}/bid", h.PlaceBid).Methods(http.MethodPost)
	api.HandleFunc("/auctions/{id}/bids/bulk", h.PlaceBids).Methods(http.MethodPost)
	api.HandleFunc("/auctions/{id}/close", h.CloseAuction).Methods(http.MethodPost)
	api.HandleFunc("/history", h.ListHistory).Methods(http.MethodGet)
	api.HandleFunc("/updates/stream", h.StreamUpdates).Methods(http.MethodGet)
	if h.limiter != nil {
		api.Use(h.limiter.Handler)
	}

	router.Use(httputil.RecoverMiddleware(h.log))
	router.Use(httputil.LoggingMiddleware(h.log))
	router.Use(httputil.CORSMiddleware)
	router.Use(metrics.Middleware)

	return router
}

// CreateAuction creates an auction through the orchestrator
func (h *Handler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAuctionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, err)
		return
	}

	auction, err := h.gateway.CreateAuction(r.Context(), req)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, models.AuctionEnvelope{Auction: auction})
}

// ListAuctions returns every auction
func (h *Handler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	auctions, err := h.gateway.ListAuctions(r.Context())
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.AuctionListEnvelope{Auctions: auctions})
}

// GetAuction returns one auction
func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	auction, err := h.gateway.GetAuction(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.AuctionEnvelope{Auction: auction})
}

// PlaceBid handles a single bid
func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	var req models.BidRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, err)
		return
	}

	auction, err := h.gateway.PlaceBid(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.AuctionEnvelope{Auction: auction})
}

// PlaceBids handles an ordered list of bids
func (h *Handler) PlaceBids(w http.ResponseWriter, r *http.Request) {
	var req models.BulkBidRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, err)
		return
	}

	resp, status, err := h.gateway.PlaceBids(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, status, resp)
}

// CloseAuction closes an auction
func (h *Handler) CloseAuction(w http.ResponseWriter, r *http.Request) {
	auction, err := h.gateway.CloseAuction(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.AuctionEnvelope{Auction: auction})
}

// ListHistory returns the full history log
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.gateway.ListHistory(r.Context())
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.HistoryListEnvelope{Events: history})
}

// StreamUpdates serves the live update stream as server-sent events: a
// snapshot first, then every published message in order, with a ping
// whenever the stream has been idle for the keep-alive interval.
func (h *Handler) StreamUpdates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Subscribe before the snapshot so nothing published in between is lost
	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	snapshot, err := h.gateway.Snapshot(ctx)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}

	rc := http.NewResponseController(w)
	// The server write timeout would otherwise cut the stream
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, rc, models.UpdateSnapshot, snapshot); err != nil {
		return
	}

	for {
		msg, ok, err := sub.Next(ctx, h.keepAlive)
		if err != nil {
			return
		}
		if !ok {
			msg = events.Message{Type: models.UpdatePing, Payload: map[string]float64{"timestamp": models.EpochSeconds(time.Now())}}
		}
		if err := writeEvent(w, rc, msg.Type, msg.Payload); err != nil {
			h.log.WithError(err).Debug("Update stream closed")
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, eventType models.UpdateType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data); err != nil {
		return err
	}
	return rc.Flush()
}
