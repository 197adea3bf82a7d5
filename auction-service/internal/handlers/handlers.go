package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/aaronwang/auction-platform/auction-service/internal/store"
	"github.com/aaronwang/auction-platform/shared/httputil"
	"github.com/aaronwang/auction-platform/shared/metrics"
	"github.com/aaronwang/auction-platform/shared/models"
)

// Handler exposes the auction store over HTTP
type Handler struct {
	store *store.Store
	log   *logrus.Entry
}

// NewHandler creates a new HTTP handler
func NewHandler(s *store.Store, log *logrus.Entry) *Handler {
	return &Handler{
		store: s,
		log:   log,
	}
}

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", httputil.HealthHandler("auction-service")).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	router.HandleFunc("/auctions", h.CreateAuction).Methods(http.MethodPost)
	router.HandleFunc("/auctions", h.ListAuctions).Methods(http.MethodGet)
	router.HandleFunc("/auctions/{id}", h.GetAuction).Methods(http.MethodGet)
	router.HandleFunc("/auctions/{id}/bid", h.PlaceBid).Methods(http.MethodPost)
	router.HandleFunc("/auctions/{id}/close", h.CloseAuction).Methods(http.MethodPost)

	router.Use(httputil.RecoverMiddleware(h.log))
	router.Use(httputil.LoggingMiddleware(h.log))
	router.Use(metrics.Middleware)

	return router
}

// CreateAuction registers a new auction
func (h *Handler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAuctionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, err)
		return
	}

	auction, err := h.store.Create(req)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}

	h.log.WithField("auction_id", auction.ID).Info("auction created")
	httputil.RespondJSON(w, http.StatusCreated, models.AuctionEnvelope{Auction: auction})
}

// ListAuctions returns every auction
func (h *Handler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, models.AuctionListEnvelope{Auctions: h.store.List()})
}

// GetAuction returns one auction
func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	auction, err := h.store.Get(mux.Vars(r)["id"])
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.AuctionEnvelope{Auction: auction})
}

// PlaceBid records a bid on an open auction
func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	var req models.StoreBidRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, err)
		return
	}

	auction, err := h.store.Bid(mux.Vars(r)["id"], req.Bidder, req.Amount)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.AuctionEnvelope{Auction: auction})
}

// CloseAuction closes an auction; repeated calls are no-ops
func (h *Handler) CloseAuction(w http.ResponseWriter, r *http.Request) {
	auction, transitioned, err := h.store.Close(mux.Vars(r)["id"])
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	if transitioned {
		h.log.WithField("auction_id", auction.ID).Info("auction closed")
	}
	httputil.RespondJSON(w, http.StatusOK, models.CloseAuctionResponse{
		Auction:      auction,
		Transitioned: transitioned,
	})
}
