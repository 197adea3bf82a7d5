package websocket

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/aaronwang/auction-platform/shared/httputil"
	"github.com/aaronwang/auction-platform/shared/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LatestFunc returns the last mirrored update for an auction, or nil
type LatestFunc func(ctx context.Context, auctionID string) ([]byte, error)

// Handler handles WebSocket connections
type Handler struct {
	manager *Manager
	latest  LatestFunc
	log     *logrus.Entry
}

// NewHandler creates a new WebSocket handler. latest may be nil.
func NewHandler(manager *Manager, latest LatestFunc, log *logrus.Entry) *Handler {
	return &Handler{
		manager: manager,
		latest:  latest,
		log:     log,
	}
}

// SetupRoutes configures WebSocket routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/ws/auctions/{id}", h.HandleAuction)
	router.HandleFunc("/ws/updates", h.HandleAll)

	router.HandleFunc("/health", httputil.HealthHandler("broadcast-service")).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/stats/auctions/{id}", h.GetStats).Methods(http.MethodGet)

	router.Use(httputil.RecoverMiddleware(h.log))
	router.Use(httputil.LoggingMiddleware(h.log))

	return router
}

// HandleAuction streams updates for one auction
func (h *Handler) HandleAuction(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, mux.Vars(r)["id"])
}

// HandleAll streams updates for every auction
func (h *Handler) HandleAll(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, AllAuctions)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, auctionID string) {
	if auctionID == "" {
		httputil.RespondMessage(w, http.StatusBadRequest, "auction id is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("Failed to upgrade connection")
		return
	}

	client := &Client{
		ID:        uuid.New().String(),
		AuctionID: auctionID,
		Conn:      conn,
		Send:      make(chan []byte, sendBuffer),
	}

	// Queue the greeting before registering so it precedes every broadcast
	welcome, _ := json.Marshal(map[string]string{
		"type":       "connected",
		"auction_id": auctionID,
		"client_id":  client.ID,
	})
	client.Send <- welcome

	if h.latest != nil && auctionID != AllAuctions {
		latest, err := h.latest(r.Context(), auctionID)
		if err != nil {
			h.log.WithError(err).WithField("auction_id", auctionID).Warn("Failed to load latest state")
		} else if latest != nil {
			client.Send <- latest
		}
	}

	h.manager.RegisterClient(client)
	client.StartReadPump(h.manager)
}

// GetStats returns the subscriber count for an auction
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"auction_id":  auctionID,
		"subscribers": h.manager.GetSubscriberCount(auctionID),
	})
}
