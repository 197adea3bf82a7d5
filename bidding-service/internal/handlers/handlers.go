package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/aaronwang/auction-platform/bidding-service/internal/validator"
	"github.com/aaronwang/auction-platform/shared/httputil"
	"github.com/aaronwang/auction-platform/shared/metrics"
	"github.com/aaronwang/auction-platform/shared/models"
)

// Handler serves the bid validation endpoint
type Handler struct {
	log *logrus.Entry
}

// NewHandler creates a new HTTP handler
func NewHandler(log *logrus.Entry) *Handler {
	return &Handler{log: log}
}

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", httputil.HealthHandler("bidding-service")).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/validate", h.Validate).Methods(http.MethodPost)

	router.Use(httputil.RecoverMiddleware(h.log))
	router.Use(httputil.LoggingMiddleware(h.log))
	router.Use(metrics.Middleware)

	return router
}

// Validate always answers 200 with a verdict; only malformed requests get 400
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req models.ValidationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, err)
		return
	}

	result := validator.Validate(req)
	if !result.OK {
		h.log.WithFields(logrus.Fields{
			"bidder":      req.Bidder,
			"amount":      req.Amount,
			"current_bid": req.CurrentBid,
		}).Debug(result.Message)
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}
