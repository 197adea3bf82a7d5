package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/aaronwang/auction-platform/history-service/internal/eventlog"
	"github.com/aaronwang/auction-platform/shared/httputil"
	"github.com/aaronwang/auction-platform/shared/metrics"
	"github.com/aaronwang/auction-platform/shared/models"
)

// Handler exposes the history log over HTTP
type Handler struct {
	log    *eventlog.Log
	logger *logrus.Entry
}

// NewHandler creates a new HTTP handler
func NewHandler(l *eventlog.Log, logger *logrus.Entry) *Handler {
	return &Handler{log: l, logger: logger}
}

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", httputil.HealthHandler("history-service")).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/events", h.AppendEvent).Methods(http.MethodPost)
	router.HandleFunc("/events", h.ListEvents).Methods(http.MethodGet)

	router.Use(httputil.RecoverMiddleware(h.logger))
	router.Use(httputil.LoggingMiddleware(h.logger))
	router.Use(metrics.Middleware)

	return router
}

// AppendEvent stores one history event
func (h *Handler) AppendEvent(w http.ResponseWriter, r *http.Request) {
	var req models.AppendEventRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, err)
		return
	}

	event, err := h.log.Append(req)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, models.HistoryEnvelope{Event: event})
}

// ListEvents returns the full history in insertion order
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, models.HistoryListEnvelope{Events: h.log.List()})
}
