// Package proxy serves the static frontend and forwards API calls to the gateway.
package proxy

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	sharedhttp "github.com/aaronwang/auction-platform/shared/httputil"
	"github.com/aaronwang/auction-platform/shared/metrics"
)

// Handler serves the frontend
type Handler struct {
	gateway   *url.URL
	staticDir string
	proxy     *httputil.ReverseProxy
	log       *logrus.Entry
}

// NewHandler creates a handler proxying /api/ to gateway and serving files
// from staticDir
func NewHandler(gateway *url.URL, staticDir string, log *logrus.Entry) *Handler {
	h := &Handler{
		gateway:   gateway,
		staticDir: staticDir,
		log:       log,
	}

	h.proxy = &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(gateway)
			r.SetXForwarded()
		},
		// Flush every write so the update stream reaches the browser live
		FlushInterval: -1,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			h.log.WithError(err).WithField("path", r.URL.Path).Warn("Gateway request failed")
			sharedhttp.RespondMessage(w, http.StatusBadGateway, "Gateway error: "+err.Error())
		},
	}
	return h
}

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", sharedhttp.HealthHandler("frontend")).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	router.PathPrefix("/api/").HandlerFunc(h.Forward)
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(h.staticDir)))).Methods(http.MethodGet)
	router.HandleFunc("/", h.Index).Methods(http.MethodGet)

	router.Use(sharedhttp.RecoverMiddleware(h.log))
	router.Use(sharedhttp.LoggingMiddleware(h.log))

	return router
}

// Index serves the single page app
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(h.staticDir, "index.html"))
}

// Forward proxies an API request to the gateway
func (h *Handler) Forward(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/stream") {
		// Streams outlive the server write timeout
		_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	}
	h.proxy.ServeHTTP(w, r)
}
