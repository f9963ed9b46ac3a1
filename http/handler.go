package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sagarc03/privatemedia"
	"github.com/sagarc03/privatemedia/metrics"
	"golang.org/x/time/rate"
)

// Dispatcher answers resolved media requests.
type Dispatcher interface {
	Handle(ctx context.Context, req privatemedia.ResourceRequest) privatemedia.ResponseDescriptor
	Config() privatemedia.ServerConfig
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	// URLPrefix is where media is mounted, e.g. "/private-media". Empty mounts
	// at the root.
	URLPrefix string
	// Identity resolves the caller. Nil means every caller is anonymous.
	Identity IdentityResolver
	CORS     CORSConfig
	// Metrics enables the metrics middleware and, with MetricsPath, the
	// scrape endpoint.
	Metrics     *metrics.Metrics
	MetricsPath string
	// RateLimit, when set, is shared by all media requests.
	RateLimit *rate.Limiter
	Logger    *slog.Logger
}

// Handler serves media through a Dispatcher.
type Handler struct {
	config     HandlerConfig
	dispatcher Dispatcher
	prefix     string
}

// NewHandler creates a new Handler with the given configuration and dispatcher.
func NewHandler(config *HandlerConfig, dispatcher Dispatcher) *Handler {
	return &Handler{
		config:     *config,
		dispatcher: dispatcher,
		prefix:     normalizeURLPrefix(config.URLPrefix),
	}
}

// normalizeURLPrefix returns "" or a prefix with a leading and no trailing slash.
func normalizeURLPrefix(prefix string) string {
	trimmed := strings.Trim(prefix, "/")
	if trimmed == "" {
		return ""
	}
	return "/" + trimmed
}

// Router returns an http.Handler with the media, health and metrics routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.config.Logger))
	r.Use(middleware.Recoverer)

	if h.config.Metrics != nil {
		r.Use(MetricsMiddleware(h.config.Metrics))
	}

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/healthz", h.handleHealth)

	if h.config.Metrics != nil && h.config.MetricsPath != "" {
		r.Method(http.MethodGet, h.config.MetricsPath, h.config.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if h.config.RateLimit != nil {
			r.Use(RateLimitMiddleware(h.config.RateLimit))
		}
		r.Use(IdentityMiddleware(h.config.Identity))

		pattern := h.prefix + "/*"
		r.Get(pattern, h.handleMedia)
		r.Head(pattern, h.handleMedia)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleMedia(w http.ResponseWriter, r *http.Request) {
	req := h.buildRequest(r)

	resp := h.dispatcher.Handle(r.Context(), req)
	defer func() { _ = resp.Close() }()

	if h.config.Metrics != nil {
		h.config.Metrics.ObserveResponse(resp.Status.String(), string(h.dispatcher.Config().Backend))
	}

	writeResponse(w, r, resp)
}

// buildRequest extracts everything the dispatcher needs from r.
func (h *Handler) buildRequest(r *http.Request) privatemedia.ResourceRequest {
	return privatemedia.ResourceRequest{
		RelativePath:  strings.TrimPrefix(r.URL.Path, h.prefix+"/"),
		Identity:      IdentityFromContext(r.Context()),
		Conditional:   privatemedia.ParseConditionalHeaders(r.Header.Get("If-Modified-Since")),
		ForceDownload: parseDownload(r.URL.Query().Get("download")),
	}
}

// parseDownload returns nil unless value is a recognised boolean.
func parseDownload(value string) *bool {
	if value == "" {
		return nil
	}
	download, err := strconv.ParseBool(value)
	if err != nil {
		return nil
	}
	return &download
}

// writeResponse transmits resp. Failed descriptors are replaced by an error
// body; HEAD requests never get a body.
func writeResponse(w http.ResponseWriter, r *http.Request, resp privatemedia.ResponseDescriptor) {
	if isErrorStatus(resp.Status) {
		writeStatusError(w, r, resp.Status)
		return
	}

	header := w.Header()
	for key, value := range resp.Headers.All() {
		header.Set(key, value)
	}

	if resp.Body != nil && resp.ContentLength >= 0 {
		header.Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}

	w.WriteHeader(resp.Status.HTTPCode())

	if resp.Body == nil || r.Method == http.MethodHead {
		return
	}

	if _, err := io.Copy(w, resp.Body); err != nil && !errors.Is(err, context.Canceled) {
		slog.DebugContext(r.Context(), "copy response body", "path", r.URL.Path, "error", err)
	}
}
