package api

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// CORSConfig holds CORS configuration. An AllowOrigins entry of "*" allows
// any origin.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       int
}

// DefaultCORSConfig allows any origin, so a static web client can post
// images from another host.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Authorization", "Accept", "Origin"},
		MaxAge:       86400,
	}
}

type corsHeaders struct {
	config  CORSConfig
	methods string
	headers string
	maxAge  string
}

func newCORSHeaders(config CORSConfig) corsHeaders {
	return corsHeaders{
		config:  config,
		methods: strings.Join(config.AllowMethods, ", "),
		headers: strings.Join(config.AllowHeaders, ", "),
		maxAge:  strconv.Itoa(config.MaxAge),
	}
}

// origin returns the Access-Control-Allow-Origin value for a request
// origin, or "" when it is not allowed.
func (c corsHeaders) origin(requested string) string {
	if slices.Contains(c.config.AllowOrigins, "*") {
		return "*"
	}
	if requested != "" && slices.Contains(c.config.AllowOrigins, requested) {
		return requested
	}
	return ""
}

func (c corsHeaders) apply(set func(key, value string), requested string) {
	allow := c.origin(requested)
	if allow == "" {
		return
	}
	set("Access-Control-Allow-Origin", allow)
	if allow != "*" {
		set("Vary", "Origin")
	}
	set("Access-Control-Allow-Methods", c.methods)
	set("Access-Control-Allow-Headers", c.headers)
	set("Access-Control-Max-Age", c.maxAge)
}

// NewCORSMiddleware adds CORS headers to every huma response.
func NewCORSMiddleware(config CORSConfig) func(huma.Context, func(huma.Context)) {
	h := newCORSHeaders(config)
	return func(ctx huma.Context, next func(huma.Context)) {
		h.apply(ctx.SetHeader, ctx.Header("Origin"))
		if ctx.Method() == http.MethodOptions {
			ctx.SetStatus(http.StatusNoContent)
			return
		}
		next(ctx)
	}
}

// AddCORSHandler answers preflight requests, which never reach huma
// middleware because no operation is registered for OPTIONS.
func AddCORSHandler(mux *http.ServeMux, config CORSConfig) {
	h := newCORSHeaders(config)
	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, r *http.Request) {
		h.apply(w.Header().Set, r.Header.Get("Origin"))
		w.WriteHeader(http.StatusNoContent)
	})
}
