package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/mnehpets/onerpc/httprpc"
)

// SecurityHeadersProcessor sets recommended security headers for an
// RPC endpoint.
//
// Default configuration:
//   - HSTS: max-age=31536000; includeSubDomains (1 year, with subdomains)
//   - Referrer-Policy: no-referrer
//   - X-Frame-Options: DENY
//   - X-Content-Type-Options: nosniff
//   - Content-Security-Policy: default-src 'none'; frame-ancestors 'none'
//
// For browser-based callers on other origins, configure CORS via
// CORSConfig. The processor answers CORS preflight (OPTIONS) requests
// itself.
type SecurityHeadersProcessor struct {
	// HSTS configures the Strict-Transport-Security header.
	// Set to nil to disable. Default: max-age=31536000; includeSubDomains
	HSTS *HSTSConfig

	// ReferrerPolicy sets the Referrer-Policy header.
	// Set to empty string to disable. Default: no-referrer
	ReferrerPolicy string

	// FrameOptions sets the X-Frame-Options header.
	// Set to empty string to disable. Default: DENY
	FrameOptions string

	// ContentTypeOptions sets the X-Content-Type-Options header.
	// Set to false to disable. Default: true (nosniff)
	ContentTypeOptions bool

	// ContentSecurityPolicy sets the Content-Security-Policy header.
	// Set to empty string to disable.
	ContentSecurityPolicy string

	// CORS configures Cross-Origin Resource Sharing headers.
	// Set to nil to disable CORS headers.
	CORS *CORSConfig
}

// HSTSConfig configures HTTP Strict Transport Security.
type HSTSConfig struct {
	// MaxAge specifies the duration (in seconds) that the browser
	// should remember that a site is only to be accessed using HTTPS.
	MaxAge int

	// IncludeSubDomains indicates whether HSTS applies to subdomains.
	IncludeSubDomains bool

	// Preload indicates whether the site should be included in
	// browsers' HSTS preload lists.
	Preload bool
}

// CORSConfig configures Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	// AllowedOrigins specifies allowed origins for CORS requests.
	// Use "*" to allow any origin (not recommended for production).
	AllowedOrigins []string

	// AllowedMethods specifies allowed HTTP methods. RPC endpoints
	// usually need POST and OPTIONS only.
	AllowedMethods []string

	// AllowedHeaders specifies allowed request headers.
	AllowedHeaders []string

	// AllowCredentials indicates whether credentials can be sent.
	AllowCredentials bool

	// MaxAge indicates how long (in seconds) preflight results can be
	// cached.
	MaxAge int
}

// SecurityHeadersOption is a functional option for configuring
// SecurityHeadersProcessor.
type SecurityHeadersOption func(*SecurityHeadersProcessor)

// NewSecurityHeadersProcessor creates a SecurityHeadersProcessor with
// recommended defaults for an RPC endpoint.
func NewSecurityHeadersProcessor(opts ...SecurityHeadersOption) *SecurityHeadersProcessor {
	p := &SecurityHeadersProcessor{
		HSTS: &HSTSConfig{
			MaxAge:            31536000, // 1 year
			IncludeSubDomains: true,
		},
		ReferrerPolicy:        "no-referrer",
		FrameOptions:          "DENY",
		ContentTypeOptions:    true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// WithHSTS configures HSTS settings.
func WithHSTS(maxAge int, includeSubDomains, preload bool) SecurityHeadersOption {
	return func(p *SecurityHeadersProcessor) {
		p.HSTS = &HSTSConfig{
			MaxAge:            maxAge,
			IncludeSubDomains: includeSubDomains,
			Preload:           preload,
		}
	}
}

// WithoutHSTS disables HSTS headers.
func WithoutHSTS() SecurityHeadersOption {
	return func(p *SecurityHeadersProcessor) {
		p.HSTS = nil
	}
}

// WithCSP sets the Content-Security-Policy header.
func WithCSP(policy string) SecurityHeadersOption {
	return func(p *SecurityHeadersProcessor) {
		p.ContentSecurityPolicy = policy
	}
}

// WithCORS configures CORS headers for cross-origin access.
func WithCORS(config *CORSConfig) SecurityHeadersOption {
	return func(p *SecurityHeadersProcessor) {
		p.CORS = config
	}
}

// Process implements httprpc.Processor.
func (p *SecurityHeadersProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	if p.HSTS != nil {
		if hsts := formatHSTS(p.HSTS); hsts != "" {
			w.Header().Set("Strict-Transport-Security", hsts)
		}
	}
	if p.ReferrerPolicy != "" {
		w.Header().Set("Referrer-Policy", p.ReferrerPolicy)
	}
	if p.FrameOptions != "" {
		w.Header().Set("X-Frame-Options", p.FrameOptions)
	}
	if p.ContentTypeOptions {
		w.Header().Set("X-Content-Type-Options", "nosniff")
	}
	if p.ContentSecurityPolicy != "" {
		w.Header().Set("Content-Security-Policy", p.ContentSecurityPolicy)
	}

	if p.CORS != nil {
		setCORSHeaders(w, r, p.CORS)

		// Short-circuit CORS preflight requests. A preflight is an
		// OPTIONS request with an Origin and Access-Control-Request-Method.
		if r.Method == http.MethodOptions &&
			r.Header.Get("Origin") != "" &&
			r.Header.Get("Access-Control-Request-Method") != "" {
			return httprpc.Error(http.StatusNoContent, "", nil)
		}
	}

	return next(w, r)
}

// formatHSTS formats the HSTS header value.
func formatHSTS(config *HSTSConfig) string {
	if config == nil || config.MaxAge <= 0 {
		return ""
	}

	parts := []string{"max-age=" + strconv.Itoa(config.MaxAge)}
	if config.IncludeSubDomains {
		parts = append(parts, "includeSubDomains")
	}
	if config.Preload {
		parts = append(parts, "preload")
	}
	return strings.Join(parts, "; ")
}

// setCORSHeaders sets CORS headers based on the configuration.
func setCORSHeaders(w http.ResponseWriter, r *http.Request, config *CORSConfig) {
	// CORS headers only apply to actual cross-origin requests, marked
	// by an Origin header.
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	for _, allowed := range config.AllowedOrigins {
		if allowed == "*" {
			// The CORS spec forbids the wildcard origin together with
			// credentials.
			if config.AllowCredentials {
				continue
			}
			w.Header().Set("Access-Control-Allow-Origin", "*")
			break
		} else if allowed == origin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			break
		}
	}

	if config.AllowCredentials {
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}

	// Preflight-specific headers.
	if r.Method == http.MethodOptions {
		methods := config.AllowedMethods
		if len(methods) == 0 {
			methods = []string{http.MethodPost, http.MethodOptions}
		}
		w.Header().Set("Access-Control-Allow-Methods", strings.Join(methods, ", "))

		headers := config.AllowedHeaders
		if len(headers) == 0 {
			headers = []string{"Content-Type", "Authorization"}
		}
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(headers, ", "))

		maxAge := config.MaxAge
		if maxAge <= 0 {
			maxAge = 3600
		}
		w.Header().Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
	}
}

var _ httprpc.Processor = (*SecurityHeadersProcessor)(nil)
