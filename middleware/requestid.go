// Package middleware provides processors for httprpc handlers:
// request ids, rate limiting, bearer-token auth, security headers and
// request logging.
package middleware

import (
	"context"
	mathrand "math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mnehpets/onerpc/httprpc"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// newRequestID generates a ULID string for incoming requests.
func newRequestID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

type requestIDKey struct{}

// RequestIDProcessor tags every request with a fresh ULID, exposed on
// the request context and echoed in a response header. Requests that
// already carry an id in the header keep it, so ids survive proxy
// hops.
type RequestIDProcessor struct {
	// Header names the id header. Empty means "X-Request-Id".
	Header string
}

// NewRequestIDProcessor creates a RequestIDProcessor with the default
// header.
func NewRequestIDProcessor() *RequestIDProcessor {
	return &RequestIDProcessor{}
}

// Process implements httprpc.Processor.
func (p *RequestIDProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	header := p.Header
	if header == "" {
		header = "X-Request-Id"
	}

	id := r.Header.Get(header)
	if id == "" {
		id = newRequestID()
	}
	w.Header().Set(header, id)

	ctx := context.WithValue(r.Context(), requestIDKey{}, id)
	return next(w, r.WithContext(ctx))
}

// RequestIDFromContext returns the request id tagged by
// RequestIDProcessor, or false when none is present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

var _ httprpc.Processor = (*RequestIDProcessor)(nil)
