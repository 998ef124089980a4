package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/mnehpets/onerpc/httprpc"
)

// RateLimitProcessor rejects requests beyond a token-bucket budget
// with 429 before they reach the pipeline. One bucket covers the whole
// handler; put a RateLimitProcessor per route if routes need separate
// budgets.
type RateLimitProcessor struct {
	limiter *rate.Limiter
}

// NewRateLimitProcessor creates a processor admitting r requests per
// second with bursts up to b.
func NewRateLimitProcessor(r rate.Limit, b int) *RateLimitProcessor {
	return &RateLimitProcessor{limiter: rate.NewLimiter(r, b)}
}

// Process implements httprpc.Processor.
func (p *RateLimitProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	if !p.limiter.Allow() {
		return httprpc.Error(http.StatusTooManyRequests, "rate limit exceeded", nil)
	}
	return next(w, r)
}

var _ httprpc.Processor = (*RateLimitProcessor)(nil)
