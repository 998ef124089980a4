package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/mnehpets/onerpc/httprpc"
)

// LoggingProcessor writes one line per request: method, path, request
// id when tagged, duration and outcome. Place it after
// RequestIDProcessor to get ids in the lines.
type LoggingProcessor struct {
	// Logger receives the lines. Nil means the standard logger.
	Logger *log.Logger
}

// NewLoggingProcessor creates a LoggingProcessor on the standard
// logger.
func NewLoggingProcessor() *LoggingProcessor {
	return &LoggingProcessor{}
}

// Process implements httprpc.Processor.
func (p *LoggingProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	start := time.Now()
	err := next(w, r)
	d := time.Since(start)

	id, _ := RequestIDFromContext(r.Context())
	if id == "" {
		id = "-"
	}
	if err != nil {
		p.printf("%s %s %s %s error: %v", r.Method, r.URL.Path, id, d, err)
	} else {
		p.printf("%s %s %s %s", r.Method, r.URL.Path, id, d)
	}
	return err
}

func (p *LoggingProcessor) printf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

var _ httprpc.Processor = (*LoggingProcessor)(nil)
