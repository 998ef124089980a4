// Package httprpc binds a JSON-RPC pipeline to HTTP.
//
// A Handler serves one jsonrpc.Server on a single route, speaking
// JSON-RPC over HTTP (https://www.simple-is-better.org/json-rpc/transport_http.html):
// requests are POSTs carrying one request per body, and every processed
// request is answered with status 200, protocol failures included. HTTP
// status codes other than 200 report transport-level problems only:
// wrong method, unsupported media type, or middleware short-circuits.
//
// Bodies may be encoded as JSON (application/json) or CBOR
// (application/cbor); the response is rendered in the same encoding the
// request used.
//
// Processors can be chained as middleware to intercept requests before
// the pipeline runs:
//
//	h := &httprpc.Handler{
//	    Server:     core,
//	    Processors: []httprpc.Processor{authProcessor, limitProcessor},
//	}
//	http.Handle("/rpc", h)
//
// Processor errors return HTTP error responses, not JSON-RPC errors.
package httprpc

import (
	"errors"
	"net/http"
)

// StatusError is a transport-level failure that maps directly to an
// HTTP status code.
type StatusError struct {
	Status int
	// Message is a short, human-readable description suitable for an
	// HTTP error body.
	Message string
	Cause   error
}

func (e *StatusError) Error() string {
	if e == nil {
		return "httprpc: error: <nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
		if msg == "" {
			msg = "unknown error"
		}
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Error creates a new StatusError.
func Error(status int, message string, err error) error {
	// Avoid double-wrapping.
	var se *StatusError
	if errors.As(err, &se) {
		return err
	}
	return &StatusError{Status: status, Message: message, Cause: err}
}

// Processor is middleware-style logic that runs before the RPC pipeline.
//
// Protocol:
//   - Processors MUST call next(...), unless they intend to
//     short-circuit the request.
//   - Processors MUST NOT call w.WriteHeader(...).
//   - Processors MUST NOT write to the response body.
//
// Error handling:
//   - If any processor returns a non-nil error, the chain stops
//     immediately and that error is mapped to an HTTP error response.
type Processor interface {
	Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error
}

// ProcessorFunc adapts a function to a Processor.
type ProcessorFunc func(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error

func (f ProcessorFunc) Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error {
	return f(w, r, next)
}
