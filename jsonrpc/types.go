package jsonrpc

import (
	"context"
	"encoding/json"
	"time"
)

// Version is the protocol tag every request and response carries in its
// jsonrpc field.
const Version = "2.0"

// Request is a validated JSON-RPC 2.0 request. ID is always present and
// is a string or a number; params may be any value tree or absent.
type Request struct {
	Version string `json:"jsonrpc" cbor:"jsonrpc"`
	ID      any    `json:"id" cbor:"id"`
	Method  string `json:"method" cbor:"method"`
	Params  any    `json:"params,omitempty" cbor:"params,omitempty"`
}

// ResponseError is the wire form of a failure.
type ResponseError struct {
	Code    int    `json:"code" cbor:"code"`
	Message string `json:"message" cbor:"message"`
	Data    any    `json:"data,omitempty" cbor:"data,omitempty"`
}

// Response is a JSON-RPC 2.0 response. Exactly one of Result and Error
// is meaningful: Error nil means success.
type Response struct {
	Version string         `json:"jsonrpc" cbor:"jsonrpc"`
	ID      any            `json:"id" cbor:"id"`
	Result  any            `json:"result,omitempty" cbor:"result,omitempty"`
	Error   *ResponseError `json:"error,omitempty" cbor:"error,omitempty"`
}

// MarshalJSON keeps the result/error exclusion visible on the wire: a
// success response always carries a result field, null included, and an
// error response never does.
func (r *Response) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		return json.Marshal(struct {
			Version string         `json:"jsonrpc"`
			ID      any            `json:"id"`
			Error   *ResponseError `json:"error"`
		}{r.Version, r.ID, r.Error})
	}
	return json.Marshal(struct {
		Version string `json:"jsonrpc"`
		ID      any    `json:"id"`
		Result  any    `json:"result"`
	}{r.Version, r.ID, r.Result})
}

// Parsed reports the outcome of validating a payload against the
// request shape. Request is set only when OK is true.
type Parsed struct {
	OK      bool
	Request *Request
}

// Result is the full account of one Process call. Response is always
// set; transports send it, and everything else is for the caller's own
// bookkeeping.
type Result struct {
	// Success mirrors the response: true iff it carries a result.
	Success bool

	// Payload is the inbound payload exactly as handed to Process. For
	// a codec-wrapped server this is the still-encoded form.
	Payload any

	// Request is the validation outcome for Payload.
	Request Parsed

	// Response is the wire response.
	Response *Response

	// Err is the underlying failure when Success is false: the
	// handler's error, the manufactured parse error, or the codec's
	// decode error.
	Err error
}

// Handler is the application side of the pipeline. It receives the
// method and params of a validated request and produces the result
// value. Returning an error produces an error response; see
// BuildErrorResponse for how errors reach the wire. Handlers must be
// safe for concurrent calls.
type Handler interface {
	Handle(ctx context.Context, method string, params any) (any, error)
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(ctx context.Context, method string, params any) (any, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, method string, params any) (any, error) {
	return f(ctx, method, params)
}

// ErrorSerializer translates failures into wire errors ahead of the
// built-in mapping. Returning false declines the error, falling back to
// the standard taxonomy mapping.
type ErrorSerializer interface {
	Serialize(err error) (*ResponseError, bool)
}

// ErrorSerializerFunc adapts a function to an ErrorSerializer.
type ErrorSerializerFunc func(err error) (*ResponseError, bool)

// Serialize calls f.
func (f ErrorSerializerFunc) Serialize(err error) (*ResponseError, bool) {
	return f(err)
}

// Recorder observes completed calls. Transports invoke it once per
// Process call with the call's Result and wall-clock duration; a
// recorder must not mutate the Result.
type Recorder interface {
	Record(ctx context.Context, res *Result, d time.Duration) error
}

// Server is the narrow surface transports consume: a bare Core or a
// codec-wrapped one.
type Server interface {
	// Parse validates a payload against the request shape without
	// processing it.
	Parse(payload any) Parsed

	// Process runs one call end to end. The Result is set whenever the
	// error is nil; the error return is reserved for a structural codec
	// failing to encode the outgoing response and is always nil for a
	// bare Core.
	Process(ctx context.Context, payload any) (*Result, error)

	// BuildErrorResponse maps a failure to a wire response under the
	// given request id.
	BuildErrorResponse(id any, err error) *Response
}
