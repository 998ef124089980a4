package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
)

// Core validates payloads, dispatches them to a Handler and assembles
// responses. It holds only immutable configuration, so one Core serves
// any number of concurrent Process calls.
type Core struct {
	handler    Handler
	serializer ErrorSerializer
}

// Option configures a Core.
type Option func(*Core)

// WithErrorSerializer installs a serializer consulted before the
// built-in failure mapping.
func WithErrorSerializer(s ErrorSerializer) Option {
	return func(c *Core) { c.serializer = s }
}

// NewCore returns a Core dispatching to handler.
func NewCore(handler Handler, opts ...Option) *Core {
	if handler == nil {
		panic("jsonrpc: nil handler")
	}
	c := &Core{handler: handler}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Parse validates payload against the request shape: a keyed record
// whose jsonrpc field is "2.0", whose method is a string, and whose id
// is present and is a string or a number. Anything else fails,
// null and missing ids included; the pipeline has no notification
// form. Extra fields are ignored.
func (c *Core) Parse(payload any) Parsed {
	obj, ok := payload.(map[string]any)
	if !ok {
		return Parsed{}
	}
	if obj["jsonrpc"] != Version {
		return Parsed{}
	}
	method, ok := obj["method"].(string)
	if !ok {
		return Parsed{}
	}
	id, ok := obj["id"]
	if !ok || !validID(id) {
		return Parsed{}
	}
	return Parsed{OK: true, Request: &Request{
		Version: Version,
		ID:      id,
		Method:  method,
		Params:  obj["params"],
	}}
}

// validID reports whether v can serve as a request id: a string or any
// numeric value. Null, booleans and structured values are rejected.
func validID(v any) bool {
	switch v.(type) {
	case string, json.Number:
		return true
	case float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// Process runs one call: validate, dispatch, assemble. Every failure
// mode, a payload that does not parse, a handler error, a handler
// panic, becomes an error response inside the Result; the method itself
// never fails, and the error return is always nil. It exists because
// CodecServer shares the signature and can fail.
func (c *Core) Process(ctx context.Context, payload any) (*Result, error) {
	parsed := c.Parse(payload)
	if !parsed.OK {
		err := NewError(ParseError)
		return &Result{
			Payload:  payload,
			Request:  parsed,
			Response: c.BuildErrorResponse(nil, err),
			Err:      err,
		}, nil
	}

	value, err := c.dispatch(ctx, parsed.Request)
	if err != nil {
		return &Result{
			Payload:  payload,
			Request:  parsed,
			Response: c.BuildErrorResponse(parsed.Request.ID, err),
			Err:      err,
		}, nil
	}

	return &Result{
		Success: true,
		Payload: payload,
		Request: parsed,
		Response: &Response{
			Version: Version,
			ID:      parsed.Request.ID,
			Result:  value,
		},
	}, nil
}

// dispatch invokes the handler, converting a panic into an error so a
// misbehaving handler cannot take the transport down with it.
func (c *Core) dispatch(ctx context.Context, req *Request) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("jsonrpc: handler panic in %q: %v", req.Method, r)
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return c.handler.Handle(ctx, req.Method, req.Params)
}

// BuildErrorResponse maps a failure to a wire response under id. The
// serializer is consulted first, then the typed taxonomy; everything
// else degrades to a bare internal error, so failure details never
// reach the wire unless a serializer chooses to expose them.
func (c *Core) BuildErrorResponse(id any, err error) *Response {
	return &Response{Version: Version, ID: id, Error: c.mapError(err)}
}

func (c *Core) mapError(err error) *ResponseError {
	if c.serializer != nil {
		if re, ok := c.serializer.Serialize(err); ok {
			return re
		}
	}
	var te *Error
	if errors.As(err, &te) {
		return &ResponseError{Code: te.Code(), Message: te.Message(), Data: te.Data()}
	}
	return &ResponseError{Code: CodeInternalError, Message: InternalError.message()}
}
