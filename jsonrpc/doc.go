// Package jsonrpc implements a JSON-RPC 2.0 request/response pipeline.
//
// This package implements the server half of the JSON-RPC 2.0
// specification (https://www.jsonrpc.org/specification): it validates
// inbound payloads, dispatches them to an application Handler, and
// assembles the response together with a full account of what happened.
// Transport bindings live in the httprpc and streamrpc packages; this
// package never touches sockets.
//
// # Basic Usage
//
// Create a Core around a Handler and feed it parsed payloads:
//
//	core := jsonrpc.NewCore(jsonrpc.HandlerFunc(
//	    func(ctx context.Context, method string, params any) (any, error) {
//	        switch method {
//	        case "ping":
//	            return "pong", nil
//	        default:
//	            return nil, jsonrpc.ErrMethodNotFound
//	        }
//	    },
//	))
//
//	res, _ := core.Process(ctx, payload)
//	// res.Response is the wire response; res.Success, res.Err and
//	// res.Request describe the call in full.
//
// The payload is a decoded value tree (what encoding/json produces into
// an any), not raw bytes. One Process call handles exactly one request:
// there is no batching and no notification form, and every call
// produces a response.
//
// # Error Handling
//
// Handlers fail with ordinary Go errors. A *Error carries one of the
// taxonomy kinds and maps to its fixed wire code; anything else maps to
// a bare internal error so failure details never leak to the wire:
//
//	return nil, jsonrpc.ErrMethodNotFound
//	return nil, jsonrpc.NewError(jsonrpc.InvalidParams).WithData(fields)
//
// Standard error codes are defined as constants:
//   - CodeParseError (-32700)
//   - CodeInvalidRequest (-32600)
//   - CodeMethodNotFound (-32601)
//   - CodeInvalidParams (-32602)
//   - CodeInternalError (-32603)
//   - CodeDecodeError (-32800)
//
// An ErrorSerializer installed with WithErrorSerializer is consulted
// before the built-in mapping and may translate application errors into
// custom wire errors.
//
// # Structural Codecs
//
// WithCodec wraps a server so payloads are decoded before processing
// and responses are encoded after, letting value shapes that do not
// survive JSON (raw bytes, say) cross the wire:
//
//	server := jsonrpc.WithCodec(core, codec.Buffer{})
//
// A payload the codec rejects never reaches the wrapped server; it
// yields a decode-error response (code -32800) instead.
package jsonrpc
