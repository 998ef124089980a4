package main

import (
	"context"
	"time"

	"github.com/mnehpets/onerpc/jsonrpc"
)

// demoHandler serves the daemon's built-in method set.
func demoHandler() jsonrpc.Handler {
	return jsonrpc.HandlerFunc(func(ctx context.Context, method string, params any) (any, error) {
		switch method {
		case "ping":
			return map[string]any{"now": time.Now().UnixMilli()}, nil
		case "echo":
			return params, nil
		case "sum":
			return sum(params)
		case "blob.reverse":
			return blobReverse(params)
		default:
			return nil, jsonrpc.ErrMethodNotFound
		}
	})
}

func sum(params any) (any, error) {
	var nums []float64
	if err := jsonrpc.Bind(params, &nums); err != nil {
		return nil, err
	}
	var total float64
	for _, n := range nums {
		total += n
	}
	return total, nil
}

// blobReverse works on decoded binary params, so it needs the Buffer
// codec enabled to be reachable over the wire.
func blobReverse(params any) (any, error) {
	b, ok := params.([]byte)
	if !ok {
		return nil, jsonrpc.ErrInvalidParams.WithMessage("blob.reverse expects a binary blob")
	}
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out, nil
}
