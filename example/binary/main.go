// Speaks newline-delimited JSON-RPC over stdin/stdout with the Buffer
// codec enabled, so binary params and results travel as
// {"marker":"Buffer","base64":...} records.
//
// Try it:
//
//	echo '{"jsonrpc":"2.0","id":1,"method":"crc32","params":{"marker":"Buffer","base64":"aGVsbG8="}}' | go run .
package main

import (
	"context"
	"hash/crc32"
	"io"
	"log"
	"os"

	"github.com/mnehpets/onerpc/codec"
	"github.com/mnehpets/onerpc/jsonrpc"
	"github.com/mnehpets/onerpc/streamrpc"
)

func handle(ctx context.Context, method string, params any) (any, error) {
	switch method {
	case "crc32":
		b, ok := params.([]byte)
		if !ok {
			return nil, jsonrpc.ErrInvalidParams.WithMessage("crc32 expects a binary blob")
		}
		return crc32.ChecksumIEEE(b), nil
	case "xor":
		b, ok := params.([]byte)
		if !ok {
			return nil, jsonrpc.ErrInvalidParams.WithMessage("xor expects a binary blob")
		}
		out := make([]byte, len(b))
		for i, c := range b {
			out[i] = c ^ 0xff
		}
		return out, nil
	default:
		return nil, jsonrpc.ErrMethodNotFound
	}
}

type stdio struct {
	io.Reader
	io.Writer
}

func main() {
	core := jsonrpc.NewCore(jsonrpc.HandlerFunc(handle))
	rpc := jsonrpc.WithCodec(core, codec.Buffer{})

	srv := streamrpc.NewServer("", rpc)
	if err := srv.ServeConn(context.Background(), stdio{os.Stdin, os.Stdout}); err != nil {
		log.Fatal(err)
	}
}
