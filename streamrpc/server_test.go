package streamrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/mnehpets/onerpc/jsonrpc"
)

func testCore() *jsonrpc.Core {
	return jsonrpc.NewCore(jsonrpc.HandlerFunc(func(ctx context.Context, method string, params any) (any, error) {
		switch method {
		case "ping":
			return "pong", nil
		case "echo":
			return params, nil
		default:
			return nil, jsonrpc.ErrMethodNotFound
		}
	}))
}

type wireResponse struct {
	Version string                 `json:"jsonrpc"`
	ID      any                    `json:"id"`
	Result  any                    `json:"result"`
	Error   *jsonrpc.ResponseError `json:"error"`
}

func TestServeConn(t *testing.T) {
	server := NewServer(":0", testCore())

	client, srv := net.Pipe()
	defer client.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ServeConn(context.Background(), srv)
	}()

	enc := json.NewEncoder(client)
	dec := json.NewDecoder(client)

	t.Run("round trip", func(t *testing.T) {
		if err := enc.Encode(map[string]any{"jsonrpc": "2.0", "id": "1", "method": "ping"}); err != nil {
			t.Fatalf("send failed: %v", err)
		}
		var resp wireResponse
		if err := dec.Decode(&resp); err != nil {
			t.Fatalf("receive failed: %v", err)
		}
		if resp.ID != "1" || resp.Result != "pong" {
			t.Errorf("got %+v, want id 1 result pong", resp)
		}
	})

	t.Run("sequential calls on one stream", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			id := fmt.Sprintf("seq-%d", i)
			if err := enc.Encode(map[string]any{"jsonrpc": "2.0", "id": id, "method": "echo", "params": float64(i)}); err != nil {
				t.Fatalf("send failed: %v", err)
			}
			var resp wireResponse
			if err := dec.Decode(&resp); err != nil {
				t.Fatalf("receive failed: %v", err)
			}
			if resp.ID != id || resp.Result != float64(i) {
				t.Errorf("got %+v, want id %s result %d", resp, id, i)
			}
		}
	})

	t.Run("wrong shape keeps stream alive", func(t *testing.T) {
		if err := enc.Encode([]any{float64(1), float64(2)}); err != nil {
			t.Fatalf("send failed: %v", err)
		}
		var resp wireResponse
		if err := dec.Decode(&resp); err != nil {
			t.Fatalf("receive failed: %v", err)
		}
		if resp.Error == nil || resp.Error.Code != jsonrpc.CodeParseError {
			t.Errorf("got %+v, want parse error", resp)
		}
		if resp.ID != nil {
			t.Errorf("got id %v, want nil", resp.ID)
		}

		// The next request still works.
		if err := enc.Encode(map[string]any{"jsonrpc": "2.0", "id": "after", "method": "ping"}); err != nil {
			t.Fatalf("send failed: %v", err)
		}
		if err := dec.Decode(&resp); err != nil {
			t.Fatalf("receive failed: %v", err)
		}
		if resp.ID != "after" || resp.Result != "pong" {
			t.Errorf("got %+v, want id after result pong", resp)
		}
	})

	client.Close()
	if err := <-errCh; err != nil {
		t.Errorf("ServeConn returned %v, want nil on EOF", err)
	}
}

func TestServeConnMalformedStream(t *testing.T) {
	server := NewServer(":0", testCore())

	client, srv := net.Pipe()
	defer client.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ServeConn(context.Background(), srv)
	}()

	if _, err := client.Write([]byte("this is not json\n")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var resp wireResponse
	if err := json.NewDecoder(client).Decode(&resp); err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != jsonrpc.CodeParseError {
		t.Errorf("got %+v, want parse error", resp)
	}

	// The stream is poisoned; ServeConn gives up on it.
	if err := <-errCh; err == nil {
		t.Error("ServeConn returned nil, want framing error")
	}
}

type countRecorder struct {
	n       int
	success bool
}

func (c *countRecorder) Record(ctx context.Context, res *jsonrpc.Result, d time.Duration) error {
	c.n++
	c.success = res.Success
	return nil
}

func TestServeConnRecorder(t *testing.T) {
	rec := &countRecorder{}
	server := NewServer(":0", testCore(), WithRecorders(rec))

	client, srv := net.Pipe()
	defer client.Close()

	go server.ServeConn(context.Background(), srv)

	enc := json.NewEncoder(client)
	dec := json.NewDecoder(client)
	if err := enc.Encode(map[string]any{"jsonrpc": "2.0", "id": "1", "method": "ping"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	var resp wireResponse
	if err := dec.Decode(&resp); err != nil {
		t.Fatalf("receive failed: %v", err)
	}

	if rec.n != 1 {
		t.Errorf("got %d recorded calls, want 1", rec.n)
	}
	if !rec.success {
		t.Error("recorded call not marked successful")
	}
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(":0", testCore())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		server.Start(ctx)
	}()

	// Give the listener time to come up.
	time.Sleep(100 * time.Millisecond)

	conn, err := net.Dial("tcp", server.Addr())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	enc := json.NewEncoder(conn)
	dec := json.NewDecoder(conn)
	if err := enc.Encode(map[string]any{"jsonrpc": "2.0", "id": "tcp-1", "method": "ping"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	var resp wireResponse
	if err := dec.Decode(&resp); err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	if resp.ID != "tcp-1" || resp.Result != "pong" {
		t.Errorf("got %+v, want id tcp-1 result pong", resp)
	}

	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := server.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestServerMultipleConns(t *testing.T) {
	server := NewServer(":0", testCore())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		server.Start(ctx)
	}()
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 3; i++ {
		conn, err := net.Dial("tcp", server.Addr())
		if err != nil {
			t.Fatalf("dial %d failed: %v", i, err)
		}
		enc := json.NewEncoder(conn)
		dec := json.NewDecoder(conn)
		id := fmt.Sprintf("conn-%d", i)
		if err := enc.Encode(map[string]any{"jsonrpc": "2.0", "id": id, "method": "ping"}); err != nil {
			t.Fatalf("send on conn %d failed: %v", i, err)
		}
		var resp wireResponse
		if err := dec.Decode(&resp); err != nil {
			t.Fatalf("receive on conn %d failed: %v", i, err)
		}
		if resp.ID != id {
			t.Errorf("got id %v, want %s", resp.ID, id)
		}
		conn.Close()
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := server.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}
