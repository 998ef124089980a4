// Package streamrpc serves a JSON-RPC pipeline over byte streams.
//
// Requests and responses travel as newline-delimited JSON, one value
// per line, over any io.ReadWriter: a TCP connection, a pipe, or a
// process's stdin/stdout. Server manages a listener and its
// connections; ServeConn drives a single stream and can be used on its
// own for stdio-style transports.
//
// A line that holds valid JSON of the wrong shape gets a parse-error
// response and the stream continues. Bytes that are not JSON at all
// poison the stream: the server sends a final parse-error response and
// closes the connection, since no framing boundary can be trusted
// afterwards.
package streamrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/mnehpets/onerpc/jsonrpc"
)

// Server accepts connections and serves the pipeline on each.
type Server struct {
	addr      string
	rpc       jsonrpc.Server
	recorders []jsonrpc.Recorder

	listener net.Listener
	conns    map[net.Conn]bool
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithRecorders installs recorders observing every processed call.
func WithRecorders(recs ...jsonrpc.Recorder) Option {
	return func(s *Server) { s.recorders = append(s.recorders, recs...) }
}

// NewServer returns a Server that will listen on addr and dispatch to
// rpc.
func NewServer(addr string, rpc jsonrpc.Server, opts ...Option) *Server {
	if rpc == nil {
		panic("streamrpc: nil server")
	}
	s := &Server{
		addr:  addr,
		rpc:   rpc,
		conns: make(map[net.Conn]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins listening for connections and blocks until ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on tcp: %w", err)
	}
	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	<-s.ctx.Done()
	return s.ctx.Err()
}

// Stop gracefully shuts down the server: the listener and all open
// connections are closed, then Stop waits for their handlers to drain
// or ctx to expire.
func (s *Server) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.conns = make(map[net.Conn]bool)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				log.Printf("streamrpc: accept: %v", err)
				continue
			}
		}

		s.mu.Lock()
		s.conns[conn] = true
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	if err := s.ServeConn(s.ctx, conn); err != nil && !isClosed(err) {
		log.Printf("streamrpc: %s: %v", conn.RemoteAddr(), err)
	}
}

// ServeConn drives one stream until it ends: EOF and context
// cancellation return nil, anything else reports why the stream died.
func (s *Server) ServeConn(ctx context.Context, rw io.ReadWriter) error {
	dec := json.NewDecoder(rw)
	dec.UseNumber()
	enc := json.NewEncoder(rw)
	enc.SetEscapeHTML(false)

	for {
		var payload any
		if err := dec.Decode(&payload); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			// The framing is gone; answer once and give up on the
			// stream.
			resp := s.rpc.BuildErrorResponse(nil, jsonrpc.NewError(jsonrpc.ParseError))
			enc.Encode(resp)
			return fmt.Errorf("decode stream: %w", err)
		}

		resp := s.respond(ctx, payload)
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
	}
}

// respond runs one payload through the pipeline. A pipeline that cannot
// encode its own response degrades to an error response under the
// request's id.
func (s *Server) respond(ctx context.Context, payload any) *jsonrpc.Response {
	start := time.Now()
	res, err := s.rpc.Process(ctx, payload)
	if err != nil {
		log.Printf("streamrpc: process: %v", err)
		var id any
		if p := s.rpc.Parse(payload); p.OK {
			id = p.Request.ID
		}
		return s.rpc.BuildErrorResponse(id, err)
	}
	s.record(ctx, res, time.Since(start))
	return res.Response
}

func (s *Server) record(ctx context.Context, res *jsonrpc.Result, d time.Duration) {
	for _, rec := range s.recorders {
		if rec == nil {
			continue
		}
		if err := rec.Record(ctx, res, d); err != nil {
			log.Printf("streamrpc: recorder: %v", err)
		}
	}
}

// isClosed reports whether err is the routine noise of a connection
// torn down by Stop.
func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
