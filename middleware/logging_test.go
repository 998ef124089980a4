package middleware

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggingProcessor(t *testing.T) {
	var buf bytes.Buffer
	p := &LoggingProcessor{Logger: log.New(&buf, "", 0)}

	t.Run("logs method and path", func(t *testing.T) {
		buf.Reset()
		w := httptest.NewRecorder()
		r := httptest.NewRequest("POST", "/rpc", nil)

		if err := p.Process(w, r, func(http.ResponseWriter, *http.Request) error { return nil }); err != nil {
			t.Fatalf("Process returned error: %v", err)
		}
		line := buf.String()
		if !strings.Contains(line, "POST /rpc") {
			t.Errorf("got line %q, want method and path", line)
		}
	})

	t.Run("logs and propagates errors", func(t *testing.T) {
		buf.Reset()
		w := httptest.NewRecorder()
		r := httptest.NewRequest("POST", "/rpc", nil)

		fail := errors.New("downstream broke")
		err := p.Process(w, r, func(http.ResponseWriter, *http.Request) error { return fail })
		if !errors.Is(err, fail) {
			t.Errorf("got err %v, want the downstream error", err)
		}
		if !strings.Contains(buf.String(), "downstream broke") {
			t.Errorf("got line %q, want the error text", buf.String())
		}
	})

	t.Run("includes request id when tagged", func(t *testing.T) {
		buf.Reset()
		w := httptest.NewRecorder()
		r := httptest.NewRequest("POST", "/rpc", nil)
		r.Header.Set("X-Request-Id", "rid-42")

		chain := NewRequestIDProcessor()
		err := chain.Process(w, r, func(w http.ResponseWriter, r *http.Request) error {
			return p.Process(w, r, func(http.ResponseWriter, *http.Request) error { return nil })
		})
		if err != nil {
			t.Fatalf("Process returned error: %v", err)
		}
		if !strings.Contains(buf.String(), "rid-42") {
			t.Errorf("got line %q, want request id", buf.String())
		}
	})
}
