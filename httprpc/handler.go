package httprpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/mnehpets/onerpc/jsonrpc"
)

const (
	mediaTypeJSON = "application/json"
	mediaTypeCBOR = "application/cbor"
)

// defaultMaxBody bounds request bodies when Handler.MaxBodyBytes is
// left zero.
const defaultMaxBody = 32 << 20 // 32 MB

// cborDec decodes CBOR into the same tree shapes encoding/json
// produces, so the pipeline sees one payload model regardless of the
// wire encoding.
var cborDec = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

// Handler serves a jsonrpc.Server over HTTP. The zero value is not
// usable; Server must be set.
type Handler struct {
	Server jsonrpc.Server

	// Processors run in order before the pipeline; see Processor.
	Processors []Processor

	// Recorders observe every processed call.
	Recorders []jsonrpc.Recorder

	// MaxBodyBytes bounds the request body. Zero means defaultMaxBody.
	MaxBodyBytes int64
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Server == nil {
		http.Error(w, "httprpc: nil Server", http.StatusInternalServerError)
		return
	}

	// Create a function to recursively call each processor in order,
	// followed by the RPC round itself.
	var run func(i int, w2 http.ResponseWriter, r2 *http.Request) error
	run = func(i int, w2 http.ResponseWriter, r2 *http.Request) error {
		if i < 0 || i > len(h.Processors) {
			// Sanity check failure.
			return errors.New("httprpc: invalid processor index")
		} else if i < len(h.Processors) {
			if h.Processors[i] == nil {
				return errors.New("httprpc: nil processor")
			}
			return h.Processors[i].Process(w2, r2, func(w3 http.ResponseWriter, r3 *http.Request) error {
				return run(i+1, w3, r3)
			})
		}
		return h.serve(w2, r2)
	}

	err := run(0, w, r)

	if err != nil {
		status := http.StatusInternalServerError
		message := ""

		var se *StatusError
		// Check if the error already encodes a valid HTTP status.
		if errors.As(err, &se) && se != nil {
			if se.Status >= 100 {
				status = se.Status
			}
			if se.Message == "" {
				message = http.StatusText(status)
			} else {
				message = se.Message
			}
		} else {
			message = err.Error()
		}
		http.Error(w, message, status)
		return
	}
}

// serve runs one RPC round: read the body, run the pipeline, render the
// response in the encoding the request used.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return Error(http.StatusMethodNotAllowed, "POST required", nil)
	}
	mt, err := bodyMediaType(r)
	if err != nil {
		return err
	}

	limit := h.MaxBodyBytes
	if limit == 0 {
		limit = defaultMaxBody
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return Error(http.StatusRequestEntityTooLarge, "request body too large", err)
		}
		return Error(http.StatusBadRequest, "read request body", err)
	}

	start := time.Now()
	res, err := h.process(r, mt, body)
	if err != nil {
		// The pipeline could not produce a response (the structural
		// codec rejected its own output); nothing useful can be sent.
		return err
	}
	h.record(r, res, time.Since(start))

	return h.render(w, mt, res.Response)
}

// process deserializes body and runs the pipeline on it. Bytes that do
// not deserialize at all never reach the server; they become a
// parse-error response under a null id, same as a payload of the wrong
// shape would.
func (h *Handler) process(r *http.Request, mediaType string, body []byte) (*jsonrpc.Result, error) {
	payload, err := unmarshalBody(mediaType, body)
	if err != nil {
		perr := jsonrpc.NewError(jsonrpc.ParseError)
		return &jsonrpc.Result{
			Response: h.Server.BuildErrorResponse(nil, perr),
			Err:      fmt.Errorf("unmarshal body: %w", err),
		}, nil
	}
	return h.Server.Process(r.Context(), payload)
}

func (h *Handler) record(r *http.Request, res *jsonrpc.Result, d time.Duration) {
	for _, rec := range h.Recorders {
		if rec == nil {
			continue
		}
		if err := rec.Record(r.Context(), res, d); err != nil {
			log.Printf("httprpc: recorder: %v", err)
		}
	}
}

// render writes resp with status 200 in the given encoding. The body is
// serialized up front so a failure still yields a clean HTTP 500.
func (h *Handler) render(w http.ResponseWriter, mediaType string, resp *jsonrpc.Response) error {
	var data []byte
	var err error
	if mediaType == mediaTypeCBOR {
		data, err = cbor.Marshal(resp)
	} else {
		data, err = json.Marshal(resp)
	}
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	ct := mediaTypeJSON
	if mediaType == mediaTypeCBOR {
		ct = mediaTypeCBOR
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(data)
	return err
}

// bodyMediaType negotiates the request encoding. A missing Content-Type
// defaults to JSON; JSON media types (+json suffixes included) and CBOR
// are accepted, anything else is rejected with 415.
func bodyMediaType(r *http.Request) (string, error) {
	ct := strings.TrimSpace(r.Header.Get("Content-Type"))
	if ct == "" {
		return mediaTypeJSON, nil
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		// If malformed, fall back to the raw (lowercased) content-type.
		mt = strings.ToLower(ct)
	} else {
		mt = strings.ToLower(strings.TrimSpace(mt))
	}
	switch {
	case mt == mediaTypeJSON, strings.HasSuffix(mt, "+json"):
		return mediaTypeJSON, nil
	case mt == mediaTypeCBOR:
		return mediaTypeCBOR, nil
	}
	return "", Error(http.StatusUnsupportedMediaType, "", fmt.Errorf("httprpc: unsupported media type %s", mt))
}

// unmarshalBody deserializes body into a payload tree. JSON numbers
// come out as json.Number so large request ids survive the round trip
// intact.
func unmarshalBody(mediaType string, body []byte) (any, error) {
	if mediaType == mediaTypeCBOR {
		var payload any
		if err := cborDec.Unmarshal(body, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after request")
	}
	return payload, nil
}
