package jsonrpc

import (
	"context"

	"github.com/mnehpets/onerpc/codec"
)

// CodecServer wraps a Server with a structural codec: payloads are
// decoded before the wrapped server sees them and responses are encoded
// on the way back out. Parse and BuildErrorResponse delegate to the
// wrapped server untouched, so validation and error mapping behave
// identically with or without the codec.
type CodecServer struct {
	inner Server
	codec codec.Codec
}

// WithCodec wraps server with c. Wrapping is composable; each layer
// decodes before and encodes after the one beneath it.
func WithCodec(server Server, c codec.Codec) *CodecServer {
	return &CodecServer{inner: server, codec: c}
}

// Parse delegates to the wrapped server.
func (s *CodecServer) Parse(payload any) Parsed { return s.inner.Parse(payload) }

// BuildErrorResponse delegates to the wrapped server.
func (s *CodecServer) BuildErrorResponse(id any, err error) *Response {
	return s.inner.BuildErrorResponse(id, err)
}

// Process decodes payload, runs the wrapped server on the decoded value
// and re-encodes the response. A payload the codec rejects never
// reaches the wrapped server: it yields a decode-error response whose
// id is recovered, best effort, by parsing the still-encoded payload.
// The Result reports the raw payload as given, not the decoded form.
//
// The non-nil error return is reserved for the codec failing to encode
// the outgoing response; no usable response exists in that case.
func (s *CodecServer) Process(ctx context.Context, payload any) (*Result, error) {
	decoded, derr := s.codec.Decode(payload)
	if derr != nil {
		var id any
		if p := s.inner.Parse(payload); p.OK {
			id = p.Request.ID
		}
		return &Result{
			Payload:  payload,
			Response: s.inner.BuildErrorResponse(id, NewError(DecodeError)),
			Err:      derr,
		}, nil
	}

	res, err := s.inner.Process(ctx, decoded)
	if err != nil {
		return nil, err
	}
	encoded, err := s.encodeResponse(res.Response)
	if err != nil {
		return nil, err
	}
	res.Response = encoded
	return res, nil
}

// encodeResponse re-encodes the application-supplied halves of a
// response. The envelope itself, version, id, error code and message,
// is made of primitives every codec passes through, so transforming
// Result and error Data is the same as encoding the whole record.
func (s *CodecServer) encodeResponse(resp *Response) (*Response, error) {
	out := *resp
	if resp.Error != nil {
		if resp.Error.Data == nil {
			return &out, nil
		}
		data, err := s.codec.Encode(resp.Error.Data)
		if err != nil {
			return nil, err
		}
		e := *resp.Error
		e.Data = data
		out.Error = &e
		return &out, nil
	}
	result, err := s.codec.Encode(resp.Result)
	if err != nil {
		return nil, err
	}
	out.Result = result
	return &out, nil
}
