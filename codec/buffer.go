package codec

import (
	"encoding/base64"
	"fmt"
)

// BufferMarker tags the wire record the Buffer codec owns. A record of
// the exact shape {"marker": "Buffer", "base64": "..."} is always a
// Buffer wire form; no other codec or application value may use it.
const BufferMarker = "Buffer"

const (
	bufferMarkerKey = "marker"
	bufferDataKey   = "base64"
)

// Buffer carries []byte values through JSON-compatible trees.
//
// Encode walks a tree and replaces every []byte with the record
// {"marker": "Buffer", "base64": <standard base64>}. Decode walks the
// opposite direction, replacing every record of exactly that shape
// with the decoded bytes. Both directions recurse through nil, []any
// and map[string]any; every other value passes through unchanged, so
// the codec never reaches into application-defined types.
type Buffer struct{}

// Encode rewrites every []byte in v into its tagged wire record.
func (b Buffer) Encode(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			enc, err := b.Encode(el)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	case []byte:
		return map[string]any{
			bufferMarkerKey: BufferMarker,
			bufferDataKey:   base64.StdEncoding.EncodeToString(t),
		}, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, el := range t {
			enc, err := b.Encode(el)
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	default:
		return v, nil
	}
}

// Decode rewrites every tagged wire record in v back into []byte. A
// record carrying the marker but malformed base64 fails the whole
// decode.
func (b Buffer) Decode(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			dec, err := b.Decode(el)
			if err != nil {
				return nil, err
			}
			out[i] = dec
		}
		return out, nil
	case map[string]any:
		if isBufferRecord(t) {
			return decodeBufferRecord(t)
		}
		out := make(map[string]any, len(t))
		for k, el := range t {
			dec, err := b.Decode(el)
			if err != nil {
				return nil, err
			}
			out[k] = dec
		}
		return out, nil
	default:
		return v, nil
	}
}

// isBufferRecord reports whether m carries the Buffer wire shape: the
// marker field holds the tag and the data field is present. Field
// contents are checked by decodeBufferRecord.
func isBufferRecord(m map[string]any) bool {
	if m[bufferMarkerKey] != BufferMarker {
		return false
	}
	_, ok := m[bufferDataKey]
	return ok
}

func decodeBufferRecord(m map[string]any) ([]byte, error) {
	s, ok := m[bufferDataKey].(string)
	if !ok {
		return nil, fmt.Errorf("codec: buffer record field %q is %T, want string", bufferDataKey, m[bufferDataKey])
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("codec: decode buffer record: %w", err)
	}
	return raw, nil
}
