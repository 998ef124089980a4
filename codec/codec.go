// Package codec implements reversible structural transforms over
// JSON-compatible value trees.
//
// A codec rewrites the parts of a value tree it recognizes and passes
// everything else through untouched. The Buffer codec, for example,
// carries raw bytes through transports that only speak JSON by
// rewriting []byte values into tagged records on the way out and back
// into []byte on the way in.
//
// Codecs are stateless and safe for concurrent use. They are wired in
// front of an RPC server with jsonrpc.WithCodec, which decodes inbound
// payloads before processing and encodes outbound responses after.
package codec

// Codec is a reversible transform over JSON-compatible value trees.
//
// Encode rewrites application values into their wire form; Decode
// rewrites wire forms back into application values. For every value v
// made of the shapes a codec recognizes, Decode(Encode(v)) must
// reproduce v. Values a codec does not recognize pass through both
// directions unchanged.
//
// Decode reports an error when a value claims a wire form the codec
// owns but is malformed; such a payload must not reach application
// code half-transformed.
type Codec interface {
	Encode(v any) (any, error)
	Decode(v any) (any, error)
}
