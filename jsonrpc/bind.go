package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// Bind decodes a request's params value into dst, which must be a
// non-nil pointer. The value tree is re-marshalled through
// encoding/json, so struct fields follow the usual `json` tags,
// json.Number params fit numeric fields, and []byte blobs produced by
// a structural codec land in []byte fields.
//
// A nil params leaves dst unchanged. Any shape mismatch comes back as
// an InvalidParams typed error whose data carries the decode reason,
// ready to return from a handler:
//
//	func handle(ctx context.Context, method string, params any) (any, error) {
//	    var p struct {
//	        Name string `json:"name"`
//	    }
//	    if err := jsonrpc.Bind(params, &p); err != nil {
//	        return nil, err
//	    }
//	    ...
//	}
func Bind(params any, dst any) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return errors.New("jsonrpc: bind: dst must be a non-nil pointer")
	}
	if params == nil {
		return nil
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("jsonrpc: bind: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return ErrInvalidParams.WithData(err.Error())
	}
	return nil
}
