package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestBindStruct(t *testing.T) {
	params := map[string]any{
		"name":  "alice",
		"count": json.Number("3"),
		"tags":  []any{"a", "b"},
	}
	var dst struct {
		Name  string   `json:"name"`
		Count int      `json:"count"`
		Tags  []string `json:"tags"`
	}
	if err := Bind(params, &dst); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if dst.Name != "alice" || dst.Count != 3 {
		t.Errorf("got %+v", dst)
	}
	if !reflect.DeepEqual(dst.Tags, []string{"a", "b"}) {
		t.Errorf("got tags %v, want [a b]", dst.Tags)
	}
}

func TestBindSlice(t *testing.T) {
	params := []any{json.Number("1"), json.Number("2.5"), float64(3)}
	var nums []float64
	if err := Bind(params, &nums); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if !reflect.DeepEqual(nums, []float64{1, 2.5, 3}) {
		t.Errorf("got %v", nums)
	}
}

func TestBindBlob(t *testing.T) {
	params := map[string]any{"data": []byte{1, 2, 3}}
	var dst struct {
		Data []byte `json:"data"`
	}
	if err := Bind(params, &dst); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if !bytes.Equal(dst.Data, []byte{1, 2, 3}) {
		t.Errorf("got %v, want [1 2 3]", dst.Data)
	}
}

func TestBindNilParams(t *testing.T) {
	dst := struct {
		Name string `json:"name"`
	}{Name: "unchanged"}
	if err := Bind(nil, &dst); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if dst.Name != "unchanged" {
		t.Errorf("got %q, want untouched dst", dst.Name)
	}
}

func TestBindShapeMismatch(t *testing.T) {
	var nums []float64
	err := Bind("not an array", &nums)
	if !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("got %v, want invalid params", err)
	}
	var typed *Error
	if !errors.As(err, &typed) {
		t.Fatalf("got %T, want *Error", err)
	}
	if typed.Data() == nil {
		t.Error("expected decode reason in error data")
	}
}

func TestBindBadDst(t *testing.T) {
	if err := Bind(map[string]any{}, nil); err == nil {
		t.Error("expected error for nil dst")
	}
	var dst struct{}
	if err := Bind(map[string]any{}, dst); err == nil {
		t.Error("expected error for non-pointer dst")
	}
}
