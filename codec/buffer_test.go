package codec

import (
	"reflect"
	"testing"
)

func TestBufferEncode(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{
			name: "nil",
			in:   nil,
			want: nil,
		},
		{
			name: "bytes become tagged record",
			in:   []byte{1, 2, 3},
			want: map[string]any{"marker": "Buffer", "base64": "AQID"},
		},
		{
			name: "empty bytes",
			in:   []byte{},
			want: map[string]any{"marker": "Buffer", "base64": ""},
		},
		{
			name: "bytes inside record",
			in:   map[string]any{"name": "avatar.png", "data": []byte("hi")},
			want: map[string]any{"name": "avatar.png", "data": map[string]any{"marker": "Buffer", "base64": "aGk="}},
		},
		{
			name: "bytes inside sequence",
			in:   []any{"a", []byte{0xff}, float64(7)},
			want: []any{"a", map[string]any{"marker": "Buffer", "base64": "/w=="}, float64(7)},
		},
		{
			name: "nested records and sequences",
			in: map[string]any{
				"files": []any{
					map[string]any{"body": []byte("one")},
					map[string]any{"body": []byte("two")},
				},
			},
			want: map[string]any{
				"files": []any{
					map[string]any{"body": map[string]any{"marker": "Buffer", "base64": "b25l"}},
					map[string]any{"body": map[string]any{"marker": "Buffer", "base64": "dHdv"}},
				},
			},
		},
		{
			name: "primitives pass through",
			in:   map[string]any{"n": float64(1), "s": "x", "b": true, "z": nil},
			want: map[string]any{"n": float64(1), "s": "x", "b": true, "z": nil},
		},
		{
			name: "unrecognized concrete type passes through",
			in:   map[string]any{"when": struct{ Y int }{2024}},
			want: map[string]any{"when": struct{ Y int }{2024}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Buffer{}.Encode(tt.in)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestBufferDecode(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{
			name: "tagged record becomes bytes",
			in:   map[string]any{"marker": "Buffer", "base64": "AQID"},
			want: []byte{1, 2, 3},
		},
		{
			name: "tagged record inside tree",
			in: map[string]any{
				"items": []any{map[string]any{"marker": "Buffer", "base64": "aGk="}},
			},
			want: map[string]any{"items": []any{[]byte("hi")}},
		},
		{
			name: "wrong marker passes through",
			in:   map[string]any{"marker": "File", "base64": "aGk="},
			want: map[string]any{"marker": "File", "base64": "aGk="},
		},
		{
			name: "marker without data field passes through",
			in:   map[string]any{"marker": "Buffer"},
			want: map[string]any{"marker": "Buffer"},
		},
		{
			name: "non-string marker passes through",
			in:   map[string]any{"marker": float64(1), "base64": "aGk="},
			want: map[string]any{"marker": float64(1), "base64": "aGk="},
		},
		{
			name: "nil",
			in:   nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Buffer{}.Decode(tt.in)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestBufferDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{
			name: "invalid base64",
			in:   map[string]any{"marker": "Buffer", "base64": "!!not base64!!"},
		},
		{
			name: "non-string data field",
			in:   map[string]any{"marker": "Buffer", "base64": float64(42)},
		},
		{
			name: "malformed record deep in tree",
			in: map[string]any{
				"ok":  map[string]any{"marker": "Buffer", "base64": "aGk="},
				"bad": []any{map[string]any{"marker": "Buffer", "base64": "%"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (Buffer{}).Decode(tt.in); err == nil {
				t.Error("Decode succeeded, want error")
			}
		})
	}
}

func TestBufferRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    any
	}{
		{"bare bytes", []byte("payload")},
		{"record with bytes", map[string]any{"id": "f1", "data": []byte{0, 1, 0xfe, 0xff}}},
		{"sequence of blobs", []any{[]byte("a"), []byte("b"), []byte("c")}},
		{
			"mixed tree",
			map[string]any{
				"meta":  map[string]any{"n": float64(3), "tag": "x"},
				"parts": []any{[]byte("alpha"), "beta", nil, float64(1.5)},
			},
		},
		{"no blobs at all", map[string]any{"a": []any{"b", float64(2), nil}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := Buffer{}.Encode(tt.v)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			dec, err := Buffer{}.Decode(enc)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !reflect.DeepEqual(dec, tt.v) {
				t.Errorf("round trip got %#v, want %#v", dec, tt.v)
			}
		})
	}
}
