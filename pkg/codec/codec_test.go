package codec

import (
	"bytes"
	"testing"

	"google.golang.org/protobuf/types/known/structpb"
)

type sample struct {
	Name  string  `json:"name" cbor:"name"`
	Score float64 `json:"score" cbor:"score"`
}

func TestJSONRoundtrip(t *testing.T) {
	c := JSON()
	in := sample{Name: "tcp/:7777", Score: 12.5}
	b, err := c.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out sample
	if err := c.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Fatalf("roundtrip = %+v, want %+v", out, in)
	}
}

func TestCBORDeterministic(t *testing.T) {
	c, err := CBOR()
	if err != nil {
		t.Fatalf("CBOR: %v", err)
	}
	in := map[string]int{"b": 2, "a": 1, "c": 3}
	b1, err := c.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b2, _ := c.Marshal(in)
	if !bytes.Equal(b1, b2) {
		t.Fatalf("canonical encoding must be byte-stable")
	}
	var out map[string]int
	if err := c.Unmarshal(b1, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 3 || out["b"] != 2 {
		t.Fatalf("roundtrip = %v", out)
	}
}

func TestProtoCodec(t *testing.T) {
	c := Proto()
	in, err := structpb.NewStruct(map[string]any{"lane": "quic", "rtt_us": 42.0})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	b, err := c.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := &structpb.Struct{}
	if err := c.Unmarshal(b, out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Fields["lane"].GetStringValue() != "quic" {
		t.Fatalf("roundtrip lost fields: %v", out)
	}
	if _, err := c.Marshal(42); err == nil {
		t.Fatalf("expected error for non-proto value")
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	if r.Get("application/json") == nil {
		t.Fatalf("json codec missing")
	}
	if r.Get("application/x-protobuf") == nil {
		t.Fatalf("proto codec missing")
	}
	if r.Get("application/cbor") != nil {
		t.Fatalf("cbor must require explicit Register")
	}
	c, err := CBOR()
	if err != nil {
		t.Fatalf("CBOR: %v", err)
	}
	r.Register(c)
	if r.Get("application/cbor") == nil {
		t.Fatalf("cbor codec missing after Register")
	}
}
