package proto

import (
	"bytes"
	"testing"

	"github.com/roiedanino/ucx/pkg/lane"
)

func TestSelectionBinaryLayout(t *testing.T) {
	sel := Selection{
		RegDomains: lane.DomainMap(0).With(3),
		Lanes:      lane.Map(0).With(1),
		NumLanes:   1,
	}
	b, err := sel.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(b) != SelectionSize {
		t.Fatalf("blob size = %d, want %d", len(b), SelectionSize)
	}
	want := []byte{
		0x08, 0, 0, 0, 0, 0, 0, 0, // reg domains, little endian
		0x02, 0, 0, 0, 0, 0, 0, 0, // lane map
		0x01, // lane count
	}
	if !bytes.Equal(b, want) {
		t.Fatalf("blob = %x, want %x", b, want)
	}

	var got Selection
	if err := got.UnmarshalBinary(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != sel {
		t.Fatalf("roundtrip = %+v, want %+v", got, sel)
	}
}

func TestSelectionUnmarshalShortBlob(t *testing.T) {
	var sel Selection
	if err := sel.UnmarshalBinary(make([]byte, SelectionSize-1)); err == nil {
		t.Fatalf("expected error for short blob")
	}
}
