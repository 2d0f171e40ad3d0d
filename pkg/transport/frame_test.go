package transport

import (
	"bufio"
	"bytes"
	"testing"
)

func TestFrameRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	payload := []byte("lane control frame")
	if err := WriteFrame(bw, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := ReadFrame(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("frame = %q, want %q", got, payload)
	}
}

func TestFrameEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	if err := WriteFrame(bw, nil); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := ReadFrame(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("frame = %q, want empty", got)
	}
}

func TestFrameOversized(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(bufio.NewWriter(&buf), make([]byte, MaxFrame+1)); err == nil {
		t.Fatalf("expected error for oversized frame")
	}

	var hdr [4]byte
	hdr[3] = 0xff // declared size way past MaxFrame
	if _, err := ReadFrame(bufio.NewReader(bytes.NewReader(hdr[:]))); err == nil {
		t.Fatalf("expected error for oversized declared length")
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindMem, KindTCP, KindUDP, KindQUIC, KindPipe} {
		if got := ParseKind(k.String()); got != k {
			t.Fatalf("ParseKind(%q) = %v, want %v", k.String(), got, k)
		}
	}
	if ParseKind("telepathy") != KindUnknown {
		t.Fatalf("expected KindUnknown for bogus kind")
	}
}
