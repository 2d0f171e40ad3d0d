package mem

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/roiedanino/ucx/pkg/transport"
)

func TestDialListenExchange(t *testing.T) {
	tr := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ln, err := tr.Listen(ctx, "local")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	cli, err := tr.Dial(ctx, "local")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	srv, err := ln.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	msg := []byte("hello lane")
	done := make(chan error, 1)
	go func() { done <- cli.SendFrame(msg) }()
	got, err := srv.RecvFrame()
	if err != nil {
		t.Fatalf("RecvFrame: %v", err)
	}
	if !bytes.Equal(got, msg) {
		t.Fatalf("frame = %q, want %q", got, msg)
	}
	if err := <-done; err != nil {
		t.Fatalf("SendFrame: %v", err)
	}

	if cli.Kind() != transport.KindMem {
		t.Fatalf("kind = %v", cli.Kind())
	}
	_ = cli.Close()
	_ = srv.Close()
}

func TestDialUnknownListener(t *testing.T) {
	tr := New()
	if _, err := tr.Dial(context.Background(), "nope"); err == nil {
		t.Fatalf("expected error for unknown listener")
	}
}

func TestProbeOverMem(t *testing.T) {
	tr := New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ln, err := tr.Listen(ctx, "probe")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go func() {
		srv, err := ln.Accept(ctx)
		if err != nil {
			return
		}
		_ = transport.Echo(ctx, srv)
	}()

	cli, err := tr.Dial(ctx, "probe")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer cli.Close()

	rtt, err := transport.Probe(ctx, cli, 3)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if rtt <= 0 {
		t.Fatalf("rtt = %v, want > 0", rtt)
	}
}

func TestListenerCloseUnblocksAccept(t *testing.T) {
	tr := New()
	ctx := context.Background()
	ln, err := tr.Listen(ctx, "closing")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = ln.Close()
	}()
	if _, err := ln.Accept(ctx); err == nil {
		t.Fatalf("expected error after Close")
	}
}
