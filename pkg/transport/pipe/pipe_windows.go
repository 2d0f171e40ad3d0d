//go:build windows

// Package pipe provides a named-pipe transport on Windows hosts.
package pipe

import (
	"context"
	"errors"
	"net"

	"github.com/Microsoft/go-winio"

	"github.com/roiedanino/ucx/pkg/transport"
)

type Transport struct{}

func New() *Transport { return &Transport{} }

func (t *Transport) Kind() transport.Kind { return transport.KindPipe }

func (t *Transport) Listen(ctx context.Context, pipeName string) (transport.Listener, error) {
	l, err := winio.ListenPipe(pipeName, nil)
	if err != nil {
		return nil, err
	}
	pl := &listener{l: l, closeCh: make(chan struct{})}
	go func() { <-ctx.Done(); _ = pl.Close() }()
	return pl, nil
}

func (t *Transport) Dial(ctx context.Context, pipeName string) (transport.Link, error) {
	c, err := winio.DialPipeContext(ctx, pipeName)
	if err != nil {
		return nil, err
	}
	link := transport.NewConnLink(transport.KindPipe, c)
	go func() { <-ctx.Done(); _ = link.Close() }()
	return link, nil
}

type listener struct {
	l       net.Listener
	closeCh chan struct{}
}

func (l *listener) Addr() net.Addr { return l.l.Addr() }

func (l *listener) Accept(ctx context.Context) (transport.Link, error) {
	type result struct {
		c   net.Conn
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := l.l.Accept()
		ch <- result{c, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closeCh:
		return nil, errors.New("pipe: listener closed")
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		return transport.NewConnLink(transport.KindPipe, r.c), nil
	}
}

func (l *listener) Close() error {
	select {
	case <-l.closeCh:
	default:
		close(l.closeCh)
	}
	return l.l.Close()
}
