// Package udp provides a datagram transport; each frame is one datagram.
package udp

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/roiedanino/ucx/pkg/transport"
)

// maxDatagram keeps frames under common path MTU limits with headroom.
const maxDatagram = 64 * 1024

type Transport struct{}

func New() *Transport { return &Transport{} }

func (t *Transport) Kind() transport.Kind { return transport.KindUDP }

func (t *Transport) Listen(ctx context.Context, address string) (transport.Listener, error) {
	pc, err := net.ListenPacket("udp", address)
	if err != nil {
		return nil, err
	}
	l := &listener{pc: pc, newCh: make(chan transport.Link, 8), closeCh: make(chan struct{}), links: make(map[string]*link)}
	go l.readLoop()
	go func() { <-ctx.Done(); _ = l.Close() }()
	return l, nil
}

func (t *Transport) Dial(ctx context.Context, address string) (transport.Link, error) {
	d := &net.Dialer{}
	c, err := d.DialContext(ctx, "udp", address)
	if err != nil {
		return nil, err
	}
	uc := c.(*net.UDPConn)
	lk := newLink(uc.Write, uc.LocalAddr(), uc.RemoteAddr(), uc.Close)
	go lk.connReadLoop(uc)
	go func() { <-ctx.Done(); _ = lk.Close() }()
	return lk, nil
}

// listener demultiplexes datagrams by source address into per-peer links.
type listener struct {
	pc      net.PacketConn
	newCh   chan transport.Link
	closeCh chan struct{}

	mu    sync.Mutex
	links map[string]*link
}

func (l *listener) Addr() net.Addr { return l.pc.LocalAddr() }

func (l *listener) Accept(ctx context.Context) (transport.Link, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closeCh:
		return nil, errors.New("udp: listener closed")
	case s := <-l.newCh:
		return s, nil
	}
}

func (l *listener) Close() error {
	select {
	case <-l.closeCh:
	default:
		close(l.closeCh)
	}
	return l.pc.Close()
}

func (l *listener) readLoop() {
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := l.pc.ReadFrom(buf)
		if err != nil {
			return
		}
		key := from.String()
		l.mu.Lock()
		lk := l.links[key]
		if lk == nil {
			raddr := from
			lk = newLink(
				func(b []byte) (int, error) { return l.pc.WriteTo(b, raddr) },
				l.pc.LocalAddr(), raddr,
				func() error { l.drop(key); return nil },
			)
			l.links[key] = lk
			select {
			case l.newCh <- lk:
			default:
			}
		}
		l.mu.Unlock()
		lk.deliver(append([]byte(nil), buf[:n]...))
	}
}

func (l *listener) drop(key string) {
	l.mu.Lock()
	delete(l.links, key)
	l.mu.Unlock()
}

type link struct {
	mu           sync.Mutex
	send         func([]byte) (int, error)
	laddr, raddr net.Addr
	closef       func() error

	recvCh    chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once

	establishedAt time.Time
	lastSeen      time.Time
}

func newLink(send func([]byte) (int, error), laddr, raddr net.Addr, closef func() error) *link {
	return &link{
		send:          send,
		laddr:         laddr,
		raddr:         raddr,
		closef:        closef,
		recvCh:        make(chan []byte, 32),
		closeCh:       make(chan struct{}),
		establishedAt: time.Now(),
	}
}

func (lk *link) Kind() transport.Kind { return transport.KindUDP }
func (lk *link) LocalAddr() net.Addr  { return lk.laddr }
func (lk *link) RemoteAddr() net.Addr { return lk.raddr }

func (lk *link) SendFrame(b []byte) error {
	if len(b) > maxDatagram {
		return errors.New("udp: frame exceeds datagram limit")
	}
	lk.mu.Lock()
	defer lk.mu.Unlock()
	if _, err := lk.send(b); err != nil {
		return err
	}
	lk.lastSeen = time.Now()
	return nil
}

func (lk *link) RecvFrame() ([]byte, error) {
	select {
	case <-lk.closeCh:
		return nil, errors.New("udp: link closed")
	case b := <-lk.recvCh:
		lk.lastSeen = time.Now()
		return b, nil
	}
}

// deliver hands an inbound datagram to the reader, dropping it when the
// reader is not draining.
func (lk *link) deliver(b []byte) {
	select {
	case <-lk.closeCh:
	case lk.recvCh <- b:
	default:
	}
}

func (lk *link) Quality() transport.Quality {
	return transport.Quality{EstablishedAt: lk.establishedAt, LastSeen: lk.lastSeen}
}

func (lk *link) Close() error {
	var err error
	lk.closeOnce.Do(func() {
		close(lk.closeCh)
		if lk.closef != nil {
			err = lk.closef()
		}
	})
	return err
}

// connReadLoop feeds datagrams from a connected socket into the link.
func (lk *link) connReadLoop(c *net.UDPConn) {
	buf := make([]byte, maxDatagram)
	for {
		n, err := c.Read(buf)
		if err != nil {
			return
		}
		lk.deliver(append([]byte(nil), buf[:n]...))
	}
}
