package transport

import (
	"bufio"
	"net"
	"sync"
	"time"
)

// connLink adapts any net.Conn into a Link with u32-LE framing.
// Used by the stream-based transports (mem, tcp, pipe).
type connLink struct {
	kind Kind
	c    net.Conn

	mu sync.Mutex // serializes writers
	br *bufio.Reader
	bw *bufio.Writer

	establishedAt time.Time
	lastSeen      time.Time
}

// NewConnLink wraps an established net.Conn as a framed Link.
func NewConnLink(kind Kind, c net.Conn) Link {
	return &connLink{
		kind:          kind,
		c:             c,
		br:            bufio.NewReader(c),
		bw:            bufio.NewWriter(c),
		establishedAt: time.Now(),
	}
}

func (l *connLink) Kind() Kind           { return l.kind }
func (l *connLink) LocalAddr() net.Addr  { return l.c.LocalAddr() }
func (l *connLink) RemoteAddr() net.Addr { return l.c.RemoteAddr() }

func (l *connLink) SendFrame(b []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := WriteFrame(l.bw, b); err != nil {
		return err
	}
	l.lastSeen = time.Now()
	return nil
}

func (l *connLink) RecvFrame() ([]byte, error) {
	b, err := ReadFrame(l.br)
	if err != nil {
		return nil, err
	}
	l.lastSeen = time.Now()
	return b, nil
}

func (l *connLink) Quality() Quality {
	return Quality{EstablishedAt: l.establishedAt, LastSeen: l.lastSeen}
}

func (l *connLink) Close() error { return l.c.Close() }
