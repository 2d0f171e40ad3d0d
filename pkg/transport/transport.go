package transport

import (
	"context"
	"net"
	"time"
)

// Kind identifies transport/link type for policy decisions.
type Kind int

const (
	KindUnknown Kind = iota
	KindMem
	KindTCP
	KindUDP
	KindQUIC
	KindPipe
)

func (k Kind) String() string {
	switch k {
	case KindMem:
		return "mem"
	case KindTCP:
		return "tcp"
	case KindUDP:
		return "udp"
	case KindQUIC:
		return "quic"
	case KindPipe:
		return "pipe"
	default:
		return "unknown"
	}
}

// ParseKind maps a config string to a Kind.
func ParseKind(s string) Kind {
	switch s {
	case "mem":
		return KindMem
	case "tcp":
		return KindTCP
	case "udp":
		return KindUDP
	case "quic":
		return KindQUIC
	case "pipe", "winpipe":
		return KindPipe
	default:
		return KindUnknown
	}
}

// Quality captures link quality metrics fed into the performance model.
type Quality struct {
	RTT           time.Duration
	EstablishedAt time.Time
	LastSeen      time.Time
}

// Link is a framed bidirectional connection. Exactly one reader and one
// writer goroutine are expected.
type Link interface {
	Kind() Kind
	LocalAddr() net.Addr
	RemoteAddr() net.Addr

	// SendFrame sends one opaque message frame.
	SendFrame([]byte) error
	// RecvFrame receives the next message frame.
	RecvFrame() ([]byte, error)

	// Quality snapshot for the performance model.
	Quality() Quality

	Close() error
}

// Listener accepts inbound links.
type Listener interface {
	// Accept blocks until an inbound link is available or ctx is done.
	Accept(ctx context.Context) (Link, error)
	// Addr returns the local listening address.
	Addr() net.Addr
	Close() error
}

// Transport provides dialing/listening for a specific link kind.
type Transport interface {
	Kind() Kind
	// Listen starts accepting inbound links on address (transport-specific format).
	Listen(ctx context.Context, address string) (Listener, error)
	// Dial creates an outbound link to address.
	Dial(ctx context.Context, address string) (Link, error)
}
