// Package quic provides a QUIC transport; each link is one connection with a
// single bidirectional stream carrying length-prefixed frames.
package quic

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"math/big"
	"net"
	"sync"
	"time"

	quicgo "github.com/quic-go/quic-go"

	"github.com/roiedanino/ucx/pkg/transport"
)

const alpnProto = "ucx"

type Transport struct {
	tlsConf  *tls.Config
	quicConf *quicgo.Config
}

func New() (*Transport, error) {
	// Ephemeral self-signed certificate for the server side; identity is the
	// business of the layers above the lane.
	cert, err := selfSignedCert()
	if err != nil {
		return nil, err
	}
	tlsConf := &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{alpnProto},
		MinVersion:   tls.VersionTLS13,
	}
	return &Transport{tlsConf: tlsConf, quicConf: &quicgo.Config{}}, nil
}

func (t *Transport) Kind() transport.Kind { return transport.KindQUIC }

func (t *Transport) Listen(ctx context.Context, address string) (transport.Listener, error) {
	l, err := quicgo.ListenAddr(address, t.tlsConf, t.quicConf)
	if err != nil {
		return nil, err
	}
	ql := &listener{l: l}
	go func() { <-ctx.Done(); _ = ql.Close() }()
	return ql, nil
}

func (t *Transport) Dial(ctx context.Context, address string) (transport.Link, error) {
	tlsClient := &tls.Config{
		InsecureSkipVerify: true, // lane probes carry no secrets; identity is verified above
		NextProtos:         []string{alpnProto},
		MinVersion:         tls.VersionTLS13,
	}
	c, err := quicgo.DialAddr(ctx, address, tlsClient, t.quicConf)
	if err != nil {
		return nil, err
	}
	st, err := c.OpenStreamSync(ctx)
	if err != nil {
		_ = c.CloseWithError(0, "open stream")
		return nil, err
	}
	lk := newLink(c, st)
	go func() { <-ctx.Done(); _ = lk.Close() }()
	return lk, nil
}

type listener struct {
	l *quicgo.Listener
}

func (l *listener) Addr() net.Addr { return l.l.Addr() }

func (l *listener) Accept(ctx context.Context) (transport.Link, error) {
	c, err := l.l.Accept(ctx)
	if err != nil {
		return nil, err
	}
	st, err := c.AcceptStream(ctx)
	if err != nil {
		_ = c.CloseWithError(0, "accept stream")
		return nil, err
	}
	return newLink(c, st), nil
}

func (l *listener) Close() error { return l.l.Close() }

type link struct {
	c  quicgo.Connection
	st quicgo.Stream

	mu sync.Mutex
	br *bufio.Reader
	bw *bufio.Writer

	establishedAt time.Time
	lastSeen      time.Time
}

func newLink(c quicgo.Connection, st quicgo.Stream) *link {
	return &link{
		c:             c,
		st:            st,
		br:            bufio.NewReader(st),
		bw:            bufio.NewWriter(st),
		establishedAt: time.Now(),
	}
}

func (lk *link) Kind() transport.Kind { return transport.KindQUIC }
func (lk *link) LocalAddr() net.Addr  { return lk.c.LocalAddr() }
func (lk *link) RemoteAddr() net.Addr { return lk.c.RemoteAddr() }

func (lk *link) SendFrame(b []byte) error {
	lk.mu.Lock()
	defer lk.mu.Unlock()
	if err := transport.WriteFrame(lk.bw, b); err != nil {
		return err
	}
	lk.lastSeen = time.Now()
	return nil
}

func (lk *link) RecvFrame() ([]byte, error) {
	b, err := transport.ReadFrame(lk.br)
	if err != nil {
		return nil, err
	}
	lk.lastSeen = time.Now()
	return b, nil
}

func (lk *link) Quality() transport.Quality {
	return transport.Quality{EstablishedAt: lk.establishedAt, LastSeen: lk.lastSeen}
}

func (lk *link) Close() error {
	_ = lk.st.Close()
	return lk.c.CloseWithError(0, "")
}

// selfSignedCert generates a short-lived certificate for local QUIC use.
func selfSignedCert() (tls.Certificate, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}
	tmpl := x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}, nil
}
