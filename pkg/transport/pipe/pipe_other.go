//go:build !windows

// Package pipe provides a named-pipe transport on Windows hosts.
// On other platforms the transport is unavailable.
package pipe

import (
	"context"
	"errors"

	"github.com/roiedanino/ucx/pkg/transport"
)

var errUnsupported = errors.New("pipe: named pipes are only available on windows")

type Transport struct{}

func New() *Transport { return &Transport{} }

func (t *Transport) Kind() transport.Kind { return transport.KindPipe }

func (t *Transport) Listen(context.Context, string) (transport.Listener, error) {
	return nil, errUnsupported
}

func (t *Transport) Dial(context.Context, string) (transport.Link, error) {
	return nil, errUnsupported
}
