package transport

import (
	"bytes"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

var pingFrame = []byte("ucx-ping")

// Probe measures round-trip time over a link whose peer runs Echo.
// It returns the minimum RTT over rounds, which the performance model
// treats as the lane's measured latency.
func Probe(ctx context.Context, l Link, rounds int) (time.Duration, error) {
	if rounds <= 0 {
		rounds = 3
	}
	best := time.Duration(0)
	for i := 0; i < rounds; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		start := time.Now()
		if err := l.SendFrame(pingFrame); err != nil {
			return 0, err
		}
		reply, err := l.RecvFrame()
		if err != nil {
			return 0, err
		}
		if !bytes.Equal(reply, pingFrame) {
			return 0, errors.New("probe: unexpected reply frame")
		}
		rtt := time.Since(start)
		if best == 0 || rtt < best {
			best = rtt
		}
	}
	zap.L().Debug("lane probed", zap.Stringer("kind", l.Kind()), zap.Duration("rtt", best))
	return best, nil
}

// Echo answers probe frames until the link closes or ctx is done.
// Intended for the passive side of a probe exchange and for tests.
func Echo(ctx context.Context, l Link) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := l.RecvFrame()
		if err != nil {
			return err
		}
		if err := l.SendFrame(b); err != nil {
			return err
		}
	}
}
