package lane

import (
	"fmt"

	"github.com/roiedanino/ucx/pkg/config"
	"github.com/roiedanino/ucx/pkg/transport"
)

// kindCaps returns the default capability set a transport kind provides
// when the config does not override it.
func kindCaps(k transport.Kind) CapFlags {
	switch k {
	case transport.KindMem:
		return CapActiveMessage | CapPut | CapGet | CapAtomics | CapTagMatch
	case transport.KindTCP:
		return CapActiveMessage | CapTagMatch | CapErrHandling
	case transport.KindQUIC:
		return CapActiveMessage | CapTagMatch | CapErrHandling
	case transport.KindUDP:
		return CapActiveMessage
	case transport.KindPipe:
		return CapActiveMessage | CapTagMatch
	default:
		return 0
	}
}

// FromConfig builds the endpoint lane table from configuration, preserving
// config order as lane index order.
func FromConfig(cfg *config.Config) (*Endpoint, error) {
	lanes := make([]Lane, 0, len(cfg.Lanes))
	for i, lc := range cfg.Lanes {
		kind := transport.ParseKind(lc.Kind)
		if kind == transport.KindUnknown {
			return nil, fmt.Errorf("lane %d: unknown transport kind %q", i, lc.Kind)
		}
		cat, err := ParseCategory(lc.Category)
		if err != nil {
			return nil, fmt.Errorf("lane %d: %w", i, err)
		}
		caps := kindCaps(kind)
		if len(lc.Caps) > 0 {
			caps, err = ParseCaps(lc.Caps)
			if err != nil {
				return nil, fmt.Errorf("lane %d: %w", i, err)
			}
		}
		lanes = append(lanes, Lane{
			Kind:     kind,
			Address:  lc.Address,
			Caps:     caps,
			Category: cat,
			Domain:   uint8(lc.Domain),
		})
	}
	return NewEndpoint(lanes)
}
