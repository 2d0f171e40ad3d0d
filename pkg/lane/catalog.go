package lane

import (
	"fmt"
)

// Endpoint owns the ordered lane table for one communication context.
// The table is fixed at construction; selection calls only read it.
type Endpoint struct {
	lanes []Lane
}

// NewEndpoint builds an endpoint from a lane table. Lane indices follow
// slice order and stay stable for the endpoint's lifetime.
func NewEndpoint(lanes []Lane) (*Endpoint, error) {
	if len(lanes) > MaxLanes {
		return nil, fmt.Errorf("too many lanes: %d > %d", len(lanes), MaxLanes)
	}
	return &Endpoint{lanes: append([]Lane(nil), lanes...)}, nil
}

// NumLanes returns the number of configured lanes.
func (e *Endpoint) NumLanes() int { return len(e.lanes) }

// Lane returns the lane config at index i.
func (e *Endpoint) Lane(i Index) Lane { return e.lanes[i] }

// FindLanes returns, in ascending index order, the lanes whose capabilities
// are a superset of caps, whose category matches, and which are not excluded.
// An empty result is not an error; the caller decides what emptiness means.
// More than max matches is a static sizing mistake and panics.
func (e *Endpoint) FindLanes(caps CapFlags, cat Category, exclude Map, max int) []Index {
	out := make([]Index, 0, max)
	for i := range e.lanes {
		idx := Index(i)
		if exclude.Has(idx) {
			continue
		}
		l := &e.lanes[i]
		if l.Category != cat || !l.Caps.Has(caps) {
			continue
		}
		if len(out) == max {
			panic(fmt.Sprintf("lane candidates exceed cap %d on endpoint with %d lanes", max, len(e.lanes)))
		}
		out = append(out, idx)
	}
	return out
}

// SupportsErrHandling reports whether any lane can satisfy a protocol that
// requires transport-level error handling.
func (e *Endpoint) SupportsErrHandling() bool {
	for i := range e.lanes {
		if e.lanes[i].Caps.Has(CapErrHandling) {
			return true
		}
	}
	return false
}

// RegDomainMap returns the memory domains that must be registered to
// transfer over the lanes in m. Pure function of the endpoint config;
// a lane's domain mapping is always well-defined once the lane exists.
func (e *Endpoint) RegDomainMap(m Map) DomainMap {
	var out DomainMap
	for i := range e.lanes {
		if m.Has(Index(i)) {
			out = out.With(e.lanes[i].Domain)
		}
	}
	return out
}
