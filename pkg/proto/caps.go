package proto

import (
	"sync"

	"github.com/roiedanino/ucx/pkg/lane"
	"github.com/roiedanino/ucx/pkg/perf"
)

// Aggregator combines the selected registration map and the retained
// attribution node into the protocol's finished capability descriptor.
// Aggregate's error is returned to the init caller verbatim. On success the
// aggregator owns the node reference handed to it. Must be non-nil on any
// InitParams that can reach selection.
type Aggregator interface {
	Aggregate(p *InitParams, reg lane.DomainMap, node *perf.Node) error
}

// Caps is a finished capability/performance descriptor.
type Caps struct {
	Proto      string
	RegDomains lane.DomainMap
	Node       *perf.Node
}

// CapsAggregator is a basic Aggregator that records finished descriptors
// for diagnostics. It holds one node reference per recorded entry until
// Release.
type CapsAggregator struct {
	mu      sync.Mutex
	entries []Caps
}

func NewCapsAggregator() *CapsAggregator { return &CapsAggregator{} }

func (a *CapsAggregator) Aggregate(p *InitParams, reg lane.DomainMap, node *perf.Node) error {
	a.mu.Lock()
	a.entries = append(a.entries, Caps{Proto: p.Proto, RegDomains: reg, Node: node})
	a.mu.Unlock()
	return nil
}

// Entries returns a snapshot of the recorded descriptors.
func (a *CapsAggregator) Entries() []Caps {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Caps(nil), a.entries...)
}

// Release drops the node references held by recorded descriptors.
func (a *CapsAggregator) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		e.Node.Deref()
	}
	a.entries = nil
}
