package proto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/roiedanino/ucx/pkg/lane"
	"github.com/roiedanino/ucx/pkg/perf"
	"github.com/roiedanino/ucx/pkg/transport"
)

// stubProvider serves canned tuples and tracks which lanes were queried.
type stubProvider struct {
	tuples map[lane.Index]perf.Tuple
	nodes  map[lane.Index]*perf.Node
	failOn map[lane.Index]error
	calls  []lane.Index
}

func newStubProvider(latencies map[lane.Index]float64) *stubProvider {
	p := &stubProvider{
		tuples: make(map[lane.Index]perf.Tuple),
		nodes:  make(map[lane.Index]*perf.Node),
		failOn: make(map[lane.Index]error),
	}
	for l, lat := range latencies {
		p.tuples[l] = perf.Tuple{Latency: lat, Bandwidth: 1e9}
		p.nodes[l] = perf.NewNode("tl:stub")
	}
	return p
}

func (p *stubProvider) LanePerf(l lane.Index) (perf.Tuple, *perf.Node, error) {
	p.calls = append(p.calls, l)
	if err := p.failOn[l]; err != nil {
		return perf.Tuple{}, nil, err
	}
	return p.tuples[l], p.nodes[l], nil
}

// stubAgg records aggregation calls and optionally fails.
type stubAgg struct {
	err   error
	nodes []*perf.Node
	regs  []lane.DomainMap
}

func (a *stubAgg) Aggregate(_ *InitParams, reg lane.DomainMap, node *perf.Node) error {
	if a.err != nil {
		return a.err
	}
	a.nodes = append(a.nodes, node)
	a.regs = append(a.regs, reg)
	return nil
}

func dataEndpoint(t *testing.T, n int) *lane.Endpoint {
	t.Helper()
	lanes := make([]lane.Lane, n)
	for i := range lanes {
		lanes[i] = lane.Lane{
			Kind:     transport.KindTCP,
			Caps:     lane.CapActiveMessage,
			Category: lane.CatData,
			Domain:   uint8(i),
		}
	}
	ep, err := lane.NewEndpoint(lanes)
	if err != nil {
		t.Fatalf("NewEndpoint: %v", err)
	}
	return ep
}

func noopBase() Descriptor {
	return Descriptor{
		Name:     "rndv.base",
		Desc:     "base protocol",
		Init:     func(*InitParams) error { return nil },
		Query:    func(_ *QueryParams, a *Attr) { a.Desc = "base" },
		Progress: func(*Request) error { return nil },
		Abort:    func(*Request, error) {},
		Reset:    func(*Request) error { return nil },
	}
}

func initParams(ep *lane.Endpoint, prov perf.Provider, agg Aggregator) (*InitParams, *Selection, *int) {
	sel := &Selection{}
	size := new(int)
	*size = -1
	return &InitParams{
		Proto:            "rndv.base",
		Endpoint:         ep,
		Provider:         prov,
		Aggregator:       agg,
		CapFlags:         lane.CapActiveMessage,
		Category:         lane.CatData,
		NumPriorityLanes: 1,
		Priv:             sel,
		PrivSize:         size,
	}, sel, size
}

func TestSelectsMinLatencyLane(t *testing.T) {
	ep := dataEndpoint(t, 3)
	prov := newStubProvider(map[lane.Index]float64{0: 120, 1: 45, 2: 80})
	agg := &stubAgg{}
	p, sel, size := initParams(ep, prov, agg)

	d := Prioritize(noopBase())
	if err := d.Init(p); err != nil {
		t.Fatalf("init: %v", err)
	}
	if !sel.Lanes.Has(1) || sel.Lanes.Count() != 1 {
		t.Fatalf("lane map = %b, want exactly lane 1", sel.Lanes)
	}
	if sel.NumLanes != 1 {
		t.Fatalf("num lanes = %d, want 1", sel.NumLanes)
	}
	if !sel.RegDomains.Has(1) {
		t.Fatalf("reg domains = %b, want domain of lane 1", sel.RegDomains)
	}
	if *size != SelectionSize {
		t.Fatalf("priv size = %d, want %d", *size, SelectionSize)
	}
}

func TestTieBreakKeepsEarliestCandidate(t *testing.T) {
	ep := dataEndpoint(t, 4)
	prov := newStubProvider(map[lane.Index]float64{0: 90, 1: 30, 2: 30, 3: 30})
	agg := &stubAgg{}

	for run := 0; run < 5; run++ {
		p, sel, _ := initParams(ep, prov, agg)
		if err := Prioritize(noopBase()).Init(p); err != nil {
			t.Fatalf("init: %v", err)
		}
		if !sel.Lanes.Has(1) || sel.Lanes.Count() != 1 {
			t.Fatalf("run %d: lane map = %b, want lane 1", run, sel.Lanes)
		}
	}
}

func TestEmptyCandidatesFailsBeforeProviderQuery(t *testing.T) {
	ep := dataEndpoint(t, 2)
	prov := newStubProvider(map[lane.Index]float64{0: 1, 1: 2})
	agg := &stubAgg{}
	p, sel, size := initParams(ep, prov, agg)
	p.CapFlags = lane.CapAtomics // nothing matches

	err := Prioritize(noopBase()).Init(p)
	if !errors.Is(err, ErrNoEligibleLane) {
		t.Fatalf("err = %v, want ErrNoEligibleLane", err)
	}
	if len(prov.calls) != 0 {
		t.Fatalf("provider queried %v times on empty catalog", prov.calls)
	}
	if *size != -1 {
		t.Fatalf("priv size written on failure: %d", *size)
	}
	if sel.Lanes != 0 {
		t.Fatalf("priv blob written on failure: %+v", sel)
	}
	for l, n := range prov.nodes {
		if n.Refs() != 1 {
			t.Fatalf("lane %d node refs = %d, want 1 (untouched)", l, n.Refs())
		}
	}
}

func TestReferenceLawOnSuccess(t *testing.T) {
	ep := dataEndpoint(t, 3)
	prov := newStubProvider(map[lane.Index]float64{0: 120, 1: 45, 2: 80})
	agg := &stubAgg{}
	p, _, _ := initParams(ep, prov, agg)

	if err := Prioritize(noopBase()).Init(p); err != nil {
		t.Fatalf("init: %v", err)
	}
	// exactly one reference survives, on the selected node, owned by the
	// aggregator's output graph
	for l, n := range prov.nodes {
		want := 1
		if l == 1 {
			want = 2
		}
		if n.Refs() != want {
			t.Fatalf("lane %d node refs = %d, want %d", l, n.Refs(), want)
		}
	}
	if len(agg.nodes) != 1 || agg.nodes[0] != prov.nodes[1] {
		t.Fatalf("aggregator got %v, want the selected lane's node", agg.nodes)
	}
	agg.nodes[0].Deref()
}

func TestProviderFailureAbortsAndReleases(t *testing.T) {
	ep := dataEndpoint(t, 3)
	prov := newStubProvider(map[lane.Index]float64{0: 120, 1: 45, 2: 80})
	provErr := errors.New("perf model offline")
	prov.failOn[1] = provErr
	agg := &stubAgg{}
	p, _, size := initParams(ep, prov, agg)

	err := Prioritize(noopBase()).Init(p)
	if err != provErr {
		t.Fatalf("err = %v, want provider error propagated verbatim", err)
	}
	if len(prov.calls) != 2 {
		t.Fatalf("scan should stop at the failing candidate, queried %v", prov.calls)
	}
	if prov.nodes[0].Refs() != 1 {
		t.Fatalf("first candidate's reference not released: refs = %d", prov.nodes[0].Refs())
	}
	if prov.nodes[2].Refs() != 1 {
		t.Fatalf("unscanned candidate touched: refs = %d", prov.nodes[2].Refs())
	}
	if *size != -1 {
		t.Fatalf("priv size written on failure: %d", *size)
	}
}

func TestAggregatorFailureReleasesRetainedReference(t *testing.T) {
	ep := dataEndpoint(t, 2)
	prov := newStubProvider(map[lane.Index]float64{0: 10, 1: 20})
	aggErr := errors.New("caps aggregation failed")
	agg := &stubAgg{err: aggErr}
	p, _, size := initParams(ep, prov, agg)

	err := Prioritize(noopBase()).Init(p)
	if err != aggErr {
		t.Fatalf("err = %v, want aggregator error propagated verbatim", err)
	}
	for l, n := range prov.nodes {
		if n.Refs() != 1 {
			t.Fatalf("lane %d node refs = %d, want 1 after failed aggregation", l, n.Refs())
		}
	}
	if *size != -1 {
		t.Fatalf("priv size written on failure: %d", *size)
	}
}

func TestBypassWhenNoPriorityLanesRequested(t *testing.T) {
	ep := dataEndpoint(t, 2)
	prov := newStubProvider(map[lane.Index]float64{0: 10, 1: 20})
	agg := &stubAgg{}
	p, sel, size := initParams(ep, prov, agg)
	p.NumPriorityLanes = 0

	if err := Prioritize(noopBase()).Init(p); err != nil {
		t.Fatalf("init: %v", err)
	}
	if len(prov.calls) != 0 {
		t.Fatalf("bypass must not query the provider, got %v", prov.calls)
	}
	if sel.Lanes != 0 || *size != -1 {
		t.Fatalf("bypass must not write outputs: sel=%+v size=%d", sel, *size)
	}
}

func TestUnsupportedErrHandlingFailsEarly(t *testing.T) {
	ep := dataEndpoint(t, 2) // no CapErrHandling lanes
	prov := newStubProvider(map[lane.Index]float64{0: 10, 1: 20})
	agg := &stubAgg{}
	p, _, _ := initParams(ep, prov, agg)
	p.RequireErrHandling = true

	err := Prioritize(noopBase()).Init(p)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
	if len(prov.calls) != 0 {
		t.Fatalf("no selection work may run before the precondition, got %v", prov.calls)
	}
}

func TestBaseInitFailureSkipsSelection(t *testing.T) {
	ep := dataEndpoint(t, 2)
	prov := newStubProvider(map[lane.Index]float64{0: 10, 1: 20})
	agg := &stubAgg{}
	p, _, _ := initParams(ep, prov, agg)

	baseErr := errors.New("base init failed")
	base := noopBase()
	base.Init = func(*InitParams) error { return baseErr }

	if err := Prioritize(base).Init(p); err != baseErr {
		t.Fatalf("err = %v, want base error", err)
	}
	if len(prov.calls) != 0 {
		t.Fatalf("selection ran after base init failure: %v", prov.calls)
	}
}

func TestSelectionIsIdempotent(t *testing.T) {
	ep := dataEndpoint(t, 3)
	prov := newStubProvider(map[lane.Index]float64{0: 120, 1: 45, 2: 80})
	agg := &stubAgg{}
	d := Prioritize(noopBase())

	var blobs [][]byte
	for run := 0; run < 2; run++ {
		p, sel, _ := initParams(ep, prov, agg)
		if err := d.Init(p); err != nil {
			t.Fatalf("run %d init: %v", run, err)
		}
		b, err := sel.MarshalBinary()
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		blobs = append(blobs, b)
	}
	if !bytes.Equal(blobs[0], blobs[1]) {
		t.Fatalf("priv blobs differ across identical runs:\n%x\n%x", blobs[0], blobs[1])
	}
}

func TestExclusionChangesSelection(t *testing.T) {
	ep := dataEndpoint(t, 3)
	prov := newStubProvider(map[lane.Index]float64{0: 120, 1: 45, 2: 80})
	agg := &stubAgg{}
	p, sel, _ := initParams(ep, prov, agg)
	p.Exclude = lane.Map(0).With(1)

	if err := Prioritize(noopBase()).Init(p); err != nil {
		t.Fatalf("init: %v", err)
	}
	if !sel.Lanes.Has(2) || sel.Lanes.Count() != 1 {
		t.Fatalf("lane map = %b, want lane 2 once lane 1 is excluded", sel.Lanes)
	}
}
