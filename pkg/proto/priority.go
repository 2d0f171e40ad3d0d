package proto

import (
	"go.uber.org/zap"

	"github.com/roiedanino/ucx/pkg/lane"
	"github.com/roiedanino/ucx/pkg/perf"
)

// Policy picks the winning position among the scanned candidates. Its only
// contract is to return a valid position; the framework handles lane maps
// and reference bookkeeping. Alternative cost functions (bandwidth-max,
// multi-lane aggregation) slot in here without touching the rest.
type Policy func(tuples []perf.Tuple) int

// MinLatency is the default policy: the first candidate achieving the
// minimal latency wins. Ties keep the earliest-discovered candidate, so the
// result is deterministic regardless of float comparison order. The
// earliest-catalog-index tie-break is a documented contract, not an accident.
func MinLatency(tuples []perf.Tuple) int {
	best := 0
	for i := 1; i < len(tuples); i++ {
		if tuples[i].Latency < tuples[best].Latency {
			best = i
		}
	}
	return best
}

// Prioritize decorates base with min-latency lane selection.
//
// The decorated descriptor keeps base's name and description, sets
// FlagPriority, and forwards Progress, Abort and Reset by identity: steady
// state costs nothing. Init runs base's init first, then lane selection;
// Query runs base's query, then the (currently empty) selection report.
// Decorated descriptors compose: the result can be the base of another
// decorator.
func Prioritize(base Descriptor) Descriptor {
	return PrioritizeWith(base, MinLatency)
}

// PrioritizeWith decorates base with a specific selection policy.
func PrioritizeWith(base Descriptor, pick Policy) Descriptor {
	baseInit := base.Init
	baseQuery := base.Query
	return Descriptor{
		Name:  base.Name,
		Desc:  base.Desc,
		Flags: base.Flags | FlagPriority,
		Init: func(p *InitParams) error {
			if err := baseInit(p); err != nil {
				return err
			}
			return priorityInit(p, pick)
		},
		Query: func(q *QueryParams, a *Attr) {
			baseQuery(q, a)
			priorityQuery(q, a)
		},
		Progress: base.Progress,
		Abort:    base.Abort,
		Reset:    base.Reset,
	}
}

// priorityInit checks preconditions, runs selection and fills the caller's
// output slots. The PrivSize handshake is written only on success.
func priorityInit(p *InitParams, pick Policy) error {
	if !p.errHandlingOK() {
		return ErrUnsupported
	}
	if p.NumPriorityLanes == 0 {
		// no need for priority lanes
		return nil
	}

	sel, err := selectLanes(p, pick)
	if err != nil {
		return err
	}
	*p.Priv = sel
	*p.PrivSize = SelectionSize
	return nil
}

// selectLanes scans the candidate lanes in catalog order and retains
// exactly one attribution-node reference, handed to the aggregator's output
// graph. Every other acquired reference is released on all exit paths.
func selectLanes(p *InitParams, pick Policy) (Selection, error) {
	cands := p.Endpoint.FindLanes(p.CapFlags, p.Category, p.Exclude, p.maxCandidates())
	if len(cands) == 0 {
		zap.L().Debug("no priority lanes",
			zap.String("proto", p.Proto),
			zap.Stringer("category", p.Category),
			zap.Stringer("caps", p.CapFlags))
		return Selection{}, ErrNoEligibleLane
	}

	tuples := make([]perf.Tuple, 0, len(cands))
	nodes := make([]*perf.Node, 0, len(cands))
	for _, l := range cands {
		t, node, err := p.Provider.LanePerf(l)
		if err != nil {
			// abort the scan; leave the graph exactly as found
			for _, n := range nodes {
				n.Deref()
			}
			return Selection{}, err
		}
		// hold the node while further queries may invalidate transient ones
		node.Ref()
		nodes = append(nodes, node)
		tuples = append(tuples, t)
	}

	best := pick(tuples)
	if best < 0 || best >= len(cands) {
		panic("proto: selection policy returned position out of range")
	}

	lm := lane.Map(0).With(cands[best])
	sel := Selection{
		RegDomains: p.Endpoint.RegDomainMap(lm),
		Lanes:      lm,
		NumLanes:   uint8(lm.Count()),
	}

	// The retained reference transfers into the aggregated capability
	// descriptor; on aggregator failure it is released like the rest.
	err := p.Aggregator.Aggregate(p, sel.RegDomains, nodes[best])
	for i, n := range nodes {
		if err == nil && i == best {
			continue
		}
		n.Deref()
	}
	if err != nil {
		return Selection{}, err
	}

	zap.L().Debug("priority lane selected",
		zap.Uint8("lane", uint8(cands[best])),
		zap.Float64("latency", tuples[best].Latency),
		zap.Int("candidates", len(cands)))
	return sel, nil
}

// priorityQuery appends selection-specific reporting to the base query.
// Currently empty; the slot exists so a future revision can report the
// chosen lane without touching callers.
func priorityQuery(_ *QueryParams, _ *Attr) {
}
