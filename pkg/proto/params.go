package proto

import (
	"github.com/roiedanino/ucx/pkg/lane"
	"github.com/roiedanino/ucx/pkg/perf"
)

// InitParams is the configuration-build input, extending the base
// protocol's init parameters with the lane-selection requirement and the
// caller-owned output slots.
type InitParams struct {
	// Proto is the configuring protocol's name, for diagnostics.
	Proto string

	Endpoint   *lane.Endpoint
	Provider   perf.Provider
	Aggregator Aggregator

	// CapFlags a lane must support for this protocol.
	CapFlags lane.CapFlags
	// Category constrains eligible lanes regardless of capabilities.
	Category lane.Category
	// Exclude skips lanes regardless of match.
	Exclude lane.Map
	// MaxCandidates bounds the candidate buffer. Zero means lane.MaxLanes.
	// Exceeding it is a contract violation, not a runtime error.
	MaxCandidates int

	// NumPriorityLanes comes from the base init parameters; zero bypasses
	// selection entirely.
	NumPriorityLanes int

	// RequireErrHandling declares the base protocol's error-handling needs.
	RequireErrHandling bool

	// Output slots owned by the caller. Priv receives the selection result;
	// PrivSize receives its exact encoded size on success and is left
	// untouched otherwise.
	Priv     *Selection
	PrivSize *int
}

// errHandlingOK is the precondition checked before any lane work begins.
func (p *InitParams) errHandlingOK() bool {
	if !p.RequireErrHandling {
		return true
	}
	return p.Endpoint.SupportsErrHandling()
}

func (p *InitParams) maxCandidates() int {
	if p.MaxCandidates <= 0 || p.MaxCandidates > lane.MaxLanes {
		return lane.MaxLanes
	}
	return p.MaxCandidates
}
