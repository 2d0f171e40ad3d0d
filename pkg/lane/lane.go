// Package lane models the per-endpoint table of transport lanes and the
// capability matching used to pick candidates for a protocol.
package lane

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"

	"github.com/roiedanino/ucx/pkg/transport"
)

// MaxLanes is the hard cap on lanes per endpoint. Candidate buffers are
// sized against it; exceeding it is a configuration bug, not a runtime state.
const MaxLanes = 16

// Index identifies one configured lane on an endpoint.
type Index uint8

// CapFlags is a bitmask of transport-level capabilities a lane supports.
type CapFlags uint64

const (
	CapActiveMessage CapFlags = 1 << iota
	CapPut
	CapGet
	CapAtomics
	CapTagMatch
	CapKeyExchange
	CapErrHandling
)

var capNames = map[string]CapFlags{
	"am":           CapActiveMessage,
	"put":          CapPut,
	"get":          CapGet,
	"atomics":      CapAtomics,
	"tag":          CapTagMatch,
	"key-exchange": CapKeyExchange,
	"err-handling": CapErrHandling,
}

// ParseCaps converts config-level capability names into a bitmask.
func ParseCaps(names []string) (CapFlags, error) {
	var out CapFlags
	for _, n := range names {
		f, ok := capNames[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return 0, fmt.Errorf("unknown capability: %q", n)
		}
		out |= f
	}
	return out, nil
}

// Has reports whether all flags in want are present.
func (c CapFlags) Has(want CapFlags) bool { return c&want == want }

func (c CapFlags) String() string {
	var parts []string
	for name, f := range capNames {
		if c&f != 0 {
			parts = append(parts, name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	// map iteration order is random; normalize for logs
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// Category constrains lane eligibility independently of capability flags.
type Category int

const (
	CatData Category = iota
	CatControl
	CatKeyExchange
)

func (c Category) String() string {
	switch c {
	case CatData:
		return "data"
	case CatControl:
		return "control"
	case CatKeyExchange:
		return "key-exchange"
	default:
		return "unknown"
	}
}

// ParseCategory maps a config string to a Category.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "data":
		return CatData, nil
	case "control":
		return CatControl, nil
	case "key-exchange", "keyexchange":
		return CatKeyExchange, nil
	default:
		return 0, fmt.Errorf("unknown lane category: %q", s)
	}
}

// Map is a bitmask of lane indices.
type Map uint64

// With returns the map with lane i set.
func (m Map) With(i Index) Map { return m | 1<<uint(i) }

// Has reports whether lane i is set.
func (m Map) Has(i Index) bool { return m&(1<<uint(i)) != 0 }

// Count returns the number of lanes set.
func (m Map) Count() int { return bits.OnesCount64(uint64(m)) }

// DomainMap is a bitmask of memory-domain indices.
type DomainMap uint64

// With returns the map with domain d set.
func (m DomainMap) With(d uint8) DomainMap { return m | 1<<uint(d) }

// Has reports whether domain d is set.
func (m DomainMap) Has(d uint8) bool { return m&(1<<uint(d)) != 0 }

// Lane is one configured transport endpoint slot. Lanes are owned by the
// endpoint configuration and outlive any single selection call.
type Lane struct {
	Kind     transport.Kind
	Address  string // transport-specific address, informational
	Caps     CapFlags
	Category Category
	Domain   uint8 // memory domain backing this lane
}
