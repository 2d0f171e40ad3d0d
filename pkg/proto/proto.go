// Package proto implements the protocol descriptor framework: polymorphic
// protocol configurations, the priority decorator, and performance-driven
// lane selection executed once per configuration build.
package proto

import (
	"sort"
	"sync"
)

// Flags is a bitmask of descriptor properties.
type Flags uint32

const (
	// FlagPriority marks a descriptor decorated with priority lane selection.
	FlagPriority Flags = 1 << iota
)

// Behavior signatures. Init and Query run at configuration-build time;
// Progress, Abort and Reset are the steady-state behaviors and must never
// pay for decoration (the decorator forwards them by identity).
type (
	InitFunc     func(*InitParams) error
	QueryFunc    func(*QueryParams, *Attr)
	ProgressFunc func(*Request) error
	AbortFunc    func(*Request, error)
	ResetFunc    func(*Request) error
)

// Descriptor is one named way to execute a messaging operation.
type Descriptor struct {
	Name string
	Desc string

	Flags Flags

	Init     InitFunc
	Query    QueryFunc
	Progress ProgressFunc
	Abort    AbortFunc
	Reset    ResetFunc
}

// Request carries the per-operation state consumed by steady-state
// behaviors. Priv is written once during the configuration build and read
// verbatim afterwards.
type Request struct {
	Priv Selection
}

// QueryParams mirrors the base protocol's query input.
type QueryParams struct {
	// MsgLength is the operation size the query describes.
	MsgLength int
}

// Attr is the query report. The decorator's extra reporting slot is
// currently empty but reserved (e.g. for the chosen lane).
type Attr struct {
	Desc   string
	Config string
}

// Registry maps protocol names to descriptors. Decoration happens at
// registration time, never per call.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Descriptor
}

func NewRegistry() *Registry { return &Registry{byName: make(map[string]Descriptor)} }

// Register adds a descriptor under its name.
func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	r.byName[d.Name] = d
	r.mu.Unlock()
}

// RegisterPrioritized registers d and its priority-decorated variant under
// d.Name + ".priority".
func (r *Registry) RegisterPrioritized(d Descriptor) {
	p := Prioritize(d)
	p.Name = d.Name + ".priority"
	r.mu.Lock()
	r.byName[d.Name] = d
	r.byName[p.Name] = p
	r.mu.Unlock()
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	d, ok := r.byName[name]
	r.mu.RUnlock()
	return d, ok
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
