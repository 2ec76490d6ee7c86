package access

import (
	"context"
	"sync"
)

// Kind enumerates the visible access states.
type Kind int

const (
	KindLoading Kind = iota
	KindDenied
	KindGranted
)

func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindDenied:
		return "denied"
	case KindGranted:
		return "granted"
	}
	return "unknown"
}

// State is Loading, Denied or Granted(name).
type State struct {
	kind    Kind
	name    string
	guestID string
}

func Loading() State { return State{kind: KindLoading} }
func Denied() State { return State{kind: KindDenied} }

// Granted carries the canonical guest name.
func Granted(name, guestID string) State {
	return State{kind: KindGranted, name: name, guestID: guestID}
}

// StateOf converts a settled Result into Denied or Granted.
func StateOf(r Result) State {
	if !r.Authorized {
		return Denied()
	}
	return Granted(r.Name, r.GuestID)
}

func (s State) Kind() Kind { return s.kind }
func (s State) Name() string { return s.name }
func (s State) GuestID() string { return s.guestID }
func (s State) IsGranted() bool { return s.kind == KindGranted }

func (s State) String() string {
	if s.kind == KindGranted {
		return "granted(" + s.name + ")"
	}
	return s.kind.String()
}

// Resolving is satisfied by *Resolver.
type Resolving interface {
	Resolve(ctx context.Context, p Params) Result
}

// Ticket identifies one resolution started on a Gate.
type Ticket struct {
	gen uint64
}

// Gate holds the visible state for one visit. Only the result of the most
// recently started resolution is ever committed.
type Gate struct {
	resolver Resolving

	mu    sync.Mutex
	gen   uint64
	state State
}

// NewGate returns a Gate in the Loading state.
func NewGate(r Resolving) *Gate {
	return &Gate{resolver: r, state: Loading()}
}

// Begin starts a new resolution, superseding any in flight, and moves the
// gate to Loading.
func (g *Gate) Begin() Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	g.state = Loading()
	return Ticket{gen: g.gen}
}

// Commit applies r if t is still the latest ticket. Stale results are
// dropped and Commit returns false.
func (g *Gate) Commit(t Ticket, r Result) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t.gen != g.gen {
		return false
	}
	g.state = StateOf(r)
	return true
}

// Resolve runs a full Begin, Resolve, Commit cycle. The returned bool is
// false when a newer resolution superseded this one.
func (g *Gate) Resolve(ctx context.Context, p Params) (State, bool) {
	t := g.Begin()
	r := g.resolver.Resolve(ctx, p)
	ok := g.Commit(t, r)
	return g.State(), ok
}

// State returns the currently visible state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}
