// Package scfia implements the SCFIA Context (spec.md §4.3): the
// factory and registry for every live and retired Expression Node
// belonging to one symbolic execution thread. This is the hard core of
// the engine — constant folding, node insertion, retirement, assertion,
// cloning and monomorphization all live here, built directly on
// internal/expr's node shape and internal/solver's SMT boundary.
package scfia

import (
	"sort"
	"sync/atomic"

	"github.com/cwbudde/go-scfia/internal/diag"
	"github.com/cwbudde/go-scfia/internal/expr"
	"github.com/cwbudde/go-scfia/internal/solver"
)

var nextContextID uint64

// ForkSink is the narrow surface the factories and CheckCondition need
// from a fork observer (spec.md §4.4). It is declared here, not in
// package forksink, so that this package never has to import the
// concrete Sink type — forksink imports scfia instead, breaking what
// would otherwise be an import cycle (the sink must itself call back
// into a cloned Context to assert the negated branch).
type ForkSink interface {
	// PushValue keeps a newly constructed node alive across cloning by
	// holding a strong reference to it for the duration of the step.
	PushValue(n *expr.Node)
	// Fork clones the base state captured at the start of the step and
	// asserts predicate — already the negation CheckCondition computed —
	// into the clone's own context (predicate's id, looked up in the
	// fresh clone, since predicate itself belongs to the context being
	// forked away from), then records the clone as a produced successor
	// state.
	Fork(predicate *expr.Node)
}

// Context is one SCFIA context: the id counter, the active/retired
// node registries, and the solver context/solver pair it owns
// (spec.md §3's "Context (SCFIA)"). Contexts are disjoint — a node
// never interoperates with a sibling context's nodes (spec.md §3
// invariant, §7 "cross-context use").
type Context struct {
	id     uint64
	nextID uint64

	active  map[uint64]*expr.Node
	retired map[uint64]*expr.RetiredNode

	solverCtx *solver.Context
	solver    *solver.Solver
}

// New constructs an empty SCFIA context with its own solver context
// and solver instance (spec.md §4.1 "mk_context").
func New() *Context {
	solverCtx := solver.NewContext()
	return &Context{
		id:        atomic.AddUint64(&nextContextID, 1),
		active:    make(map[uint64]*expr.Node),
		retired:   make(map[uint64]*expr.RetiredNode),
		solverCtx: solverCtx,
		solver:    solverCtx.NewSolver(),
	}
}

// ID identifies this context, used by expr.Node.CtxID to detect
// cross-context use.
func (c *Context) ID() uint64 { return c.id }

func (c *Context) allocID() uint64 {
	c.nextID++
	return c.nextID
}

// Lookup returns the active node with the given id, or nil.
func (c *Context) Lookup(id uint64) *expr.Node { return c.active[id] }

// LookupRetired returns the retired record with the given id, or nil.
func (c *Context) LookupRetired(id uint64) *expr.RetiredNode { return c.retired[id] }

// IsActive reports whether id currently names a live node.
func (c *Context) IsActive(id uint64) bool { _, ok := c.active[id]; return ok }

// IsRetired reports whether id currently names a retired record.
func (c *Context) IsRetired(id uint64) bool { _, ok := c.retired[id]; return ok }

// ActiveCount and RetiredCount support invariant tests (spec.md §8).
func (c *Context) ActiveCount() int  { return len(c.active) }
func (c *Context) RetiredCount() int { return len(c.retired) }

// ActiveIDs returns every active node id in ascending order.
func (c *Context) ActiveIDs() []uint64 {
	ids := make([]uint64, 0, len(c.active))
	for id := range c.active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RetiredIDs returns every retired node id in ascending order.
func (c *Context) RetiredIDs() []uint64 {
	ids := make([]uint64, 0, len(c.retired))
	for id := range c.retired {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SolverContext exposes the underlying solver context for components
// that need to build solver ASTs directly.
func (c *Context) SolverContext() *solver.Context { return c.solverCtx }

func (c *Context) insertActive(n *expr.Node) {
	if _, exists := c.active[n.ID]; exists {
		diag.Fatalf(diag.KindInvariant, "node %d already active", n.ID)
	}
	c.active[n.ID] = n
}
