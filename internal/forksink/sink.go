// Package forksink implements the Fork Sink (spec.md §4.4): the
// per-step observer a CPU harness hands to every SCFIA factory call
// and to CheckCondition, so that a two-way branch can clone the
// harness's own state type alongside the context it wraps.
//
// Sink is generic over the harness state type S specifically to avoid
// an import cycle: internal/scfia cannot import internal/cpu (cpu
// will need scfia's node and Context types), so the harness-specific
// cloning and resolving logic is supplied here as closures rather than
// this package knowing about cpu.State directly.
package forksink

import (
	"github.com/cwbudde/go-scfia/internal/expr"
	"github.com/cwbudde/go-scfia/internal/scfia"
)

// Produced is one successor state discovered during a step: the
// cloned harness state and the SCFIA context living inside it.
type Produced[S any] struct {
	State S
	Ctx   *scfia.Context
}

// Sink collects every node constructed during one step (so none of
// them are retired mid-step by a caller walking operand refcounts) and
// every successor state a two-way branch forks off.
type Sink[S any] struct {
	base    S
	cloneFn func(S) S
	ctxOf   func(S) *scfia.Context

	held     []*expr.Node
	produced []Produced[S]
}

// New builds a sink around the harness state captured at the start of
// a step. cloneFn must deep-copy S including its SCFIA context
// (typically via (*scfia.Context).Clone); ctxOf extracts the context
// from a (possibly just-cloned) state so Sink can assert into it.
func New[S any](base S, cloneFn func(S) S, ctxOf func(S) *scfia.Context) *Sink[S] {
	return &Sink[S]{base: base, cloneFn: cloneFn, ctxOf: ctxOf}
}

// PushValue implements scfia.ForkSink: keep n alive for the rest of
// the step regardless of what its constructing expression does with
// its own reference next.
func (s *Sink[S]) PushValue(n *expr.Node) {
	s.held = append(s.held, n)
}

// Fork implements scfia.ForkSink and spec.md §4.4's fork(fork_predicate_node):
// CheckCondition already built predicate as the negation of the
// condition it is keeping true in the continuing context, and passes
// that negation here unasserted. predicate belongs to the pre-clone
// context, so Fork resolves the node with the same id inside the
// freshly cloned context (Clone preserves node ids) and asserts that
// copy, rather than reusing predicate's own *expr.Node across
// contexts.
func (s *Sink[S]) Fork(predicate *expr.Node) {
	clone := s.cloneFn(s.base)
	ctx := s.ctxOf(clone)
	clonedPredicate := ctx.Lookup(predicate.ID)
	ctx.Assert(clonedPredicate)
	s.produced = append(s.produced, Produced[S]{State: clone, Ctx: ctx})
}

// Produced returns every successor state forked during this step.
func (s *Sink[S]) Produced() []Produced[S] { return s.produced }

// Held returns every node pushed during this step, for callers that
// want to inspect what was constructed without relying on refcounts.
func (s *Sink[S]) Held() []*expr.Node { return s.held }

// Release retires whatever this step built that ended the step with
// no remaining holder: decode scratch, folded intermediates, and
// anything else PushValue kept alive only so a mid-step cascade
// couldn't claim it prematurely. ctx must be the context the step
// actually ran in (the receiver's, not a forked-off clone's — each
// fork gets its own held set the next time it steps).
func (s *Sink[S]) Release(ctx *scfia.Context) {
	for _, n := range s.held {
		if n.RefCount <= 0 && ctx.IsActive(n.ID) {
			ctx.Retire(n)
		}
	}
}
