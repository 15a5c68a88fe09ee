package scfia

import "github.com/cwbudde/go-scfia/internal/expr"

// Retire implements spec.md §4.3.3: move an active node to the retired
// registry once its last strong holder lets go. The node's operands
// and every node in its own Discovered set become its heirs — each
// inherits the retired record (keyed by id in its Inherited map) so
// that the solver assertion the record may carry can still be
// replayed on Clone, without the heir paying for a live *Node. Heirs
// are not made acquainted with each other, and n is not removed from
// the Discovered sets of other nodes.
func (c *Context) Retire(n *expr.Node) {
	if !c.IsActive(n.ID) {
		return
	}
	delete(c.active, n.ID)

	record := &expr.RetiredNode{
		ID:        n.ID,
		CtxID:     n.CtxID,
		Op:        n.Op,
		Width:     n.Width,
		IsBoolean: n.IsBoolean,
		Value:     n.Value,
		BoolValue: n.BoolValue,
		High:      n.High,
		Low:       n.Low,
		Ast:       n.Ast,
		IsAssert:  n.IsAssert,
	}
	for _, o := range n.Operands {
		record.OperandIDs = append(record.OperandIDs, o.ID)
	}
	c.retired[n.ID] = record

	heirs := make([]*expr.Node, 0, len(n.Operands)+len(n.Discovered))
	heirs = append(heirs, n.Operands...)
	for _, d := range n.Discovered {
		heirs = append(heirs, d)
	}

	for _, heir := range heirs {
		if heir.Inherited == nil {
			heir.Inherited = make(map[uint64]*expr.RetiredNode)
		}
		if _, already := heir.Inherited[record.ID]; !already {
			heir.Inherited[record.ID] = record
			record.RetainBy(heir)
		}
		// Everything n itself had inherited is now reachable through
		// heir too, keeping the transitive closure flat rather than
		// chaining through retired records.
		for id, inherited := range n.Inherited {
			if _, already := heir.Inherited[id]; !already {
				heir.Inherited[id] = inherited
				inherited.RetainBy(heir)
			}
		}
	}

	// n was itself a holder of whatever it inherited from an earlier
	// retirement; that claim is spent now that it has passed to n's
	// own heirs (or to no one, if n has none).
	for id := range n.Inherited {
		c.releaseRetired(id)
	}

	// The operands this node held strong references to lose that
	// reference now; a bare-zero refcount operand is itself retired
	// in turn.
	for _, o := range n.Operands {
		o.RefCount--
		if o.RefCount <= 0 && c.IsActive(o.ID) {
			c.Retire(o)
		}
	}
}

// releaseRetired drops one holder's claim on the retired record id,
// dropping the record from c.retired and decrementing its AST's
// refcount once no holder remains.
func (c *Context) releaseRetired(id uint64) {
	record, ok := c.retired[id]
	if !ok {
		return
	}
	record.Release()
	if record.Holders() > 0 {
		return
	}
	delete(c.retired, id)
	record.Ast.DecRef()
}

// ReleaseRoot drops one root-held reference to n — a register or
// memory-byte slot whose previous value is being replaced
// by an overwrite rather than folded into another node's operand list
// — and retires n once nothing else still needs it.
func (c *Context) ReleaseRoot(n *expr.Node) {
	if n == nil {
		return
	}
	n.RefCount--
	if n.RefCount <= 0 && c.IsActive(n.ID) {
		c.Retire(n)
	}
}

// Discover adds n to holder's Discovered set (spec.md §4.3.4's
// "discovered" acquaintance set): when holder is later retired, n is
// one of its heirs and inherits holder's retired record. The link is
// one-way; n's own retirement passes nothing to holder.
func (c *Context) Discover(holder, n *expr.Node) {
	if holder.Discovered == nil {
		holder.Discovered = make(map[uint64]*expr.Node)
	}
	holder.Discovered[n.ID] = n
}
