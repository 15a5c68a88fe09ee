package cpu

import "github.com/cwbudde/go-scfia/internal/expr"

// StableMemoryRegion is a concrete byte array seeded from an ELF
// PT_LOAD segment (or a snapshot's memory lines): reads return the
// actual stored bytes as a concrete Expression Node unless a prior
// write stored a symbolic value at that address, in which case the
// stored node is returned directly (original_source/src/memory/
// stable_memory_region.rs never re-concretizes a symbolic write).
type StableMemoryRegion struct {
	base  uint32
	bytes []*expr.Node // one byte-wide node per address, nil until written/loaded
}

// NewStableMemoryRegion allocates an empty stable region covering
// [base, base+size).
func NewStableMemoryRegion(base, size uint32) *StableMemoryRegion {
	return &StableMemoryRegion{base: base, bytes: make([]*expr.Node, size)}
}

// LoadBytes seeds concrete byte values into the region starting at
// address, via ctx so each byte becomes a real (foldable) concrete
// Expression Node rather than a raw uint8, used by the ELF loader to
// publish a PT_LOAD segment's initial contents.
func (r *StableMemoryRegion) LoadBytes(ctx MemoryContext, address uint32, data []byte) {
	for i, b := range data {
		n := ctx.ConcreteBV(uint64(b), 8)
		n.RefCount++
		r.bytes[address-r.base+uint32(i)] = n
	}
}

func (r *StableMemoryRegion) Contains(address uint32) bool {
	return address >= r.base && address < r.base+uint32(len(r.bytes))
}

func (r *StableMemoryRegion) Read(ctx MemoryContext, address uint32, width uint32) *expr.Node {
	n := width / 8
	result := r.byteAt(ctx, address)
	for i := uint32(1); i < n; i++ {
		result = ctx.NewConcat(r.byteAt(ctx, address+i), result)
	}
	return result
}

func (r *StableMemoryRegion) Write(ctx MemoryContext, address uint32, value *expr.Node) {
	n := value.Width / 8
	for i := uint32(0); i < n; i++ {
		byteNode := ctx.NewExtract(value, (i+1)*8-1, i*8)
		byteNode.RefCount++
		idx := address - r.base + i
		ctx.ReleaseRoot(r.bytes[idx])
		r.bytes[idx] = byteNode
	}
}

func (r *StableMemoryRegion) byteAt(ctx MemoryContext, address uint32) *expr.Node {
	idx := address - r.base
	if r.bytes[idx] == nil {
		n := ctx.ConcreteBV(0, 8)
		n.RefCount++
		r.bytes[idx] = n
	}
	return r.bytes[idx]
}

// VolatileMemoryRegion models an address range (e.g. a memory-mapped
// peripheral) whose reads are never deterministic and whose writes
// have no observable effect on later reads, per
// original_source/src/memory/volatile_memory_region.rs and DESIGN.md
// supplemented feature 2.
type VolatileMemoryRegion struct {
	base, size uint32
}

// NewVolatileMemoryRegion allocates a volatile region covering
// [base, base+size).
func NewVolatileMemoryRegion(base, size uint32) *VolatileMemoryRegion {
	return &VolatileMemoryRegion{base: base, size: size}
}

func (r *VolatileMemoryRegion) Contains(address uint32) bool {
	return address >= r.base && address < r.base+r.size
}

// Read always returns a fresh symbolic bit-vector: every read of a
// volatile region is an independent, unconstrained observation.
func (r *VolatileMemoryRegion) Read(ctx MemoryContext, address uint32, width uint32) *expr.Node {
	return ctx.SymbolicBV(width)
}

// Write is a no-op: volatile regions discard everything written to
// them.
func (r *VolatileMemoryRegion) Write(ctx MemoryContext, address uint32, value *expr.Node) {}
