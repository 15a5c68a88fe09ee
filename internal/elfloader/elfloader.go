// Package elfloader implements the ELF loader interface (spec.md §6):
// reads 64-bit PT_LOAD program-header segments and publishes each as a
// stable memory region over [vaddr, vaddr+filesz), concrete byte for
// concrete byte.
package elfloader

import (
	"debug/elf"
	"io"

	"github.com/cwbudde/go-scfia/internal/cpu"
	"github.com/cwbudde/go-scfia/internal/diag"
)

// Segment is one PT_LOAD segment's address range and file contents,
// ready to be loaded into a cpu.StableMemoryRegion by the caller (the
// caller supplies the MemoryContext so loading happens inside the
// right SCFIA context).
type Segment struct {
	VAddr uint64
	Data  []byte
}

// Load opens path as a 64-bit ELF and returns one Segment per PT_LOAD
// program header, in file order. A 32-bit ELF or any other read
// failure is fatal: the loader has no partial-success mode per
// spec.md §6.
func Load(path string) []Segment {
	f, err := elf.Open(path)
	if err != nil {
		diag.Fatalf(diag.KindSnapshot, "cannot open ELF %s: %v", path, err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 {
		diag.Fatalf(diag.KindSnapshot, "%s is not a 64-bit ELF", path)
	}

	var segments []Segment
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		data := make([]byte, prog.Filesz)
		if _, err := io.ReadFull(prog.Open(), data); err != nil && err != io.EOF {
			diag.Fatalf(diag.KindSnapshot, "cannot read PT_LOAD segment at 0x%x: %v", prog.Vaddr, err)
		}
		segments = append(segments, Segment{VAddr: prog.Vaddr, Data: data})
	}
	return segments
}

// NewRegions builds one cpu.StableMemoryRegion per segment, loaded via
// ctx so every byte becomes a real concrete Expression Node.
func NewRegions(ctx cpu.MemoryContext, segments []Segment) []cpu.MemoryRegion {
	regions := make([]cpu.MemoryRegion, 0, len(segments))
	for _, seg := range segments {
		region := cpu.NewStableMemoryRegion(uint32(seg.VAddr), uint32(len(seg.Data)))
		region.LoadBytes(ctx, uint32(seg.VAddr), seg.Data)
		regions = append(regions, region)
	}
	return regions
}
