package elfloader

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/go-scfia/internal/cpu"
	"github.com/cwbudde/go-scfia/internal/expr"
	"github.com/cwbudde/go-scfia/internal/scfia"
)

// buildMinimalELF64 writes a 64-bit little-endian ELF with a single
// PT_LOAD segment at vaddr carrying data, the minimum debug/elf needs
// to parse a program header table.
func buildMinimalELF64(t *testing.T, path string, vaddr uint64, data []byte) {
	t.Helper()
	const ehsize = 64
	const phentsize = 56
	phoff := uint64(ehsize)
	dataOff := phoff + phentsize

	var buf bytes.Buffer
	ident := [16]byte{0x7f, 'E', 'L', 'F', 2 /* ELFCLASS64 */, 1 /* ELFDATA2LSB */, 1 /* EV_CURRENT */, 0}
	buf.Write(ident[:])
	binary.Write(&buf, binary.LittleEndian, uint16(2))  // e_type ET_EXEC
	binary.Write(&buf, binary.LittleEndian, uint16(62)) // e_machine (arbitrary)
	binary.Write(&buf, binary.LittleEndian, uint32(1))  // e_version
	binary.Write(&buf, binary.LittleEndian, vaddr)      // e_entry
	binary.Write(&buf, binary.LittleEndian, phoff)      // e_phoff
	binary.Write(&buf, binary.LittleEndian, uint64(0))  // e_shoff
	binary.Write(&buf, binary.LittleEndian, uint32(0))  // e_flags
	binary.Write(&buf, binary.LittleEndian, uint16(ehsize))
	binary.Write(&buf, binary.LittleEndian, uint16(phentsize))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // e_phnum
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // e_shentsize
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // e_shnum
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // e_shstrndx

	if uint64(buf.Len()) != phoff {
		t.Fatalf("ELF header size = %d, want %d", buf.Len(), phoff)
	}

	binary.Write(&buf, binary.LittleEndian, uint32(1))         // p_type PT_LOAD
	binary.Write(&buf, binary.LittleEndian, uint32(5))         // p_flags R+X
	binary.Write(&buf, binary.LittleEndian, dataOff)           // p_offset
	binary.Write(&buf, binary.LittleEndian, vaddr)             // p_vaddr
	binary.Write(&buf, binary.LittleEndian, vaddr)             // p_paddr
	binary.Write(&buf, binary.LittleEndian, uint64(len(data))) // p_filesz
	binary.Write(&buf, binary.LittleEndian, uint64(len(data))) // p_memsz
	binary.Write(&buf, binary.LittleEndian, uint64(0x1000))    // p_align

	buf.Write(data)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadReturnsOnePTLOADSegmentWithItsBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.elf")
	data := []byte{0xde, 0xad, 0xbe, 0xef}
	buildMinimalELF64(t, path, 0x1000, data)

	segs := Load(path)
	if len(segs) != 1 {
		t.Fatalf("Load returned %d segments, want 1", len(segs))
	}
	if segs[0].VAddr != 0x1000 {
		t.Errorf("VAddr = 0x%x, want 0x1000", segs[0].VAddr)
	}
	if !bytes.Equal(segs[0].Data, data) {
		t.Errorf("Data = %x, want %x", segs[0].Data, data)
	}
}

func TestLoadMissingFileIsFatal(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Load should abort fatally when the ELF file does not exist")
		}
	}()
	Load("/nonexistent/path/to/nothing.elf")
}

func TestLoadRejects32BitELF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog32.elf")
	var buf bytes.Buffer
	ident := [16]byte{0x7f, 'E', 'L', 'F', 1 /* ELFCLASS32 */, 1, 1, 0}
	buf.Write(ident[:])
	binary.Write(&buf, binary.LittleEndian, uint16(2))  // e_type ET_EXEC
	binary.Write(&buf, binary.LittleEndian, uint16(0))  // e_machine
	binary.Write(&buf, binary.LittleEndian, uint32(1))  // e_version
	binary.Write(&buf, binary.LittleEndian, uint32(0))  // e_entry
	binary.Write(&buf, binary.LittleEndian, uint32(0))  // e_phoff
	binary.Write(&buf, binary.LittleEndian, uint32(0))  // e_shoff
	binary.Write(&buf, binary.LittleEndian, uint32(0))  // e_flags
	binary.Write(&buf, binary.LittleEndian, uint16(52)) // e_ehsize
	binary.Write(&buf, binary.LittleEndian, uint16(0))  // e_phentsize
	binary.Write(&buf, binary.LittleEndian, uint16(0))  // e_phnum
	binary.Write(&buf, binary.LittleEndian, uint16(0))  // e_shentsize
	binary.Write(&buf, binary.LittleEndian, uint16(0))  // e_shnum
	binary.Write(&buf, binary.LittleEndian, uint16(0))  // e_shstrndx
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	defer func() {
		if recover() == nil {
			t.Error("Load should abort fatally on a 32-bit ELF")
		}
	}()
	Load(path)
}

// realMemCtx adapts *scfia.Context to cpu.MemoryContext, the same
// narrow surface an ISA adapter's own memCtx exposes.
type realMemCtx struct{ ctx *scfia.Context }

func (m realMemCtx) ConcreteBV(value uint64, width uint32) *expr.Node { return m.ctx.ConcreteBV(value, width) }
func (m realMemCtx) SymbolicBV(width uint32) *expr.Node               { return m.ctx.SymbolicBV(width, nil) }
func (m realMemCtx) NewConcat(hi, lo *expr.Node) *expr.Node           { return m.ctx.NewConcat(hi, lo, nil) }
func (m realMemCtx) NewExtract(x *expr.Node, high, low uint32) *expr.Node {
	return m.ctx.NewExtract(x, high, low, nil)
}
func (m realMemCtx) ReleaseRoot(n *expr.Node) { m.ctx.ReleaseRoot(n) }

var _ cpu.MemoryContext = realMemCtx{}

func TestNewRegionsBuildsOneStableRegionPerSegment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.elf")
	data := []byte{1, 2, 3, 4}
	buildMinimalELF64(t, path, 0x2000, data)
	segs := Load(path)

	ctx := realMemCtx{ctx: scfia.New()}
	regions := NewRegions(ctx, segs)
	if len(regions) != 1 {
		t.Fatalf("NewRegions returned %d regions, want 1", len(regions))
	}
	if !regions[0].Contains(0x2000) || regions[0].Contains(0x2004) {
		t.Error("the region should cover exactly [0x2000, 0x2004)")
	}
	got := regions[0].Read(ctx, 0x2000, 32)
	v, ok := got.ConcreteValue()
	if !ok {
		t.Fatal("loaded bytes should fold to a concrete node")
	}
	// little-endian word assembled from {1,2,3,4} is 0x04030201.
	if v != 0x04030201 {
		t.Errorf("read back 0x%x, want 0x04030201", v)
	}
}
