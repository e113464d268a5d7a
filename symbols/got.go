package symbols

import "github.com/jetsetilly/spimdisasm/address"

// GotLocalEntry is a local (non-exported) GOT slot: just the raw address
// value it holds.
type GotLocalEntry struct {
	Value uint32
}

func (e GotLocalEntry) Address() uint32 { return e.Value }

// GotGlobalEntry is an exported GOT slot, tied to an ELF dynamic symbol.
type GotGlobalEntry struct {
	Initial        uint32
	SymVal         uint32
	UndefCommonAbs bool
	SymName        string
}

// Address resolves the entry's effective address: the linked symbol value
// when it's known and the symbol isn't undefined/common/absolute,
// otherwise the GOT's initial value. Mirrors
// GotGlobalEntry::address in the reference implementation
// (addresses/global_offset_table.rs).
func (e GotGlobalEntry) Address() uint32 {
	if e.SymVal != 0 && !e.UndefCommonAbs {
		return e.SymVal
	}
	return e.Initial
}

// GotRequestedKind classifies the result of a GOT lookup.
type GotRequestedKind int

const (
	GotLazyResolver GotRequestedKind = iota
	GotLocal
	GotGlobal
)

// GotRequestedAddress is the result of looking an address up in the GOT:
// which slot kind it landed on, plus the resolved entry.
type GotRequestedAddress struct {
	Kind   GotRequestedKind
	Local  *GotLocalEntry
	Global *GotGlobalEntry
}

// Address resolves the requested slot to its effective address.
func (r GotRequestedAddress) Address() uint32 {
	switch r.Kind {
	case GotLocal, GotLazyResolver:
		return r.Local.Address()
	case GotGlobal:
		return r.Global.Address()
	}
	return 0
}

// GlobalOffsetTable is the PIC indirection table: a vram range plus the
// local and global entry lists backing it.
type GlobalOffsetTable struct {
	vramRange address.VramRange
	locals    []GotLocalEntry
	globals   []GotGlobalEntry
}

// NewGlobalOffsetTable builds a GOT starting at vram, sized to fit every
// local and global entry (4 bytes each), matching
// GlobalOffsetTable::new in the reference implementation.
func NewGlobalOffsetTable(vram address.Vram, locals []GotLocalEntry, globals []GotGlobalEntry) *GlobalOffsetTable {
	count := len(locals) + len(globals)
	end := vram + address.Vram(count*4)
	return &GlobalOffsetTable{
		vramRange: address.NewRange(vram, end),
		locals:    locals,
		globals:   globals,
	}
}

func (g *GlobalOffsetTable) VramRange() address.VramRange { return g.vramRange }
func (g *GlobalOffsetTable) Locals() []GotLocalEntry       { return g.locals }
func (g *GlobalOffsetTable) Globals() []GotGlobalEntry      { return g.globals }

// RequestAddress looks vram up in the table. Index 0 among the locals is
// always the lazy-resolver stub per the MIPS ABI, so it's reported
// distinctly from the other local entries even though both resolve via
// GotLocalEntry.
func (g *GlobalOffsetTable) RequestAddress(vram address.Vram) (GotRequestedAddress, bool) {
	if !g.vramRange.InRange(vram) {
		return GotRequestedAddress{}, false
	}
	diff := uint32(vram) - uint32(g.vramRange.Start)
	index := int(diff / 4)

	if index < len(g.locals) {
		kind := GotLocal
		if index == 0 {
			kind = GotLazyResolver
		}
		return GotRequestedAddress{Kind: kind, Local: &g.locals[index]}, true
	}

	globalIndex := index - len(g.locals)
	if globalIndex >= 0 && globalIndex < len(g.globals) {
		return GotRequestedAddress{Kind: GotGlobal, Global: &g.globals[globalIndex]}, true
	}
	return GotRequestedAddress{}, false
}

// IndexOfGlobal returns the GOT slot index for the n-th global entry
// (0-based), i.e. len(locals)+n — the value analyzers need to compute a
// $gp-relative GOT offset for a known global symbol.
func (g *GlobalOffsetTable) IndexOfGlobal(n int) int { return len(g.locals) + n }
