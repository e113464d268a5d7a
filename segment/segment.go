// Package segment owns one segment's worth of metadata: its rom/vram
// range, its symbol and label maps, ignored-address ranges, an optional
// GOT, and the preheat-phase reference-address seeds.
package segment

import (
	"github.com/jetsetilly/spimdisasm/address"
	"github.com/jetsetilly/spimdisasm/orderedmap"
	"github.com/jetsetilly/spimdisasm/symbols"
)

// IgnoredAddressRange is a user-declared span the disassembler should
// never treat as a symbol (e.g. padding copied verbatim from a neighbor
// overlay).
type IgnoredAddressRange struct {
	Vram address.Vram
	Size address.Size
}

func (r IgnoredAddressRange) SizeBytes() uint32 { return uint32(r.Size) }

// symbolValue adapts *symbols.SymbolMetadata to orderedmap.Sized.
type symbolValue struct{ *symbols.SymbolMetadata }

func (s symbolValue) Size() uint32 { return s.SymbolMetadata.SizeBytes() }

type referencedValue struct{ *symbols.ReferencedAddress }

func (r referencedValue) Size() uint32 { return r.ReferencedAddress.SizeBytes() }

type ignoredValue struct{ IgnoredAddressRange }

func (i ignoredValue) Size() uint32 { return i.IgnoredAddressRange.SizeBytes() }

// Metadata holds everything known about one segment: the global segment,
// one overlay, or the user/platform segment.
type Metadata struct {
	Name         string
	CategoryName string
	IsOverlay    bool

	Ranges address.RomVramRange

	// PrioritisedOverlays lists overlay names to consult, in order, when
	// this segment's own symbol map doesn't have an answer.
	PrioritisedOverlays []string

	symbols   *orderedmap.Map[address.Vram, symbolValue]
	labels    map[address.Vram]*symbols.LabelMetadata
	ignored   *orderedmap.Map[address.Vram, ignoredValue]
	preheat   *orderedmap.Map[address.Vram, referencedValue]

	got *symbols.GlobalOffsetTable
}

// New creates an empty segment over the given rom/vram range.
func New(name string, ranges address.RomVramRange) *Metadata {
	return &Metadata{
		Name:    name,
		Ranges:  ranges,
		symbols: orderedmap.New[address.Vram, symbolValue](),
		labels:  make(map[address.Vram]*symbols.LabelMetadata),
		ignored: orderedmap.New[address.Vram, ignoredValue](),
		preheat: orderedmap.New[address.Vram, referencedValue](),
	}
}

// SetGot attaches a PIC global offset table to this segment (only
// meaningful for the global segment of a dynamically-linked binary).
func (m *Metadata) SetGot(got *symbols.GlobalOffsetTable) { m.got = got }

// Got returns the segment's GOT, if any.
func (m *Metadata) Got() (*symbols.GlobalOffsetTable, bool) { return m.got, m.got != nil }

// AddPrioritisedOverlay appends an overlay name to consult during
// cross-overlay resolution.
func (m *Metadata) AddPrioritisedOverlay(name string) {
	m.PrioritisedOverlays = append(m.PrioritisedOverlays, name)
}

// --- symbol map -------------------------------------------------------

// FindSymbol looks a vram up in this segment's own symbol map only (no
// overlay/platform fallback — that's Context's job).
func (m *Metadata) FindSymbol(vram address.Vram, allowAddend bool) (*symbols.SymbolMetadata, bool) {
	settings := orderedmap.Exact()
	if allowAddend {
		settings = orderedmap.Addended()
	}
	_, v, ok := m.symbols.Find(vram, settings)
	if !ok {
		return nil, false
	}
	return v.SymbolMetadata, true
}

// GetOrCreateSymbol returns the existing symbol at vram (addended lookup)
// or creates a new autogenerated one there.
func (m *Metadata) GetOrCreateSymbol(vram address.Vram) (*symbols.SymbolMetadata, bool) {
	_, v, created := m.symbols.FindMutOrInsertWith(vram, orderedmap.Addended(), func() symbolValue {
		return symbolValue{symbols.NewSymbolMetadata(vram)}
	})
	return v.SymbolMetadata, created
}

// AddUserSymbol records a user-declared symbol. ok is false if a symbol
// already occupies this exact vram with a different user-declared name
// (DuplicatedSymbol in spec.md's error taxonomy); an autogenerated symbol
// there is taken over. This layer reports only the boolean, not a typed
// error.
func (m *Metadata) AddUserSymbol(vram address.Vram, name string) (*symbols.SymbolMetadata, bool) {
	if existing, ok := m.FindSymbol(vram, false); ok && existing.UserDeclaredName != "" && existing.UserDeclaredName != name {
		return existing, false
	}
	sym, _ := m.GetOrCreateSymbol(vram)
	sym.UserDeclaredName = name
	sym.GeneratedBy = symbols.UserDeclared
	sym.IsDefined = true
	return sym, true
}

// AllSymbols returns every symbol in vram order.
func (m *Metadata) AllSymbols() []*symbols.SymbolMetadata {
	out := make([]*symbols.SymbolMetadata, 0, m.symbols.Len())
	for _, v := range m.symbols.Values() {
		out = append(out, v.SymbolMetadata)
	}
	return out
}

// --- label map ----------------------------------------------------------

// GetOrCreateLabel returns the label at the exact vram, creating one of
// the given kind if absent.
func (m *Metadata) GetOrCreateLabel(vram address.Vram, lt symbols.LabelType) *symbols.LabelMetadata {
	if l, ok := m.labels[vram]; ok {
		return l
	}
	l := symbols.NewLabelMetadata(vram, lt)
	m.labels[vram] = l
	return l
}

// FindLabel looks a label up by exact vram.
func (m *Metadata) FindLabel(vram address.Vram) (*symbols.LabelMetadata, bool) {
	l, ok := m.labels[vram]
	return l, ok
}

// AddUserLabel records a user-declared label. ok is false on a duplicate
// at the same vram.
func (m *Metadata) AddUserLabel(vram address.Vram, lt symbols.LabelType) (*symbols.LabelMetadata, bool) {
	if _, exists := m.labels[vram]; exists {
		return nil, false
	}
	l := symbols.NewLabelMetadata(vram, lt)
	m.labels[vram] = l
	return l, true
}

// --- ignored ranges -----------------------------------------------------

// AddIgnoredAddressRange records a range the splitter must never split a
// symbol boundary inside of.
func (m *Metadata) AddIgnoredAddressRange(vram address.Vram, size address.Size) {
	m.ignored.Set(vram, ignoredValue{IgnoredAddressRange{Vram: vram, Size: size}})
}

// IsIgnored reports whether vram falls within any ignored range.
func (m *Metadata) IsIgnored(vram address.Vram) bool {
	_, _, ok := m.ignored.Find(vram, orderedmap.Addended())
	return ok
}

// --- preheat seeds --------------------------------------------------------

// GetOrCreateReferencedAddress returns (creating if needed) the
// ReferencedAddress seed at the exact vram. Preheat never uses addended
// lookup when creating — every referenced word gets its own seed, later
// merged into whichever symbol's range contains it once sizes are known.
func (m *Metadata) GetOrCreateReferencedAddress(vram address.Vram) *symbols.ReferencedAddress {
	_, v, _ := m.preheat.FindMutOrInsertWith(vram, orderedmap.Exact(), func() referencedValue {
		return referencedValue{symbols.NewReferencedAddress(vram)}
	})
	return v.ReferencedAddress
}

// FindReferencedAddress looks up a preheat seed by exact vram.
func (m *Metadata) FindReferencedAddress(vram address.Vram) (*symbols.ReferencedAddress, bool) {
	v, ok := m.preheat.Get(vram)
	if !ok {
		return nil, false
	}
	return v.ReferencedAddress, true
}

// AllReferencedAddresses returns every preheat seed in vram order.
func (m *Metadata) AllReferencedAddresses() []*symbols.ReferencedAddress {
	out := make([]*symbols.ReferencedAddress, 0, m.preheat.Len())
	for _, v := range m.preheat.Values() {
		out = append(out, v.ReferencedAddress)
	}
	return out
}

// MergeReferencedAddressInto promotes a preheat seed into full
// SymbolMetadata once a section has been created over it: access
// histogram and autodetected/user type carry across, but user-declared
// wins over autogenerated just like everywhere else (spec.md section 9,
// "user-declared takes priority everywhere").
func MergeReferencedAddressInto(sym *symbols.SymbolMetadata, ref *symbols.ReferencedAddress) {
	sym.Access.Byte += ref.Access.Byte
	sym.Access.Short += ref.Access.Short
	sym.Access.Word += ref.Access.Word
	sym.Access.DWord += ref.Access.DWord
	sym.Access.Float += ref.Access.Float
	sym.Access.Double += ref.Access.Double
	sym.Access.Left += ref.Access.Left
	sym.Access.Right += ref.Access.Right

	if at, ok := ref.AutodetectedType(); ok {
		sym.Type.SetAutodetected(at)
	}
	if ut, ok := ref.UserType(); ok && !sym.Type.HasUser() {
		sym.Type.SetUser(ut)
	}
	if us, ok := ref.UserSize(); ok && !sym.Size.HasUser() {
		sym.Size.SetUser(us)
	}
}
