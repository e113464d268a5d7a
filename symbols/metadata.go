package symbols

import (
	"fmt"

	"github.com/jetsetilly/spimdisasm/address"
)

// GeneratedBy records whether a piece of metadata came from the user or
// was inferred.
type GeneratedBy int

const (
	Autogenerated GeneratedBy = iota
	UserDeclared
)

// OwnerSegmentKind classifies which kind of segment owns a symbol.
type OwnerSegmentKind int

const (
	OwnerGlobal OwnerSegmentKind = iota
	OwnerOverlay
	OwnerUser
	OwnerUnknown
)

// OwnerSegment names the owning segment: Kind plus, for overlays, the
// overlay's name.
type OwnerSegment struct {
	Kind OwnerSegmentKind
	Name string
}

// RodataMigrationBehavior controls whether a rodata symbol may be printed
// inline with the function that references it.
type RodataMigrationBehavior int

const (
	MigrationDefault RodataMigrationBehavior = iota
	MigrationForceMigrate
	MigrationForceNotMigrate
	MigrationToSpecificFunction
)

// AccessHistogram counts how many times a symbol was accessed with each
// access width/kind, feeding type autodetection when no type is declared.
type AccessHistogram struct {
	Byte       int
	Short      int
	Word       int
	DWord      int
	Float      int
	Double     int
	Left       int
	Right      int
}

// SizeInfo models the user-declared-size-wins-over-autodetected-size
// precedence (spec.md section 3, "effective size = user > auto"),
// following the shape of the reference implementation's UserSize type
// (addresses/user_size.rs in original_source/).
type SizeInfo struct {
	user      *address.Size
	autodetected address.Size
}

// SetUser records a user-declared size, which always wins.
func (s *SizeInfo) SetUser(size address.Size) { s.user = &size }

// SetAutodetected records an inferred size; ignored once a user size is
// present, but still stored so diagnostics can report a mismatch.
func (s *SizeInfo) SetAutodetected(size address.Size) { s.autodetected = size }

// Get returns the effective size: the user-declared one if present,
// otherwise the autodetected one.
func (s SizeInfo) Get() address.Size {
	if s.user != nil {
		return *s.user
	}
	return s.autodetected
}

// HasUser reports whether a user size was declared.
func (s SizeInfo) HasUser() bool { return s.user != nil }

// Autodetected returns the autodetected size regardless of user override.
func (s SizeInfo) Autodetected() address.Size { return s.autodetected }

// TypeInfo mirrors SizeInfo but for SymbolType, with the label-precedence
// cascade applied on the autodetected side.
type TypeInfo struct {
	user         *SymbolType
	autodetected *SymbolType
}

func (t *TypeInfo) SetUser(st SymbolType) { t.user = &st }

func (t *TypeInfo) SetAutodetected(st SymbolType) {
	if t.autodetected == nil {
		t.autodetected = &st
		return
	}
	preferred := PreferType(*t.autodetected, st)
	t.autodetected = &preferred
}

// Get returns the effective type and whether any type (user or
// autodetected) is known at all.
func (t TypeInfo) Get() (SymbolType, bool) {
	if t.user != nil {
		return *t.user, true
	}
	if t.autodetected != nil {
		return *t.autodetected, true
	}
	return 0, false
}

func (t TypeInfo) HasUser() bool { return t.user != nil }

func (t TypeInfo) UserType() (SymbolType, bool) {
	if t.user == nil {
		return 0, false
	}
	return *t.user, true
}

func (t TypeInfo) AutodetectedType() (SymbolType, bool) {
	if t.autodetected == nil {
		return 0, false
	}
	return *t.autodetected, true
}

// ReferenceKey identifies a referrer instruction by its vram and owning
// segment, per spec.md's "(referrer_vram, parent_segment_info) -> Set<Rom>"
// cyclic-reference design (section 9): references are stored as maps
// keyed by the referrer's identity rather than direct pointers, so symbol
// metadata can be freely rebuilt without untangling a pointer graph.
type ReferenceKey struct {
	ReferrerVram address.Vram
	Segment      string
}

// SymbolMetadata is the authoritative record for one named address: the
// one-to-one mapping from (segment, vram) to everything known about that
// symbol.
type SymbolMetadata struct {
	Vram        address.Vram
	Rom         *address.Rom
	SectionType *SectionType

	GeneratedBy GeneratedBy

	UserDeclaredName    string
	UserDeclaredNameEnd string
	autogenName         string

	Size SizeInfo
	Type TypeInfo

	Access AccessHistogram

	// ReferenceFunctions/ReferenceSymbols map a referrer's identity to the
	// set of ROMs (within that referrer) that point at this symbol.
	ReferenceFunctions map[ReferenceKey]map[address.Rom]bool
	ReferenceSymbols   map[ReferenceKey]map[address.Rom]bool

	Owner OwnerSegment

	RodataMigrationBehavior  RodataMigrationBehavior
	MigrationTargetFunction  string

	AllowRefWithAddend bool
	AutoCreatedPadBy   *address.Vram
	TrailingPaddingSize address.Size
	Compiler            *int
	ParentMetadata      *address.Vram

	IsDefined bool
}

// NewSymbolMetadata creates an empty, autogenerated record for vram.
func NewSymbolMetadata(vram address.Vram) *SymbolMetadata {
	return &SymbolMetadata{
		Vram:                vram,
		GeneratedBy:         Autogenerated,
		ReferenceFunctions:  make(map[ReferenceKey]map[address.Rom]bool),
		ReferenceSymbols:    make(map[ReferenceKey]map[address.Rom]bool),
		AllowRefWithAddend:  true,
		RodataMigrationBehavior: MigrationDefault,
	}
}

// SizeBytes returns the effective size in bytes; segment's orderedmap.Sized
// adapter reports it as Size().
func (m *SymbolMetadata) SizeBytes() uint32 { return uint32(m.Size.Get()) }

// EffectiveName returns the user-declared name if set, otherwise an
// autogenerated name derived from the section/type prefix and vram, e.g.
// func_80001234, D_80001234, .L80001234.
func (m *SymbolMetadata) EffectiveName() string {
	if m.UserDeclaredName != "" {
		return m.UserDeclaredName
	}
	if m.autogenName != "" {
		return m.autogenName
	}
	return m.GenerateName()
}

// GenerateName computes (and caches) the autogenerated display name.
func (m *SymbolMetadata) GenerateName() string {
	prefix := "D_"
	st, hasType := m.Type.Get()
	if hasType {
		switch st {
		case Function:
			prefix = "func_"
		case Jumptable:
			prefix = "jtbl_"
		case GccExceptTableSym:
			prefix = "ehtbl_"
		case BranchLabel:
			prefix = ".L"
		case JumptableLabel:
			prefix = ".L"
		case GccExceptTableLabel:
			prefix = "$LEH_"
		case CString:
			prefix = "STR_"
		case VirtualTable:
			prefix = "VTBL_"
		}
	}
	if m.SectionType != nil {
		switch *m.SectionType {
		case SectionBss:
			if prefix == "D_" {
				prefix = "B_"
			}
		}
	}
	name := fmt.Sprintf("%s%08X", prefix, uint32(m.Vram))
	if m.Owner.Kind == OwnerOverlay && m.Owner.Name != "" {
		name = fmt.Sprintf("%s_%s", name, m.Owner.Name)
	}
	m.autogenName = name
	return name
}

// AddAccess records one memory access of the given width against the
// histogram and feeds the autodetected type.
func (m *SymbolMetadata) AddAccess(at AccessKind) {
	switch at {
	case AccessKindByte:
		m.Access.Byte++
	case AccessKindShort:
		m.Access.Short++
	case AccessKindWord:
		m.Access.Word++
	case AccessKindDWord:
		m.Access.DWord++
	case AccessKindFloat:
		m.Access.Float++
	case AccessKindDouble:
		m.Access.Double++
	case AccessKindLeft:
		m.Access.Left++
	case AccessKindRight:
		m.Access.Right++
	}
}

// AccessKind is the access-width categorization used for the histogram;
// kept distinct from isa.AccessType so this package doesn't have to import
// instruction-decode internals for something this small.
type AccessKind int

const (
	AccessKindByte AccessKind = iota
	AccessKindShort
	AccessKindWord
	AccessKindDWord
	AccessKindFloat
	AccessKindDouble
	AccessKindLeft
	AccessKindRight
)

// AddReferenceFunction records that the function at key referenced this
// symbol from rom.
func (m *SymbolMetadata) AddReferenceFunction(key ReferenceKey, rom address.Rom) {
	if m.ReferenceFunctions[key] == nil {
		m.ReferenceFunctions[key] = make(map[address.Rom]bool)
	}
	m.ReferenceFunctions[key][rom] = true
}

// AddReferenceSymbol records that a data symbol at key referenced this
// symbol from rom.
func (m *SymbolMetadata) AddReferenceSymbol(key ReferenceKey, rom address.Rom) {
	if m.ReferenceSymbols[key] == nil {
		m.ReferenceSymbols[key] = make(map[address.Rom]bool)
	}
	m.ReferenceSymbols[key][rom] = true
}

// ReferenceCount returns the total number of distinct referrer ROMs
// recorded against this symbol (functions and data symbols combined).
func (m *SymbolMetadata) ReferenceCount() int {
	count := 0
	for _, roms := range m.ReferenceFunctions {
		count += len(roms)
	}
	for _, roms := range m.ReferenceSymbols {
		count += len(roms)
	}
	return count
}

// IsReferencedFromMoreThanOneFunction reports whether more than one
// distinct function referenced this symbol; used by the rodata migration
// pairing step to decide migration eligibility.
func (m *SymbolMetadata) IsReferencedFromMoreThanOneFunction() bool {
	return len(m.ReferenceFunctions) > 1
}
