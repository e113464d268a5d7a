// Package symbols holds the symbol and section type enumerations plus the
// metadata records (SymbolMetadata, LabelMetadata, ReferencedAddress, the
// PIC GlobalOffsetTable) that anchor the rest of the disassembler's
// analysis.
package symbols

import "github.com/jetsetilly/spimdisasm/isa"

// SectionType is the closed set of ELF-ish section kinds the disassembler
// understands.
type SectionType int

const (
	SectionText SectionType = iota
	SectionData
	SectionRodata
	SectionBss
	SectionGccExceptTable
)

func (s SectionType) String() string {
	switch s {
	case SectionText:
		return "text"
	case SectionData:
		return "data"
	case SectionRodata:
		return "rodata"
	case SectionBss:
		return "bss"
	case SectionGccExceptTable:
		return "gcc_except_table"
	default:
		return "unknown"
	}
}

// SymbolType is the closed set of symbol kinds. Each carries min/max
// alignment, a minimum size, whether its words should be scanned for
// pointer references, whether it may carry a nonzero addend, and whether
// it participates in IDO-style late-rodata.
type SymbolType int

const (
	Function SymbolType = iota
	Jumptable
	GccExceptTableSym
	BranchLabel
	JumptableLabel
	GccExceptTableLabel
	Byte
	Short
	Word
	DWord
	Float32
	Float64
	CString
	VirtualTable
	UserCustom
)

type symbolTypeInfo struct {
	minAlignShift uint32 // log2 of minimum alignment
	maxAlignShift uint32
	minSize       uint32
	canReference  bool
	mayHaveAddend bool
	lateRodata    bool
	isLabel       bool
}

var typeInfo = map[SymbolType]symbolTypeInfo{
	Function:            {minAlignShift: 2, maxAlignShift: 2, minSize: 4, canReference: false, mayHaveAddend: false},
	Jumptable:           {minAlignShift: 2, maxAlignShift: 2, minSize: 4, canReference: true, mayHaveAddend: false, lateRodata: true},
	GccExceptTableSym:   {minAlignShift: 2, maxAlignShift: 2, minSize: 4, canReference: true, mayHaveAddend: false},
	BranchLabel:         {minAlignShift: 2, maxAlignShift: 2, minSize: 4, isLabel: true},
	JumptableLabel:      {minAlignShift: 2, maxAlignShift: 2, minSize: 4, isLabel: true},
	GccExceptTableLabel: {minAlignShift: 2, maxAlignShift: 2, minSize: 4, isLabel: true},
	Byte:                {minAlignShift: 0, maxAlignShift: 0, minSize: 1, mayHaveAddend: true},
	Short:               {minAlignShift: 1, maxAlignShift: 1, minSize: 2, mayHaveAddend: true},
	Word:                {minAlignShift: 2, maxAlignShift: 2, minSize: 4, canReference: true, mayHaveAddend: true},
	DWord:               {minAlignShift: 3, maxAlignShift: 3, minSize: 8, mayHaveAddend: true},
	Float32:             {minAlignShift: 2, maxAlignShift: 2, minSize: 4, mayHaveAddend: true, lateRodata: true},
	Float64:             {minAlignShift: 3, maxAlignShift: 3, minSize: 8, mayHaveAddend: true, lateRodata: true},
	CString:             {minAlignShift: 0, maxAlignShift: 2, minSize: 1, mayHaveAddend: true},
	VirtualTable:        {minAlignShift: 2, maxAlignShift: 2, minSize: 4, canReference: true, mayHaveAddend: false},
	UserCustom:          {minAlignShift: 0, maxAlignShift: 2, minSize: 1, canReference: true, mayHaveAddend: true},
}

// MinAlignment returns the minimum required alignment in bytes.
func (t SymbolType) MinAlignment() uint32 { return 1 << typeInfo[t].minAlignShift }

// MinSize returns the smallest valid byte size for this symbol type.
func (t SymbolType) MinSize() uint32 { return typeInfo[t].minSize }

// CanReferenceSymbols reports whether words inside a symbol of this type
// should be scanned for pointers to other symbols.
func (t SymbolType) CanReferenceSymbols() bool { return typeInfo[t].canReference }

// MayHaveAddend reports whether a reference to this symbol type may carry
// a nonzero addend (false for functions, jumptables, except-tables, and
// vtables, which are always referenced at their exact start).
func (t SymbolType) MayHaveAddend() bool { return typeInfo[t].mayHaveAddend }

// IsLateRodata reports whether the compiler's IDO-style late-rodata
// heuristic can apply to this type (Jumptable, Float32, Float64).
func (t SymbolType) IsLateRodata() bool { return typeInfo[t].lateRodata }

// IsLabelKind reports whether this type denotes an in-function label
// rather than a top-level symbol.
func (t SymbolType) IsLabelKind() bool { return typeInfo[t].isLabel }

// labelPrecedence orders the label-kind types for the metadata merge
// cascade: Function > GccExceptTableLabel > JumptableLabel > BranchLabel.
// Higher value wins.
func labelPrecedence(t SymbolType) int {
	switch t {
	case Function:
		return 4
	case GccExceptTableLabel:
		return 3
	case JumptableLabel:
		return 2
	case BranchLabel:
		return 1
	default:
		return 0
	}
}

// PreferType resolves a conflict between two autodetected/user types using
// the label-kind precedence cascade. When neither side is a label kind the
// existing type wins (first writer), matching "user always wins" being
// handled one level up by the caller.
func PreferType(existing, candidate SymbolType) SymbolType {
	pe, pc := labelPrecedence(existing), labelPrecedence(candidate)
	if pc > pe {
		return candidate
	}
	return existing
}

func (t SymbolType) String() string {
	switch t {
	case Function:
		return "Function"
	case Jumptable:
		return "Jumptable"
	case GccExceptTableSym:
		return "GccExceptTable"
	case BranchLabel:
		return "BranchLabel"
	case JumptableLabel:
		return "JumptableLabel"
	case GccExceptTableLabel:
		return "GccExceptTableLabel"
	case Byte:
		return "Byte"
	case Short:
		return "Short"
	case Word:
		return "Word"
	case DWord:
		return "DWord"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	case CString:
		return "CString"
	case VirtualTable:
		return "VirtualTable"
	case UserCustom:
		return "UserCustom"
	default:
		return "Unknown"
	}
}

// AccessTypeFromIsa maps an instruction access type to the most
// specific numeric symbol type it implies, used by the access-type
// histogram to drive autodetection.
func AccessTypeFromIsa(at isa.AccessType) (SymbolType, bool) {
	switch at {
	case isa.AccessByte, isa.AccessByteUnsigned:
		return Byte, true
	case isa.AccessShort, isa.AccessShortUnsigned:
		return Short, true
	case isa.AccessWord, isa.AccessWordLeft, isa.AccessWordRight:
		return Word, true
	case isa.AccessDoubleword:
		return DWord, true
	case isa.AccessFloat:
		return Float32, true
	case isa.AccessDouble:
		return Float64, true
	default:
		return 0, false
	}
}
