package symbols

import "github.com/jetsetilly/spimdisasm/address"

// LabelType is the closed set of in-function label kinds.
type LabelType int

const (
	LabelBranch LabelType = iota
	LabelJumptable
	LabelGccExceptTable
)

// ReferrerInfo identifies one instruction that references a label: the
// function it lives in, the owning segment, and the ROM of the
// referencing instruction.
type ReferrerInfo struct {
	FunctionVram address.Vram
	Segment      string
	Rom          address.Rom
}

// LabelMetadata is addressed by exact vram (not addended, unlike symbol
// metadata) and tracks every instruction that refers to it.
type LabelMetadata struct {
	Vram      address.Vram
	LabelType LabelType
	Referrers map[ReferrerInfo]bool
}

// NewLabelMetadata creates an empty label record.
func NewLabelMetadata(vram address.Vram, lt LabelType) *LabelMetadata {
	return &LabelMetadata{Vram: vram, LabelType: lt, Referrers: make(map[ReferrerInfo]bool)}
}

// AddReferrer records one more referencing instruction.
func (l *LabelMetadata) AddReferrer(info ReferrerInfo) { l.Referrers[info] = true }

// SizeBytes returns the label's byte width; labels are always exactly one
// instruction wide.
func (l *LabelMetadata) SizeBytes() uint32 { return 4 }

// SymbolTypeForLabel maps a LabelType to the matching label-kind
// SymbolType, used when a label gets promoted into full symbol metadata
// (e.g. a branch target that turns out to also be a jumptable case).
func SymbolTypeForLabel(lt LabelType) SymbolType {
	switch lt {
	case LabelJumptable:
		return JumptableLabel
	case LabelGccExceptTable:
		return GccExceptTableLabel
	default:
		return BranchLabel
	}
}
