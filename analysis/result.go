// Package analysis walks a function's instructions (with branch
// lookahead) classifying each instruction's role, and separately detects
// function boundaries across an entire text section (spec.md section
// 4.3).
package analysis

import (
	"github.com/jetsetilly/spimdisasm/address"
	"github.com/jetsetilly/spimdisasm/isa"
)

// Classification is the taxonomy spec.md section 4.3 assigns to each
// instruction.
type Classification int

const (
	ClassNone Classification = iota
	ClassDirectLink
	ClassBranchLink
	ClassJumpAndLinkRegister
	ClassTailCall
	ClassJumptableJump
	ClassReturnJump
	ClassBranch
	ClassBranchOutside
	ClassHi
	ClassPairedAddress
	ClassGpRel
	ClassGpGotLocal
	ClassGpGotGlobal
	ClassGpGotLazyResolver
	ClassPairedGpGotLo
	ClassPairedGotLo
	ClassDereferencedRawAddress
	ClassConstant
	ClassGpSet
)

// InstrInfo is one instruction's analysis record: its classification plus
// whatever address/rom facts go with it.
type InstrInfo struct {
	Class Classification

	// ReferencedVram is the address this instruction's operand resolves
	// to, when applicable (branch target, jal target, HI/LO pair result,
	// GOT entry address, ...).
	ReferencedVram address.Vram
	HasReference    bool

	HiRom   address.Rom
	HasHi   bool
	LoRom   address.Rom
	HasLo   bool

	Access      isa.AccessType
	JumptablePIC bool
}

// Result is the per-function output of the Analyzer: one InstrInfo per
// instruction ROM, plus the side-sets the post-processor and display
// layer need.
type Result struct {
	StartVram address.Vram
	StartRom  address.Rom

	ByRom map[address.Rom]*InstrInfo

	CploadRoms    map[address.Rom]bool
	GpAddedLoRoms map[address.Rom]bool
	HandwrittenRoms map[address.Rom]bool

	// BranchTargets collects every intra-function branch target
	// encountered, so the display layer can place in-function labels.
	BranchTargets map[address.Vram]bool
}

// NewResult allocates an empty analysis result for a function starting at
// (startRom, startVram).
func NewResult(startRom address.Rom, startVram address.Vram) *Result {
	return &Result{
		StartVram:       startVram,
		StartRom:        startRom,
		ByRom:           make(map[address.Rom]*InstrInfo),
		CploadRoms:      make(map[address.Rom]bool),
		GpAddedLoRoms:   make(map[address.Rom]bool),
		HandwrittenRoms: make(map[address.Rom]bool),
		BranchTargets:   make(map[address.Vram]bool),
	}
}

func (r *Result) infoFor(rom address.Rom) *InstrInfo {
	if info, ok := r.ByRom[rom]; ok {
		return info
	}
	info := &InstrInfo{}
	r.ByRom[rom] = info
	return info
}
