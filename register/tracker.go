// Package register implements the per-function abstract interpretation
// that reconstructs HI/LO address pairs, GP-relative and GOT addressing,
// and jump-register targets by tracking what each general-purpose
// register plausibly contains as instructions are walked in order.
package register

import (
	"github.com/jetsetilly/spimdisasm/address"
	"github.com/jetsetilly/spimdisasm/isa"
)

// hiInfo records where a register's HI half came from.
type hiInfo struct {
	instrRom          address.Rom
	setOnBranchLikely bool
}

// State is one register's tracked contents: value, and where each piece
// of that value came from. Deliberately a plain value type (POD) so
// branch lookahead can copy a Tracker cheaply and let alternate
// control-flow paths explore without polluting the mainline state —
// mirrors TrackedRegisterState in the reference implementation
// (analysis/tracked_register_state.rs).
type State struct {
	value uint32

	hi         *hiInfo
	gpInfo     *address.Rom
	loInfo     *address.Rom
	dereferenced *address.Rom
	branchInfo *address.Rom

	containsFloat bool
}

// Value returns the register's currently tracked value.
func (s State) Value() uint32 { return s.value }

// HasAnyValue reports whether any piece of state (HI, GP, or LO) is set.
// RegisterTracker.Clear must leave every register with this false
// (invariant 6 from spec.md section 8).
func (s State) HasAnyValue() bool { return s.hi != nil || s.gpInfo != nil || s.loInfo != nil }

// LoRom returns the ROM of the instruction that last set LO, if any.
func (s State) LoRom() (address.Rom, bool) {
	if s.loInfo == nil {
		return 0, false
	}
	return *s.loInfo, true
}

// HiRom returns the ROM of the instruction that set HI, if any, along with
// whether it was flagged suspect (set right after a branch-likely or
// unconditional branch, and therefore possibly never executed on the path
// that reaches the paired LO).
func (s State) HiRom() (rom address.Rom, setOnBranchLikely bool, ok bool) {
	if s.hi == nil {
		return 0, false, false
	}
	return s.hi.instrRom, s.hi.setOnBranchLikely, true
}

// GpRom returns the ROM of the instruction that established this
// register's value via a $gp-relative load (cpload/cpload-like), if any.
func (s State) GpRom() (address.Rom, bool) {
	if s.gpInfo == nil {
		return 0, false
	}
	return *s.gpInfo, true
}

// Dereferenced returns the ROM of the instruction that dereferenced this
// register's value (loaded through it), if any.
func (s State) Dereferenced() (address.Rom, bool) {
	if s.dereferenced == nil {
		return 0, false
	}
	return *s.dereferenced, true
}

// JrRegData is what `jr`-through-a-tracked-register needs: the source LO's
// rom, the computed address, and the originating branch's rom (if the
// value flowed through a conditional branch before reaching the jr).
type JrRegData struct {
	LoRom       address.Rom
	Address     uint32
	BranchRom   *address.Rom
}

// GetJrRegData returns the jump-table data for this register, if it holds
// a dereferenced, LO-paired value (spec.md section 4.2).
func (s State) GetJrRegData() (JrRegData, bool) {
	if s.dereferenced == nil || s.loInfo == nil {
		return JrRegData{}, false
	}
	return JrRegData{LoRom: *s.loInfo, Address: s.value, BranchRom: s.branchInfo}, true
}

func (s *State) clear() {
	*s = State{}
}

func (s *State) setHi(value uint32, instrRom address.Rom, prevWasBranchLikelyOrUnconditional bool) {
	s.value = value << 16
	s.hi = &hiInfo{instrRom: instrRom, setOnBranchLikely: prevWasBranchLikelyOrUnconditional}
	s.dereferenced = nil
	s.containsFloat = false
}

func (s *State) setGpLoad(value uint32, instrRom address.Rom) {
	s.value = value
	rom := instrRom
	s.gpInfo = &rom
	s.hi = nil
	s.containsFloat = false
}

func (s *State) setLo(value uint32, instrRom address.Rom) {
	s.value = value
	rom := instrRom
	s.loInfo = &rom
	s.dereferenced = nil
	s.containsFloat = false
}

func (s *State) setBranching(instrRom address.Rom) {
	rom := instrRom
	s.branchInfo = &rom
}

func (s *State) setDeref(instrRom address.Rom) {
	rom := instrRom
	s.dereferenced = &rom
	s.containsFloat = false
}

// NumTracked covers the 32 GPRs plus two extra slots (indices 32/33).
// GP() returns slot 32; the writers keep $gp's state in its GPR slot 28.
const (
	NumGPR     = 32
	indexGP    = 32
	indexT9Cop = 33
	NumTracked = 34
)

// Tracker is a fixed-size array of register State, copyable by value so
// branch lookahead can fork the mainline state.
type Tracker struct {
	regs [NumTracked]State
}

// New returns a freshly cleared Tracker.
func New() Tracker { return Tracker{} }

// Reg returns the state for a general-purpose register.
func (t *Tracker) Reg(r isa.Register) *State { return &t.regs[r] }

// GP returns the tracked state of $gp.
func (t *Tracker) GP() *State { return &t.regs[indexGP] }

// Clear performs a full reset: used on unconditional branch, jumptable
// jump, return, or branch-likely (spec.md section 4.1).
func (t *Tracker) Clear() {
	for i := range t.regs {
		t.regs[i].clear()
	}
}

// ProcessHi writes `lui`'s immediate into the destination register,
// flagging the HI suspect if the previous instruction was a branch-likely
// or unconditional branch (spec.md section 4.2, process_hi).
func (t *Tracker) ProcessHi(instr isa.Instruction, rom address.Rom, prevWasBranchLikelyOrUnconditional bool) {
	dst := t.Reg(instr.Rt())
	dst.setHi(uint32(instr.ImmU16()), rom, prevWasBranchLikelyOrUnconditional)
}

// ProcessLo writes the final paired address into the instruction's base
// register slot (spec.md section 4.2, process_lo).
func (t *Tracker) ProcessLo(instr isa.Instruction, addr uint32, rom address.Rom) {
	dst := t.Reg(instr.DestRegister())
	dst.setLo(addr, rom)
}

// PairingInfo is what PreprocessLoAndGetInfo reports about a potential
// HI/LO pairing.
type PairingInfo struct {
	HiRom  address.Rom
	HiValue uint32
	IsGpGot bool
}

// PreprocessLoAndGetInfo looks up the HI source register for a
// LO-pairable instruction and, if present, reports the pairing
// information — including whether the "HI" was actually a $gp+GOT setup
// rather than a literal lui (spec.md section 4.2,
// preprocess_lo_and_get_info).
func (t *Tracker) PreprocessLoAndGetInfo(instr isa.Instruction) (PairingInfo, bool) {
	base := t.Reg(instr.BaseRegister())
	if rom, suspect, ok := base.HiRom(); ok && !suspect {
		return PairingInfo{HiRom: rom, HiValue: base.value}, true
	}
	if rom, ok := base.GpRom(); ok {
		return PairingInfo{HiRom: rom, HiValue: base.value, IsGpGot: true}, true
	}
	return PairingInfo{}, false
}

// ProcessBranch records that this register's current value flowed through
// a branch, for later jumptable-jump detection (spec.md section 4.2,
// process_branch).
func (t *Tracker) ProcessBranch(instr isa.Instruction, rom address.Rom) {
	t.Reg(instr.Rs()).setBranching(rom)
}

// MarkDereferenced records that a load through this register's address
// occurred, needed before GetJrRegData can succeed.
func (t *Tracker) MarkDereferenced(reg isa.Register, rom address.Rom) {
	t.Reg(reg).setDeref(rom)
}

// SetGpLoad records that reg now holds a $gp-relative computed value
// (cpload / GOT-local setup).
func (t *Tracker) SetGpLoad(reg isa.Register, value uint32, rom address.Rom) {
	t.Reg(reg).setGpLoad(value, rom)
}

// GetJrRegData reports jump-table data for the register a `jr` targets.
func (t *Tracker) GetJrRegData(instr isa.Instruction) (JrRegData, bool) {
	return t.Reg(instr.Rs()).GetJrRegData()
}

// callerSaved lists the MIPS caller-saved GPRs (at, v0-v1, a0-a3, t0-t9)
// invalidated after a function call.
var callerSaved = []isa.Register{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 24, 25}

// UnsetRegistersAfterFuncCall invalidates the MIPS caller-saved register
// set, called after a `jal`/`jalr`/branch-link instruction's delay slot
// has been processed (spec.md section 4.1: "after function-call: clear
// caller-saved registers").
func (t *Tracker) UnsetRegistersAfterFuncCall() {
	for _, r := range callerSaved {
		t.Reg(r).clear()
	}
}

// Copy returns an independent copy of the tracker for branch lookahead.
func (t Tracker) Copy() Tracker { return t }
