package analysis

import (
	"github.com/jetsetilly/spimdisasm/address"
	"github.com/jetsetilly/spimdisasm/config"
	"github.com/jetsetilly/spimdisasm/internal/logger"
	"github.com/jetsetilly/spimdisasm/isa"
	"github.com/jetsetilly/spimdisasm/register"
	"github.com/jetsetilly/spimdisasm/segment"
	"github.com/jetsetilly/spimdisasm/symbols"
)

// Analyzer walks one function's instructions in order, carrying a register
// Tracker, and classifies every instruction (spec.md section 4.2). It is
// the full-disassembly counterpart of the preheater: the preheater only
// plants referenced-address seeds on a first pass, while the Analyzer
// produces the per-instruction record the section splitter, relocation
// synthesizer, and display layer all consume.
type Analyzer struct{}

// New returns an Analyzer. It carries no state of its own.
func New() Analyzer { return Analyzer{} }

// maxLookaheadTargets bounds how many distinct branch/jumptable-case
// targets a single AnalyzeFunction call will fork a tracker and recurse
// into. Ordinary functions visit at most a few dozen; this only guards
// against a pathological or cyclic jumptable inflating the walk.
const maxLookaheadTargets = 4096

// funcWalker holds the state shared across the mainline walk and every
// lookahead fork spawned from it: the function's bytes/bounds, the
// jumptable-case lookup callback, and the single Result every fork writes
// into.
type funcWalker struct {
	seg       *segment.Metadata
	cfg       config.Context
	bytes     []byte
	startRom  address.Rom
	startVram address.Vram
	funcEnd   address.Vram
	gp        uint32
	hasGp     bool

	// jumptableTargets resolves a jumptable's vram to the vrams of its case
	// labels, letting "jumptable following" recurse into every listed
	// target (spec.md section 4.3). A caller with no rodata available yet
	// may pass nil; jumptable jumps are still classified, just not
	// followed.
	jumptableTargets func(address.Vram) ([]address.Vram, bool)

	result *Result

	// lookaheadVisited records every branch/jumptable-case target a fork
	// has already been spawned for, so a target is walked at most once
	// (spec.md section 4.3: "records the branch as taken (once)") and
	// backward branches/cyclic jumptables can't recurse forever.
	lookaheadVisited map[address.Vram]bool
}

// AnalyzeFunction walks bytes (one function's worth of instruction words,
// starting at startRom/startVram) and returns the classified Result.
// gp/hasGp seed the tracker's $gp slot when this segment's calling
// convention fixes $gp before the function is entered (e.g. a -mno-shared
// binary where $gp is the linker-computed global pointer rather than
// recovered via cpload). jumptableTargets, if non-nil, lets the analyzer
// follow a jumptable jump into each of its case labels (spec.md section
// 4.3, "Jumptable following").
func (Analyzer) AnalyzeFunction(seg *segment.Metadata, cfg config.Context, bytes []byte, startRom address.Rom, startVram address.Vram, gp uint32, hasGp bool, jumptableTargets func(address.Vram) ([]address.Vram, bool)) *Result {
	result := NewResult(startRom, startVram)
	w := &funcWalker{
		seg:              seg,
		cfg:              cfg,
		bytes:            bytes,
		startRom:         startRom,
		startVram:        startVram,
		funcEnd:          startVram + address.Vram(len(bytes)),
		gp:               gp,
		hasGp:            hasGp,
		jumptableTargets: jumptableTargets,
		result:           result,
		lookaheadVisited: make(map[address.Vram]bool),
	}

	tracker := register.New()
	if hasGp {
		tracker.SetGpLoad(isa.RegGP, gp, startRom)
	}
	w.walk(&tracker, 0, false)

	return result
}

// walk processes instruction words from startOff to the end of the
// function, mutating tracker in place. The mainline call (isLookahead
// false) always runs to the end of the function, so every instruction
// gets a Result entry regardless of control flow (spec.md section 8,
// invariant 3). A lookahead fork (isLookahead true) instead stops once it
// has processed one more instruction past an unconditional branch, return
// or branch-likely (conditional branches do not stop it) —
// the always-executed delay slot — since beyond that point the forked
// path has nothing left to contribute (spec.md section 4.3: "Unconditional
// branches terminate the lookahead; branch-likely instructions execute
// their delay slot unconditionally").
func (w *funcWalker) walk(tracker *register.Tracker, startOff int, isLookahead bool) {
	var prev *isa.Instruction
	var cploadPending *address.Rom
	stopAfterThis := false

	for off := startOff; off+4 <= len(w.bytes); off += 4 {
		instr, terminal := w.step(tracker, off, prev, &cploadPending)
		instrCopy := instr
		prev = &instrCopy

		if isLookahead {
			if stopAfterThis {
				return
			}
			if terminal {
				stopAfterThis = true
			}
		}
	}
}

// step classifies the single instruction at off, using and mutating
// tracker. info fields are only written the first time a given rom is
// classified (fresh); a later visit (the mainline walk reaching a rom a
// lookahead fork already wrote, or a lookahead revisiting a backward
// target) still advances its own tracker so later instructions in that
// walk stay consistent, but leaves the recorded classification alone —
// whichever walk reaches an instruction first owns its Result entry.
func (w *funcWalker) step(tracker *register.Tracker, off int, prev *isa.Instruction, cploadPending **address.Rom) (isa.Instruction, bool) {
	instr := isa.Decode(w.bytes[off:off+4], w.cfg.Endian)
	vram := w.startVram + address.Vram(off)
	rom := w.startRom + address.Rom(off)

	prevWasTerminal := prev != nil && (prev.IsBranchLikely() || prev.IsUnconditionalBranch())
	info := w.result.infoFor(rom)
	fresh := info.Class == ClassNone

	switch {
	case instr.IsAnyBranch():
		target := vram.AddOffset(address.VramOffset(4 + instr.BranchOffsetWords()*4))
		inFunc := target >= w.startVram && target < w.funcEnd
		if fresh {
			info.ReferencedVram, info.HasReference = target, true
			if inFunc {
				w.result.BranchTargets[target] = true
				if instr.IsBranchLink() {
					info.Class = ClassBranchLink
				} else {
					info.Class = ClassBranch
				}
			} else {
				info.Class = ClassBranchOutside
			}
		}
		tracker.ProcessBranch(instr, rom)
		if inFunc {
			w.forkBranch(tracker.Copy(), target)
		}

	case instr.IsJumpWithAddress():
		target := jumpTarget(vram, instr)
		inFunc := target >= w.startVram && target < w.funcEnd
		if fresh {
			info.ReferencedVram, info.HasReference = target, true
			switch {
			case instr.IsJal():
				info.Class = ClassDirectLink
			case inFunc:
				info.Class = ClassBranch
				w.result.BranchTargets[target] = true
			default:
				info.Class = ClassTailCall
			}
		}
		if inFunc && !instr.IsJal() {
			w.forkBranch(tracker.Copy(), target)
		}

	case instr.IsJumpRegister():
		if instr.IsReturn() {
			if fresh {
				info.Class = ClassReturnJump
			}
			break
		}
		if data, ok := tracker.GetJrRegData(instr); ok {
			if fresh {
				info.Class = ClassJumptableJump
				info.ReferencedVram, info.HasReference = address.Vram(data.Address), true
				info.LoRom, info.HasLo = data.LoRom, true
				if _, ok := w.seg.Got(); ok {
					if _, gpOk := tracker.Reg(instr.BaseRegister()).GpRom(); gpOk {
						info.JumptablePIC = true
					}
				}
			}
			w.forkJumptable(tracker.Copy(), address.Vram(data.Address))
		}

	case instr.IsJumpAndLinkRegister():
		if fresh {
			info.Class = ClassJumpAndLinkRegister
			if st := tracker.Reg(instr.Rs()); st.HasAnyValue() {
				info.ReferencedVram, info.HasReference = address.Vram(st.Value()), true
			}
		}
	}

	if instr.CanBeHi() {
		if fresh {
			info.Class = ClassHi
			info.HiRom, info.HasHi = rom, true
		}
		tracker.ProcessHi(instr, rom, prevWasTerminal)
		if instr.Rt() == isa.RegGP {
			r := rom
			*cploadPending = &r
		}
	}

	if at, ok := instr.CanBeLo(); ok {
		w.analyzeLo(tracker, instr, rom, at, info, fresh)
	}

	if *cploadPending != nil && isCploadFinish(instr) {
		tracker.SetGpLoad(isa.RegGP, w.gp, **cploadPending)
		w.result.CploadRoms[**cploadPending] = true
		if fresh && info.Class == ClassNone {
			info.Class = ClassGpSet
		}
		*cploadPending = nil
	}

	if prev != nil && prev.IsFunctionCall() {
		tracker.UnsetRegistersAfterFuncCall()
	}

	terminal := instr.IsUnconditionalBranch() || instr.IsReturn() || instr.IsBranchLikely()
	if terminal {
		tracker.Clear()
		if w.hasGp {
			tracker.SetGpLoad(isa.RegGP, w.gp, rom)
		}
	}
	if instr.IsJumpRegister() && !instr.IsReturn() {
		tracker.Clear()
	}

	return instr, terminal
}

// forkBranch spawns a lookahead fork at a branch or in-function jump's
// target, copying tracker so the alternate path can't pollute the caller's
// mainline state (spec.md section 4.3, "Branch lookahead").
func (w *funcWalker) forkBranch(tracker register.Tracker, target address.Vram) {
	w.followTarget(tracker, target)
}

// forkJumptable resolves a jumptable's case labels (if a lookup was
// supplied) and spawns one lookahead fork per case, each with its own copy
// of tracker taken at the jr site (spec.md section 4.3, "Jumptable
// following").
func (w *funcWalker) forkJumptable(tracker register.Tracker, jumptableVram address.Vram) {
	if w.jumptableTargets == nil {
		return
	}
	if w.lookaheadVisited[jumptableVram] {
		return
	}
	w.lookaheadVisited[jumptableVram] = true

	targets, ok := w.jumptableTargets(jumptableVram)
	if !ok {
		return
	}
	for _, target := range targets {
		w.followTarget(tracker.Copy(), target)
	}
}

func (w *funcWalker) followTarget(tracker register.Tracker, target address.Vram) {
	if target < w.startVram || target >= w.funcEnd {
		return
	}
	if w.lookaheadVisited[target] {
		return
	}
	if len(w.lookaheadVisited) >= maxLookaheadTargets {
		logger.Logf("analysis", "lookahead cap reached at function 0x%x, target 0x%x dropped", w.startVram, target)
		return
	}
	w.lookaheadVisited[target] = true
	w.walk(&tracker, int(target-w.startVram), true)
}

// analyzeLo fills in the analysis record for an addiu/load/store
// instruction, distinguishing a plain HI/LO pair from $gp-relative and
// GOT-relative addressing (spec.md section 4.2's paired-address and
// GP/GOT classification rules). Whether a $gp-based access is plain
// %gp_rel small-data or a GOT indirection is decided by whether this
// segment carries a GlobalOffsetTable at all, not by anything in the
// instruction encoding itself — the same `lw $t, imm($gp)` shape serves
// both a non-PIC small-data load and a PIC GOT lookup.
func (w *funcWalker) analyzeLo(tracker *register.Tracker, instr isa.Instruction, rom address.Rom, at isa.AccessType, info *InstrInfo, fresh bool) {
	if fresh {
		info.Access = at
	}

	if instr.BaseRegister() == isa.RegGP {
		w.analyzeGpRelative(tracker, instr, rom, at, info, fresh)
		return
	}

	pairing, ok := tracker.PreprocessLoAndGetInfo(instr)
	if !ok {
		if fresh {
			info.Class = ClassConstant
		}
		return
	}

	if fresh {
		info.HiRom, info.HasHi = pairing.HiRom, true
		info.LoRom, info.HasLo = rom, true
	}

	addr := pairing.HiValue + uint32(instr.ImmS16())
	tracker.ProcessLo(instr, addr, rom)
	if fresh {
		info.Class = ClassPairedAddress
		info.ReferencedVram, info.HasReference = address.Vram(addr), true
	}
	if instr.IsFloatLoadStore() || at != isa.AccessNone {
		tracker.MarkDereferenced(instr.DestRegister(), rom)
	}
}

// analyzeGpRelative handles every `imm($gp)` access once $gp's own tracked
// value is known (from a prologue cpload or a segment-wide gp_value).
// Without a GOT, this is %gp_rel small-data addressing; with one, the
// target vram is itself a GOT slot to resolve through.
func (w *funcWalker) analyzeGpRelative(tracker *register.Tracker, instr isa.Instruction, rom address.Rom, at isa.AccessType, info *InstrInfo, fresh bool) {
	gpState := tracker.Reg(isa.RegGP)
	if !gpState.HasAnyValue() {
		if fresh {
			info.Class = ClassGpRel
		}
		return
	}
	effectiveAddr := gpState.Value() + uint32(instr.ImmS16())

	got, hasGot := w.seg.Got()
	if !hasGot {
		if fresh {
			info.Class = ClassGpRel
			info.ReferencedVram, info.HasReference = address.Vram(effectiveAddr), true
		}
		if instr.IsFloatLoadStore() || at != isa.AccessNone {
			tracker.MarkDereferenced(instr.DestRegister(), rom)
		}
		return
	}

	entry, found := got.RequestAddress(address.Vram(effectiveAddr))
	if !found {
		if fresh {
			info.Class = ClassPairedGotLo
		}
		tracker.ProcessLo(instr, effectiveAddr, rom)
		return
	}

	if fresh {
		switch entry.Kind {
		case symbols.GotLazyResolver:
			info.Class = ClassGpGotLazyResolver
		case symbols.GotLocal:
			info.Class = ClassGpGotLocal
		case symbols.GotGlobal:
			info.Class = ClassGpGotGlobal
		}
	}
	addr := entry.Address()
	tracker.ProcessLo(instr, addr, rom)
	tracker.MarkDereferenced(instr.DestRegister(), rom)
	if fresh {
		info.ReferencedVram, info.HasReference = address.Vram(addr), true
	}
}

// isCploadFinish reports the second half of the standard `.cpload`
// expansion: `addu $gp, $gp, $t9` (or the `_gp_disp`-relative variant
// using $ra), which finalizes the lui-seeded $gp value.
func isCploadFinish(instr isa.Instruction) bool {
	return instr.IsAddu() && instr.Rd() == isa.RegGP && (instr.Rs() == isa.RegGP || instr.Rt() == isa.RegGP)
}

func jumpTarget(pc address.Vram, instr isa.Instruction) address.Vram {
	upper := uint32(pc+4) & 0xF0000000
	return address.Vram(upper | (instr.JumpTarget() << 2))
}
