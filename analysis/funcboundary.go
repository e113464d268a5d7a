package analysis

import (
	"github.com/jetsetilly/spimdisasm/address"
	"github.com/jetsetilly/spimdisasm/config"
	"github.com/jetsetilly/spimdisasm/isa"
)

// Boundary is one detected function start, plus the ROM of an
// auto-inserted alignment pad before it, if the scan skipped NOPs to get
// there.
type Boundary struct {
	StartRom    address.Rom
	AutoPadRom  address.Rom
	HasAutoPad  bool
}

// TrustableFuncAt reports whether a trustable (user-declared or otherwise
// already-known) function symbol exists at the given word index's vram,
// used by DetectFunctionBoundaries to end a function two instructions
// early when the next one is already known to start a new symbol.
type TrustableFuncAt func(wordIndex int) bool

// DetectFunctionBoundaries scans a text section's decoded instructions
// and splits it into provisional function starts (spec.md section 4.3).
// trustableFuncStart may be nil.
func DetectFunctionBoundaries(bytes []byte, cfg config.Context, trustableFuncStart TrustableFuncAt) []Boundary {
	instrs := decodeAll(bytes, cfg.Endian)
	if len(instrs) == 0 {
		return nil
	}

	idx := 0
	for idx < len(instrs) && instrs[idx].IsNop() {
		idx++
	}
	if idx >= len(instrs) {
		return nil
	}

	starts := []int{idx}
	curStart := idx
	farthest := int32(0)
	containsInvalid := false
	handwritten := false

	var out []Boundary
	var pendingPad *address.Rom

	for i := idx; i < len(instrs); i++ {
		instr := instrs[i]
		if !instr.IsValid() {
			containsInvalid = true
		}

		if instr.IsAnyBranch() {
			offset := instr.BranchOffsetWords()
			targetIdx := i + 1 + int(offset)

			switch {
			case offset > 0:
				if offset > farthest {
					farthest = offset
				}
			case offset < 0 && targetIdx < curStart && !handwritten && !containsInvalid:
				for len(starts) > 1 && starts[len(starts)-1] > targetIdx {
					starts = starts[:len(starts)-1]
				}
				curStart = starts[len(starts)-1]
				// Every start popped above had already produced a
				// completed-function entry in out (invariant: out holds
				// exactly one boundary per start below the in-progress
				// one). Drop those too — they were false splits — and
				// restore the pad recorded for the start now in progress
				// again, so no discarded start's pad is carried over.
				if want := len(starts) - 1; len(out) > want {
					pendingPad = nil
					if out[want].HasAutoPad {
						pad := out[want].AutoPadRom
						pendingPad = &pad
					}
					out = out[:want]
				}
				farthest = 0
				containsInvalid = false
			}
		}

		isFunctionEnd := false
		if trustableFuncStart != nil && i+2 < len(instrs) && trustableFuncStart(i+2) {
			isFunctionEnd = true
		} else if farthest <= 0 && isFunctionEndingInstruction(instr, cfg) {
			isFunctionEnd = true
		}

		if !isFunctionEnd {
			continue
		}

		b := Boundary{StartRom: wordRom(curStart)}
		if pendingPad != nil {
			b.HasAutoPad, b.AutoPadRom = true, *pendingPad
			pendingPad = nil
		}
		out = append(out, b)

		j := i + 1
		for j < len(instrs) && instrs[j].IsNop() {
			j++
		}
		if j >= len(instrs) {
			break
		}
		if j > i+1 {
			pad := wordRom(i + 1)
			pendingPad = &pad
		}

		starts = append(starts, j)
		curStart = j
		farthest = 0
		containsInvalid = false
		handwritten = false
		i = j - 1
	}

	if len(out) == 0 || out[len(out)-1].StartRom != wordRom(curStart) {
		last := Boundary{StartRom: wordRom(curStart)}
		if pendingPad != nil {
			last.HasAutoPad, last.AutoPadRom = true, *pendingPad
		}
		out = append(out, last)
	}

	return dedupBoundaries(out)
}

// isFunctionEndingInstruction reports the control-transfer instructions
// that can end a function once no forward branch remains unresolved:
// `jr $ra`, a non-linking jump-with-address tail call (unless the ISA
// variant treats `j` as an intra-function branch), or a jumptable jump
// through a non-$ra register.
func isFunctionEndingInstruction(instr isa.Instruction, cfg config.Context) bool {
	if instr.IsReturn() {
		return true
	}
	if instr.IsJ() && !cfg.InstructionFlags.JAsBranch {
		return true
	}
	if instr.IsJumpRegister() && !instr.IsReturn() {
		return true
	}
	return false
}

func decodeAll(bytes []byte, endian config.Endian) []isa.Instruction {
	out := make([]isa.Instruction, 0, len(bytes)/4)
	for off := 0; off+4 <= len(bytes); off += 4 {
		out = append(out, isa.Decode(bytes[off:off+4], endian))
	}
	return out
}

func wordRom(wordIndex int) address.Rom { return address.Rom(wordIndex * 4) }

func dedupBoundaries(in []Boundary) []Boundary {
	out := in[:0]
	var lastRom address.Rom
	haveLast := false
	for _, b := range in {
		if haveLast && b.StartRom == lastRom {
			continue
		}
		out = append(out, b)
		lastRom = b.StartRom
		haveLast = true
	}
	return out
}
