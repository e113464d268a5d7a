// Package preheat implements the two-pass scan that seeds
// ReferencedAddress entries before real disassembly runs, so data
// sections can be split on plausible boundaries even when nothing else
// declares the symbol (spec.md section 4.1).
package preheat

import (
	"github.com/jetsetilly/spimdisasm/address"
	"github.com/jetsetilly/spimdisasm/config"
	"github.com/jetsetilly/spimdisasm/isa"
	"github.com/jetsetilly/spimdisasm/register"
	"github.com/jetsetilly/spimdisasm/segment"
	"github.com/jetsetilly/spimdisasm/strguess"
	"github.com/jetsetilly/spimdisasm/symbols"
)

// PreheatText scans a text section once, decoding each word and feeding a
// fresh register tracker, to record branch/jump/HI-LO targets before the
// function-boundary pass and instruction analyzer ever run.
func PreheatText(seg *segment.Metadata, bytes []byte, startVram address.Vram, cfg config.Context) {
	tracker := register.New()
	var prev *isa.Instruction

	for off := 0; off+4 <= len(bytes); off += 4 {
		instr := isa.Decode(bytes[off:off+4], cfg.Endian)
		vram := startVram + address.Vram(off)
		rom := address.Rom(off)

		prevWasTerminal := prev != nil && (prev.IsBranchLikely() || prev.IsUnconditionalBranch())

		switch {
		case instr.IsAnyBranch():
			target := vram.AddOffset(address.VramOffset(4 + instr.BranchOffsetWords()*4))
			seed := seg.GetOrCreateReferencedAddress(target)
			seed.AddReferrer(vram)
			seed.SetAutodetectedType(symbols.BranchLabel)
			tracker.ProcessBranch(instr, rom)

		case instr.IsJumpWithAddress():
			target := jumpTarget(vram, instr)
			seed := seg.GetOrCreateReferencedAddress(target)
			seed.AddReferrer(vram)
			seed.SetAutodetectedType(symbols.Function)

		case instr.IsJumpRegister() && !instr.IsReturn():
			if data, ok := tracker.GetJrRegData(instr); ok {
				target := address.Vram(data.Address)
				seed := seg.GetOrCreateReferencedAddress(target)
				seed.AddReferrer(vram)
				seed.SetAutodetectedType(symbols.Jumptable)
			}

		case instr.IsJumpAndLinkRegister():
			if st := tracker.Reg(instr.Rs()); st.HasAnyValue() {
				target := address.Vram(st.Value())
				seed := seg.GetOrCreateReferencedAddress(target)
				seed.AddReferrer(vram)
				seed.SetAutodetectedType(symbols.Function)
			}
		}

		if instr.CanBeHi() {
			tracker.ProcessHi(instr, rom, prevWasTerminal)
		}

		if at, ok := instr.CanBeLo(); ok {
			if info, ok := tracker.PreprocessLoAndGetInfo(instr); ok && !info.IsGpGot {
				addr := info.HiValue + uint32(instr.ImmS16())
				tracker.ProcessLo(instr, addr, rom)
				seed := seg.GetOrCreateReferencedAddress(address.Vram(addr))
				seed.AddReferrer(vram)
				if st, ok := symbols.AccessTypeFromIsa(at); ok {
					seed.SetAutodetectedType(st)
				}
				addAccess(seed, at)
				if instr.IsFloatLoadStore() || at != isa.AccessNone {
					tracker.MarkDereferenced(instr.DestRegister(), rom)
				}
			}
		}

		if prev != nil && prev.IsFunctionCall() {
			tracker.UnsetRegistersAfterFuncCall()
		}
		if instr.IsUnconditionalBranch() || instr.IsReturn() || instr.IsBranchLikely() {
			tracker.Clear()
		}
		if instr.IsJumpRegister() && !instr.IsReturn() {
			tracker.Clear()
		}

		instrCopy := instr
		prev = &instrCopy
	}
}

func jumpTarget(pc address.Vram, instr isa.Instruction) address.Vram {
	upper := uint32(pc+4) & 0xF0000000
	return address.Vram(upper | (instr.JumpTarget() << 2))
}

func addAccess(seed *symbols.ReferencedAddress, at isa.AccessType) {
	switch at {
	case isa.AccessByte, isa.AccessByteUnsigned:
		seed.AddAccess(symbols.AccessKindByte)
	case isa.AccessShort, isa.AccessShortUnsigned:
		seed.AddAccess(symbols.AccessKindShort)
	case isa.AccessWord:
		seed.AddAccess(symbols.AccessKindWord)
	case isa.AccessWordLeft:
		seed.AddAccess(symbols.AccessKindLeft)
	case isa.AccessWordRight:
		seed.AddAccess(symbols.AccessKindRight)
	case isa.AccessDoubleword:
		seed.AddAccess(symbols.AccessKindDWord)
	case isa.AccessFloat:
		seed.AddAccess(symbols.AccessKindFloat)
	case isa.AccessDouble:
		seed.AddAccess(symbols.AccessKindDouble)
	}
}

// PreheatData scans a word-aligned data (or rodata) section, planting
// CString references via the string guesser and pointer references for
// any word that decodes into this segment's vram range (spec.md section
// 4.1, data/rodata preheat).
func PreheatData(seg *segment.Metadata, bytes []byte, startVram address.Vram, cfg config.Context, guesser strguess.Guesser, rangeCheck func(address.Vram) bool) {
	skipUntil := 0

	for off := 0; off+4 <= len(bytes); off += 4 {
		vram := startVram + address.Vram(off)

		if off < skipUntil {
			continue
		}

		remaining := bytes[off:]
		ref, _ := seg.FindReferencedAddress(vram)
		size, err := guesser.Guess(ref, vram, remaining, cfg, false)
		if err == nil {
			seed := seg.GetOrCreateReferencedAddress(vram)
			seed.SetAutodetectedType(symbols.CString)
			padded := alignUp(size, 4)
			skipUntil = off + padded
			continue
		}

		word := decodeWord(bytes, off, cfg.Endian)
		target := address.Vram(word)
		if rangeCheck(target) {
			seed := seg.GetOrCreateReferencedAddress(target)
			seed.AddReferrer(vram)
			seed.SetAutodetectedType(symbols.Word)
		}
	}
}

// PreheatRodata is identical to PreheatData (spec.md section 4.1).
func PreheatRodata(seg *segment.Metadata, bytes []byte, startVram address.Vram, cfg config.Context, guesser strguess.Guesser, rangeCheck func(address.Vram) bool) {
	PreheatData(seg, bytes, startVram, cfg, guesser, rangeCheck)
}

// PreheatGccExceptTable records every word within the owning segment's
// vram range as a GccExceptTableLabel reference (spec.md section 4.1).
func PreheatGccExceptTable(seg *segment.Metadata, bytes []byte, startVram address.Vram, cfg config.Context, rangeCheck func(address.Vram) bool) {
	for off := 0; off+4 <= len(bytes); off += 4 {
		vram := startVram + address.Vram(off)
		word := decodeWord(bytes, off, cfg.Endian)
		target := address.Vram(word)
		if rangeCheck(target) {
			seed := seg.GetOrCreateReferencedAddress(target)
			seed.AddReferrer(vram)
			seed.SetAutodetectedType(symbols.GccExceptTableLabel)
		}
	}
}

func decodeWord(bytes []byte, off int, endian config.Endian) uint32 {
	instr := isa.Decode(bytes[off:off+4], endian)
	return instr.Word
}

func alignUp(v, alignment int) int {
	if alignment <= 0 {
		return v
	}
	return (v + alignment - 1) / alignment * alignment
}
