// Package section splits a data/rodata/bss/gcc_except_table section's raw
// bytes into symbol-sized slices, once preheat has seeded every
// ReferencedAddress and before post-processing runs (spec.md section
// 4.4).
package section

import (
	"sort"

	"github.com/jetsetilly/spimdisasm/address"
	"github.com/jetsetilly/spimdisasm/config"
	"github.com/jetsetilly/spimdisasm/internal/logger"
	"github.com/jetsetilly/spimdisasm/isa"
	"github.com/jetsetilly/spimdisasm/segment"
	"github.com/jetsetilly/spimdisasm/strguess"
	"github.com/jetsetilly/spimdisasm/symbols"
)

// boundary is a provisional split point discovered while scanning, before
// its effective symbol type is resolved.
type boundary struct {
	vram    address.Vram
	autoPad bool
}

// DataSym is one symbol-sized slice carved out of a data/rodata section.
type DataSym struct {
	Vram  address.Vram
	Bytes []byte
	Type  symbols.SymbolType
	// LateRodata marks a symbol emitted after the compiler's late-rodata
	// threshold was crossed (jumptable followed by float runs, IDO-ism).
	LateRodata bool
	// AutoPad records a boundary inserted purely to re-align after a
	// string or a sized user symbol, not because a new reference begins
	// there.
	AutoPad bool
}

// RangeCheck reports whether vram falls inside the segment currently
// being split, the same predicate preheat.PreheatData takes.
type RangeCheck func(address.Vram) bool

// Split walks bytes (a data or rodata section's contents starting at
// startVram) and returns it carved into DataSym entries, per spec.md
// section 4.4's boundary algorithm: string runs, pointer references, and
// known symbol starts/ends all open a new boundary.
func Split(seg *segment.Metadata, bytes []byte, startVram address.Vram, cfg config.Context, guesser strguess.Guesser, inRange RangeCheck) []DataSym {
	if len(bytes) == 0 {
		return nil
	}

	boundaries := []boundary{{vram: startVram}}
	seen := map[address.Vram]bool{startVram: true}
	addBoundary := func(vram address.Vram, autoPad bool) {
		if vram < startVram || vram >= startVram+address.Vram(len(bytes)) {
			return
		}
		if seen[vram] || seg.IsIgnored(vram) {
			return
		}
		seen[vram] = true
		boundaries = append(boundaries, boundary{vram: vram, autoPad: autoPad})
	}

	prevSymType := symbols.Word
	floatRun := 0
	lateRodataStart := address.Vram(0)
	hasLateRodataStart := false
	skipUntil := 0

	for off := 0; off+4 <= len(bytes); off += 4 {
		vram := startVram + address.Vram(off)

		if off < skipUntil {
			continue
		}

		remaining := bytes[off:]
		reachedLate := hasLateRodataStart && vram >= lateRodataStart
		ref, _ := seg.FindReferencedAddress(vram)
		if size, err := guesser.Guess(ref, vram, remaining, cfg, reachedLate); err == nil {
			addBoundary(vram, false)
			padded := alignUp(off+size, 4)
			skipUntil = padded
			addBoundary(startVram+address.Vram(padded), true)
			prevSymType = symbols.CString
			floatRun = 0
			continue
		}

		word := decodeWord(bytes, off, cfg.Endian)
		target := address.Vram(word)
		if inRange(target) {
			if _, hasSelf := seg.FindSymbol(vram, false); !hasSelf {
				if _, hasTarget := seg.FindSymbol(target, false); !hasTarget {
					addBoundary(target, false)
				}
			}
		}

		for b := 0; b < 4; b++ {
			byteVram := vram + address.Vram(b)
			if sym, ok := seg.FindSymbol(byteVram, false); ok {
				addBoundary(byteVram, false)
				if sym.Size.HasUser() {
					addBoundary(byteVram+address.Vram(sym.Size.Get()), true)
				}
			}
		}

		st := symbols.Word
		if ref != nil {
			if t, ok := ref.EffectiveType(); ok {
				st = t
			}
		}

		if cfg.Compiler.SupportsLateRodata() && !hasLateRodataStart {
			switch {
			case prevSymType == symbols.Jumptable && st != symbols.Jumptable:
				lateRodataStart, hasLateRodataStart = vram, true
			case st == symbols.Float32 || st == symbols.Float64:
				floatRun++
				if floatRun >= 2 && isZero(word) {
					lateRodataStart, hasLateRodataStart = vram, true
				}
			default:
				floatRun = 0
			}
		}
		prevSymType = st
	}

	sort.Slice(boundaries, func(i, j int) bool { return boundaries[i].vram < boundaries[j].vram })

	return slice(bytes, startVram, resolveBoundaries(boundaries, seg, lateRodataStart, hasLateRodataStart))
}

type resolvedBoundary struct {
	vram       address.Vram
	autoPad    bool
	symType    symbols.SymbolType
	lateRodata bool
}

func resolveBoundaries(bs []boundary, seg *segment.Metadata, lateStart address.Vram, hasLate bool) []resolvedBoundary {
	out := make([]resolvedBoundary, 0, len(bs))
	for _, b := range bs {
		st := symbols.Word
		if sym, ok := seg.FindSymbol(b.vram, false); ok {
			if t, ok := sym.Type.Get(); ok {
				st = t
			}
		} else if ref, ok := seg.FindReferencedAddress(b.vram); ok {
			if t, ok := ref.EffectiveType(); ok {
				st = t
			}
		}
		out = append(out, resolvedBoundary{
			vram:       b.vram,
			autoPad:    b.autoPad,
			symType:    st,
			lateRodata: hasLate && b.vram >= lateStart,
		})
	}
	return out
}

func slice(bytes []byte, startVram address.Vram, bs []resolvedBoundary) []DataSym {
	out := make([]DataSym, 0, len(bs))
	for i, b := range bs {
		startOff := int(b.vram - startVram)
		endOff := len(bytes)
		if i+1 < len(bs) {
			endOff = int(bs[i+1].vram - startVram)
		}
		if endOff <= startOff {
			logger.Logf("section", "dropping degenerate boundary at vram 0x%x (start %d >= end %d)", b.vram, startOff, endOff)
			continue
		}
		out = append(out, DataSym{
			Vram:       b.vram,
			Bytes:      bytes[startOff:endOff],
			Type:       b.symType,
			LateRodata: b.lateRodata,
			AutoPad:    b.autoPad,
		})
	}
	return out
}

func decodeWord(bytes []byte, off int, endian config.Endian) uint32 {
	instr := isa.Decode(bytes[off:off+4], endian)
	return instr.Word
}

func isZero(w uint32) bool { return w == 0 }

func alignUp(v, alignment int) int {
	if alignment <= 0 {
		return v
	}
	return (v + alignment - 1) / alignment * alignment
}
