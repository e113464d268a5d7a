// Package display renders post-processed functions and data symbols into
// reassemblable assembly text (spec.md section 4.7). It never decodes a
// MIPS word into a mnemonic itself — per-instruction textual formatting is
// explicitly an external collaborator's job (spec.md section 1) — this
// package only supplies that collaborator with the reloc-driven operand
// override, the in-function labels, and the directives/sizing around it.
package display

import (
	"bytes"
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/jetsetilly/spimdisasm/address"
	"github.com/jetsetilly/spimdisasm/config"
	"github.com/jetsetilly/spimdisasm/context"
	"github.com/jetsetilly/spimdisasm/isa"
	"github.com/jetsetilly/spimdisasm/postprocess"
	"github.com/jetsetilly/spimdisasm/segment"
	"github.com/jetsetilly/spimdisasm/symbols"
)

// Settings controls the cosmetic aspects of emitted assembly text that
// aren't driven by symbol metadata: whether to prefix each instruction
// with a rom/vram/word comment, how far to indent in-function labels, and
// the line terminator.
type Settings struct {
	Comments     bool
	LabelIndent  int
	LineEnd      string
}

// DefaultSettings matches the reference implementation's defaults: comment
// prefixes on, labels indented two spaces, Unix line endings.
func DefaultSettings() Settings {
	return Settings{Comments: true, LabelIndent: 2, LineEnd: "\n"}
}

func (s Settings) lineEnd() string {
	if s.LineEnd == "" {
		return "\n"
	}
	return s.LineEnd
}

// InstructionFormatter renders one decoded instruction's mnemonic and
// operands to text. immOverride, when non-empty, replaces the raw
// immediate/target operand with a symbol expression (%hi(sym), a plain
// symbol name, %gp_rel(sym), ...); extraLjust asks the formatter to
// narrow its mnemonic column by one character, matching the reference
// implementation's delay-slot indentation hack.
type InstructionFormatter interface {
	Format(instr isa.Instruction, immOverride string, extraLjust int) string
}

// RawWordFormatter is a placeholder InstructionFormatter used when no
// mnemonic-rendering collaborator has been wired in. It never decodes an
// opcode to a name; it only proves out the override plumbing. A real
// deployment supplies its own formatter (a full MIPS disassembler is out
// of this package's scope, same as the ELF reader is optional).
type RawWordFormatter struct{}

func (RawWordFormatter) Format(instr isa.Instruction, immOverride string, extraLjust int) string {
	if immOverride != "" {
		return fmt.Sprintf(".word %s", immOverride)
	}
	return fmt.Sprintf(".word 0x%08X", instr.Word)
}

// SelfSymNotFoundError is returned when post-processing left a section
// without metadata for its own start vram.
type SelfSymNotFoundError struct {
	Vram address.Vram
}

func (e *SelfSymNotFoundError) Error() string {
	return fmt.Sprintf("display: no symbol metadata at %s", e.Vram)
}

func labelName(vram address.Vram, lt symbols.LabelType) string {
	prefix := ".L"
	if lt == symbols.LabelGccExceptTable {
		prefix = "$LEH_"
	}
	return fmt.Sprintf("%s%08X", prefix, uint32(vram))
}

func alignShiftFor(st symbols.SymbolType) uint32 {
	return uint32(bits.TrailingZeros32(st.MinAlignment()))
}

// Function renders one function symbol's assembly text: .globl/.type/
// alignment directives, the label, each instruction (preceded by any
// in-function label sitting at its vram), and the closing .size.
func Function(ctx *context.Context, seg *segment.Metadata, cfg config.Context, startRom address.Rom, startVram address.Vram, instrBytes []byte, relocs map[address.Rom]postprocess.RelocationInfo, formatter InstructionFormatter, settings Settings) (string, error) {
	self, ok := seg.FindSymbol(startVram, false)
	if !ok {
		return "", &SelfSymNotFoundError{Vram: startVram}
	}
	name := self.EffectiveName()

	var out bytes.Buffer
	end := settings.lineEnd()

	fmt.Fprintf(&out, ".globl %s%s", name, end)
	fmt.Fprintf(&out, ".type %s, @function%s", name, end)
	if shift := alignShiftFor(symbols.Function); shift > 0 {
		fmt.Fprintf(&out, ".align %d%s", shift, end)
	}
	fmt.Fprintf(&out, "%s:%s", name, end)

	prevHadDelaySlot := false
	for off := 0; off+4 <= len(instrBytes); off += 4 {
		vram := startVram + address.Vram(off)
		rom := startRom + address.Rom(off)

		if vram != startVram {
			if lbl, ok := seg.FindLabel(vram); ok {
				if settings.LabelIndent > 0 {
					out.WriteString(strings.Repeat(" ", settings.LabelIndent))
				}
				fmt.Fprintf(&out, "%s:%s", labelName(vram, lbl.LabelType), end)
			}
		}

		instr := isa.Decode(instrBytes[off:off+4], cfg.Endian)

		if settings.Comments {
			fmt.Fprintf(&out, "/* %06X %08X %08X */ ", uint32(rom), uint32(vram), instr.Word)
		}

		prefix := "  "
		extraLjust := 0
		if prevHadDelaySlot {
			prefix += " "
			extraLjust = -1
		}
		out.WriteString(prefix)

		immOverride := formatImmOverride(ctx, seg, relocs[rom])
		out.WriteString(formatter.Format(instr, immOverride, extraLjust))
		out.WriteString(end)

		prevHadDelaySlot = instr.HasDelaySlot()
	}

	fmt.Fprintf(&out, ".size %s, . - %s%s", name, name, end)

	return out.String(), nil
}

// formatImmOverride turns a synthesized relocation into the operand text
// the instruction formatter should splice in, looking the target vram up
// as a symbol name. A RelNone or unresolved constant reloc yields no
// override, leaving the formatter to print the instruction's own raw
// immediate.
func formatImmOverride(ctx *context.Context, seg *segment.Metadata, reloc postprocess.RelocationInfo) string {
	if !reloc.HasTarget {
		return ""
	}

	symName := func() string {
		if sym, ok := ctx.FindSymbolGlobalFirst(seg, reloc.TargetVram, true); ok {
			return sym.EffectiveName()
		}
		return "0x" + strconv.FormatUint(uint64(reloc.TargetVram), 16)
	}

	switch reloc.Type {
	case postprocess.RelMipsHi16:
		return fmt.Sprintf("%%hi(%s)", symName())
	case postprocess.RelMipsLo16:
		return fmt.Sprintf("%%lo(%s)", symName())
	case postprocess.RelMips26:
		return symName()
	case postprocess.RelMipsGprel16:
		return fmt.Sprintf("%%gp_rel(%s)", symName())
	case postprocess.RelMipsGot16:
		return fmt.Sprintf("%%got(%s)", symName())
	case postprocess.RelMipsCall16:
		return fmt.Sprintf("%%call16(%s)", symName())
	case postprocess.RelMipsGotHi16:
		return fmt.Sprintf("%%got_hi(%s)", symName())
	case postprocess.RelMipsGotLo16:
		return fmt.Sprintf("%%got_lo(%s)", symName())
	case postprocess.RelMipsCallHi16:
		return fmt.Sprintf("%%call_hi(%s)", symName())
	case postprocess.RelMipsCallLo16:
		return fmt.Sprintf("%%call_lo(%s)", symName())
	case postprocess.RelMips32, postprocess.RelMipsGprel32:
		return symName()
	default:
		return ""
	}
}
