package display

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/jetsetilly/spimdisasm/address"
	"github.com/jetsetilly/spimdisasm/context"
	"github.com/jetsetilly/spimdisasm/postprocess"
	"github.com/jetsetilly/spimdisasm/section"
	"github.com/jetsetilly/spimdisasm/segment"
	"github.com/jetsetilly/spimdisasm/symbols"
)

// Data renders one data/rodata DataSym: .globl/.type/alignment, the
// label, the chunked byte contents per its effective symbol type, and the
// closing .size.
func Data(ctx *context.Context, seg *segment.Metadata, sym section.DataSym, relocs map[address.Vram]postprocess.RelocationInfo, settings Settings) (string, error) {
	self, ok := seg.FindSymbol(sym.Vram, false)
	if !ok {
		return "", &SelfSymNotFoundError{Vram: sym.Vram}
	}
	name := self.EffectiveName()

	var out bytes.Buffer
	end := settings.lineEnd()

	fmt.Fprintf(&out, ".globl %s%s", name, end)
	fmt.Fprintf(&out, ".type %s, @object%s", name, end)
	if shift := alignShiftFor(sym.Type); shift > 0 {
		fmt.Fprintf(&out, ".align %d%s", shift, end)
	}
	fmt.Fprintf(&out, "%s:%s", name, end)

	switch sym.Type {
	case symbols.CString:
		writeCString(&out, sym.Bytes, end)
	case symbols.Float32:
		writeFloats(&out, ctx, seg, sym, relocs, end)
	case symbols.Float64:
		writeDoubles(&out, ctx, seg, sym, relocs, end)
	case symbols.Byte:
		writeBytes(&out, sym.Bytes, end)
	case symbols.Short:
		writeShorts(&out, sym.Bytes, end)
	default:
		writeWords(&out, ctx, seg, sym, relocs, end)
	}

	fmt.Fprintf(&out, ".size %s, . - %s%s", name, name, end)

	return out.String(), nil
}

// Bss renders a .space directive for an uninitialized symbol, spec.md
// section 4.7's bss case.
func Bss(seg *segment.Metadata, vram address.Vram, size address.Size, settings Settings) (string, error) {
	self, ok := seg.FindSymbol(vram, false)
	if !ok {
		return "", &SelfSymNotFoundError{Vram: vram}
	}
	name := self.EffectiveName()
	end := settings.lineEnd()

	var out bytes.Buffer
	fmt.Fprintf(&out, ".globl %s%s", name, end)
	fmt.Fprintf(&out, "%s:%s", name, end)
	fmt.Fprintf(&out, ".space 0x%X%s", uint32(size), end)
	return out.String(), nil
}

func writeBytes(out *bytes.Buffer, b []byte, end string) {
	for _, v := range b {
		fmt.Fprintf(out, " .byte 0x%02X%s", v, end)
	}
}

func writeShorts(out *bytes.Buffer, b []byte, end string) {
	for off := 0; off+2 <= len(b); off += 2 {
		v := uint16(b[off])<<8 | uint16(b[off+1])
		fmt.Fprintf(out, " .short 0x%04X%s", v, end)
	}
	if rem := len(b) % 2; rem != 0 {
		writeBytes(out, b[len(b)-rem:], end)
	}
}

// writeWords handles every symbol type not given its own case (Word,
// DWord, Jumptable, GccExceptTableSym, VirtualTable, UserCustom), chunking
// by word and downgrading to .byte/.short when fewer than 4 bytes remain,
// matching spec.md's "downgrade until realigned" rule.
func writeWords(out *bytes.Buffer, ctx *context.Context, seg *segment.Metadata, sym section.DataSym, relocs map[address.Vram]postprocess.RelocationInfo, end string) {
	b := sym.Bytes
	for off := 0; off+4 <= len(b); off += 4 {
		wordVram := sym.Vram + address.Vram(off)
		word := uint32(b[off])<<24 | uint32(b[off+1])<<16 | uint32(b[off+2])<<8 | uint32(b[off+3])

		if reloc, ok := relocs[wordVram]; ok && reloc.HasTarget {
			name := symbolNameAt(ctx, seg, reloc.TargetVram)
			fmt.Fprintf(out, " .word %s%s", name, end)
			continue
		}
		fmt.Fprintf(out, " .word 0x%08X%s", word, end)
	}
	if rem := len(b) % 4; rem != 0 {
		tail := b[len(b)-rem:]
		if rem >= 2 {
			writeShorts(out, tail[:2], end)
			tail = tail[2:]
		}
		writeBytes(out, tail, end)
	}
}

func writeFloats(out *bytes.Buffer, ctx *context.Context, seg *segment.Metadata, sym section.DataSym, relocs map[address.Vram]postprocess.RelocationInfo, end string) {
	b := sym.Bytes
	for off := 0; off+4 <= len(b); off += 4 {
		wordVram := sym.Vram + address.Vram(off)
		bits := uint32(b[off])<<24 | uint32(b[off+1])<<16 | uint32(b[off+2])<<8 | uint32(b[off+3])

		if reloc, ok := relocs[wordVram]; ok && reloc.HasTarget {
			fmt.Fprintf(out, " .word %s%s", symbolNameAt(ctx, seg, reloc.TargetVram), end)
			continue
		}

		f := math.Float32frombits(bits)
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			fmt.Fprintf(out, " .word 0x%08X%s", bits, end)
			continue
		}
		fmt.Fprintf(out, " .float %s%s", strconv.FormatFloat(float64(f), 'g', -1, 32), end)
	}
	if rem := len(b) % 4; rem != 0 {
		writeBytes(out, b[len(b)-rem:], end)
	}
}

func writeDoubles(out *bytes.Buffer, ctx *context.Context, seg *segment.Metadata, sym section.DataSym, relocs map[address.Vram]postprocess.RelocationInfo, end string) {
	b := sym.Bytes
	for off := 0; off+8 <= len(b); off += 8 {
		var bits uint64
		for i := 0; i < 8; i++ {
			bits = bits<<8 | uint64(b[off+i])
		}
		d := math.Float64frombits(bits)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			hi := uint32(bits >> 32)
			lo := uint32(bits)
			fmt.Fprintf(out, " .word 0x%08X%s .word 0x%08X%s", hi, end, lo, end)
			continue
		}
		fmt.Fprintf(out, " .double %s%s", strconv.FormatFloat(d, 'g', -1, 64), end)
	}
	if rem := len(b) % 8; rem != 0 {
		writeWords(out, ctx, seg, section.DataSym{Vram: sym.Vram + address.Vram(len(b)-rem), Bytes: b[len(b)-rem:], Type: symbols.Word}, relocs, end)
	}
}

// writeCString decodes bytes up to (and including) its NUL terminator as
// an .asciz directive, escaping control/non-ASCII bytes as \xHH. Full
// Shift-JIS/EUC-JP/EUC-CN glyph rendering is left to the caller's editor;
// this only has to round-trip through an assembler, which accepts the
// \xHH escape for any byte value.
func writeCString(out *bytes.Buffer, b []byte, end string) {
	out.WriteString(" .asciz \"")
	for _, c := range b {
		if c == 0 {
			break
		}
		switch {
		case c == '"' || c == '\\':
			out.WriteByte('\\')
			out.WriteByte(c)
		case c >= 0x20 && c < 0x7F:
			out.WriteByte(c)
		default:
			fmt.Fprintf(out, "\\x%02X", c)
		}
	}
	out.WriteString("\"")
	out.WriteString(end)
}

func symbolNameAt(ctx *context.Context, seg *segment.Metadata, vram address.Vram) string {
	if sym, ok := ctx.FindSymbolGlobalFirst(seg, vram, true); ok {
		return sym.EffectiveName()
	}
	return fmt.Sprintf("0x%08X", uint32(vram))
}
