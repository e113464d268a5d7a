// Package elfreader is the disassembler's optional ELF collaborator
// (spec.md section 6): given an ELF file it can pull raw sections,
// symbols, and the PIC global offset table straight from the file's own
// tables, sparing the caller from re-declaring what the linker already
// recorded. Nothing else in this repository requires it — a caller with
// raw bytes and a hand-built Context never touches this package.
package elfreader

import (
	"debug/elf"
	"fmt"
	"sort"

	"github.com/jetsetilly/spimdisasm/address"
	"github.com/jetsetilly/spimdisasm/config"
	"github.com/jetsetilly/spimdisasm/internal/curated"
	"github.com/jetsetilly/spimdisasm/isa"
	"github.com/jetsetilly/spimdisasm/symbols"
)

// RawSection is one ELF section's bytes plus its vram/rom placement,
// mirroring the elfSection shape the teacher's own ELF loader
// (hardware/memory/cartridge/elf/memory.go) keeps per section.
type RawSection struct {
	Name  string
	Bytes []byte
	Vram  address.Vram
	Rom   address.Rom
	Flags elf.SectionFlag
}

// RawSymbol is one ELF symbol table entry, trimmed to what the
// disassembler's symbol metadata needs.
type RawSymbol struct {
	Name    string
	Vram    address.Vram
	Size    uint32
	IsFunc  bool
	Section string
}

// File wraps a parsed ELF file plus the derived data the disassembler
// core asks for: ordered sections, symbols, and (when present) the GOT.
type File struct {
	elf      *elf.File
	Sections []RawSection
	Symbols  []RawSymbol
}

// Open parses an ELF file's raw bytes using the standard library's
// debug/elf (the only ELF reader used anywhere in the example pack; the
// teacher's own cartridge/elf loader goes through it directly rather than
// a third-party ELF library).
func Open(r interface {
	ReadAt(p []byte, off int64) (n int, err error)
}) (*File, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, curated.Errorf("elfreader: %v", err)
	}

	sections := make([]RawSection, 0, len(f.Sections))
	for _, s := range f.Sections {
		if s.Type != elf.SHT_PROGBITS && s.Type != elf.SHT_NOBITS {
			continue
		}
		data, err := s.Data()
		if err != nil && s.Type != elf.SHT_NOBITS {
			return nil, curated.Errorf("elfreader: section %s: %v", s.Name, err)
		}
		sections = append(sections, RawSection{
			Name:  s.Name,
			Bytes: data,
			Vram:  address.Vram(s.Addr),
			Rom:   address.Rom(s.Offset),
			Flags: s.Flags,
		})
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].Vram < sections[j].Vram })

	allSyms, err := f.Symbols()
	if err != nil && err != elf.ErrNoSymbols {
		return nil, curated.Errorf("elfreader: symbols: %v", err)
	}
	syms := make([]RawSymbol, 0, len(allSyms))
	for _, s := range allSyms {
		sectionName := ""
		if int(s.Section) < len(f.Sections) {
			sectionName = f.Sections[s.Section].Name
		}
		syms = append(syms, RawSymbol{
			Name:    s.Name,
			Vram:    address.Vram(s.Value),
			Size:    uint32(s.Size),
			IsFunc:  elf.ST_TYPE(s.Info) == elf.STT_FUNC,
			Section: sectionName,
		})
	}

	return &File{elf: f, Sections: sections, Symbols: syms}, nil
}

// SectionByName finds a parsed section by its ELF name (e.g. ".text",
// ".rodata", ".data", ".bss", ".gcc_except_table").
func (f *File) SectionByName(name string) (RawSection, bool) {
	for _, s := range f.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return RawSection{}, false
}

// ReadGOT reads the MIPS GOT out of the raw ".got" section bytes, given
// the dynamic symbol table's local/global split (DT_MIPS_LOCAL_GOTNO and
// DT_MIPS_GOTSYM from the .dynamic section, which debug/elf exposes as
// DynValue tags).
func (f *File) ReadGOT(localCount int, dynSyms []RawSymbol, gotSymStart int, endian config.Endian) (*symbols.GlobalOffsetTable, error) {
	got, ok := f.SectionByName(".got")
	if !ok {
		return nil, curated.Errorf("elfreader: no .got section present")
	}
	if localCount < 0 || localCount*4 > len(got.Bytes) {
		return nil, curated.Errorf("elfreader: local GOT count %d exceeds .got section size", localCount)
	}

	word := func(b []byte) uint32 { return isa.Decode(b, endian).Word }

	locals := make([]symbols.GotLocalEntry, localCount)
	for i := 0; i < localCount; i++ {
		locals[i] = symbols.GotLocalEntry{Value: word(got.Bytes[i*4 : i*4+4])}
	}

	globalWords := got.Bytes[localCount*4:]
	globalCount := len(globalWords) / 4
	globals := make([]symbols.GotGlobalEntry, globalCount)
	for i := 0; i < globalCount; i++ {
		initial := word(globalWords[i*4 : i*4+4])
		entry := symbols.GotGlobalEntry{Initial: initial}
		if symIdx := gotSymStart + i; symIdx < len(dynSyms) {
			sym := dynSyms[symIdx]
			entry.SymName = sym.Name
			entry.SymVal = uint32(sym.Vram)
			entry.UndefCommonAbs = sym.Section == "" || sym.Section == "*ABS*"
		}
		globals[i] = entry
	}

	return symbols.NewGlobalOffsetTable(got.Vram, locals, globals), nil
}

func (f *File) String() string {
	return fmt.Sprintf("elf file: %d sections, %d symbols", len(f.Sections), len(f.Symbols))
}
