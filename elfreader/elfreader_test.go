package elfreader_test

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"

	"github.com/jetsetilly/spimdisasm/config"
	"github.com/jetsetilly/spimdisasm/elfreader"
)

// buildMinimalElf assembles a tiny big-endian MIPS32 ELF with a .text
// section and one STT_FUNC symbol, entirely by hand (no archive/compiler
// involved) so the test has no external fixture dependency.
func buildMinimalElf(t *testing.T) []byte {
	t.Helper()

	const (
		ehsize    = 52
		shentsize = 40
		symsize   = 16
	)

	text := []byte{0, 0, 0, 0, 0, 0, 0, 0} // two nop words

	strtab := []byte{0}
	strtab = append(strtab, "start\x00"...)
	nameOff := uint32(1)

	shstrtab := []byte{0}
	textNameOff := uint32(len(shstrtab))
	shstrtab = append(shstrtab, ".text\x00"...)
	symtabNameOff := uint32(len(shstrtab))
	shstrtab = append(shstrtab, ".symtab\x00"...)
	strtabNameOff := uint32(len(shstrtab))
	shstrtab = append(shstrtab, ".strtab\x00"...)
	shstrtabNameOff := uint32(len(shstrtab))
	shstrtab = append(shstrtab, ".shstrtab\x00"...)

	textOff := uint32(ehsize)
	symtabOff := alignUp(textOff+uint32(len(text)), 4)

	sym := make([]byte, symsize)
	binary.BigEndian.PutUint32(sym[0:4], nameOff)
	binary.BigEndian.PutUint32(sym[4:8], textOff) // st_value, reused as vram for this fixture
	binary.BigEndian.PutUint32(sym[8:12], uint32(len(text)))
	sym[12] = byte(elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC))
	sym[13] = 0
	binary.BigEndian.PutUint16(sym[14:16], 1) // st_shndx = 1 (.text)

	symtab := make([]byte, symsize) // null symbol
	symtab = append(symtab, sym...)

	strtabOff := symtabOff + uint32(len(symtab))
	shstrtabOff := strtabOff + uint32(len(strtab))
	shoff := alignUp(shstrtabOff+uint32(len(shstrtab)), 4)

	var buf bytes.Buffer
	hdr := make([]byte, ehsize)
	copy(hdr[0:4], []byte{0x7f, 'E', 'L', 'F'})
	hdr[4] = 1 // ELFCLASS32
	hdr[5] = 2 // ELFDATA2MSB
	hdr[6] = 1 // EV_CURRENT
	binary.BigEndian.PutUint16(hdr[16:18], uint16(elf.ET_EXEC))
	binary.BigEndian.PutUint16(hdr[18:20], uint16(elf.EM_MIPS))
	binary.BigEndian.PutUint32(hdr[20:24], 1)
	binary.BigEndian.PutUint32(hdr[28:32], 0) // e_phoff
	binary.BigEndian.PutUint32(hdr[32:36], shoff)
	binary.BigEndian.PutUint16(hdr[40:42], ehsize)
	binary.BigEndian.PutUint16(hdr[42:44], 0)
	binary.BigEndian.PutUint16(hdr[44:46], 0)
	binary.BigEndian.PutUint16(hdr[46:48], shentsize)
	binary.BigEndian.PutUint16(hdr[48:50], 5) // null, text, symtab, strtab, shstrtab
	binary.BigEndian.PutUint16(hdr[50:52], 4) // e_shstrndx: shstrtab is section index 4

	buf.Write(hdr)

	pad := func(target uint32) {
		for uint32(buf.Len()) < target {
			buf.WriteByte(0)
		}
	}

	pad(textOff)
	buf.Write(text)
	pad(symtabOff)
	buf.Write(symtab)
	pad(strtabOff)
	buf.Write(strtab)
	pad(shstrtabOff)
	buf.Write(shstrtab)
	pad(shoff)

	section := func(nameOff uint32, typ elf.SectionType, flags elf.SectionFlag, addr, off, size, link, info, align, entsize uint32) {
		s := make([]byte, shentsize)
		binary.BigEndian.PutUint32(s[0:4], nameOff)
		binary.BigEndian.PutUint32(s[4:8], uint32(typ))
		binary.BigEndian.PutUint32(s[8:12], uint32(flags))
		binary.BigEndian.PutUint32(s[12:16], addr)
		binary.BigEndian.PutUint32(s[16:20], off)
		binary.BigEndian.PutUint32(s[20:24], size)
		binary.BigEndian.PutUint32(s[24:28], link)
		binary.BigEndian.PutUint32(s[28:32], info)
		binary.BigEndian.PutUint32(s[32:36], align)
		binary.BigEndian.PutUint32(s[36:40], entsize)
		buf.Write(s)
	}

	section(0, elf.SHT_NULL, 0, 0, 0, 0, 0, 0, 0, 0)
	section(textNameOff, elf.SHT_PROGBITS, elf.SHF_ALLOC|elf.SHF_EXECINSTR, textOff, textOff, uint32(len(text)), 0, 0, 4, 0)
	section(symtabNameOff, elf.SHT_SYMTAB, 0, 0, symtabOff, uint32(len(symtab)), 3, 1, 4, symsize)
	section(strtabNameOff, elf.SHT_STRTAB, 0, 0, strtabOff, uint32(len(strtab)), 0, 0, 1, 0)
	section(shstrtabNameOff, elf.SHT_STRTAB, 0, 0, shstrtabOff, uint32(len(shstrtab)), 0, 0, 1, 0)

	return buf.Bytes()
}

func alignUp(v, a uint32) uint32 {
	return (v + a - 1) / a * a
}

func TestOpenReadsSectionsAndSymbols(t *testing.T) {
	raw := buildMinimalElf(t)

	f, err := elfreader.Open(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error opening fixture: %v", err)
	}

	textSec, ok := f.SectionByName(".text")
	if !ok {
		t.Fatalf("expected a .text section")
	}
	if len(textSec.Bytes) != 8 {
		t.Fatalf("expected 8 bytes of .text, got %d", len(textSec.Bytes))
	}

	var found bool
	for _, s := range f.Symbols {
		if s.Name == "start" {
			found = true
			if !s.IsFunc {
				t.Fatalf("expected start to be classified as a function symbol")
			}
			if s.Size != 8 {
				t.Fatalf("expected symbol size 8, got %d", s.Size)
			}
		}
	}
	if !found {
		t.Fatalf("expected to find symbol %q", "start")
	}
}

func TestReadGOTReportsMissingSection(t *testing.T) {
	raw := buildMinimalElf(t)
	f, err := elfreader.Open(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.ReadGOT(1, nil, 0, config.BigEndian)
	if err == nil {
		t.Fatalf("expected an error since the fixture has no .got section")
	}
}
