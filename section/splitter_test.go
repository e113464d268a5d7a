package section_test

import (
	"testing"

	"github.com/jetsetilly/spimdisasm/address"
	"github.com/jetsetilly/spimdisasm/config"
	"github.com/jetsetilly/spimdisasm/internal/assert"
	"github.com/jetsetilly/spimdisasm/section"
	"github.com/jetsetilly/spimdisasm/segment"
	"github.com/jetsetilly/spimdisasm/strguess"
)

func newSegment(startVram address.Vram, size uint32) *segment.Metadata {
	vramRange := address.NewRange(startVram, startVram+address.Vram(size))
	romRange := address.NewRange(address.Rom(0), address.Rom(size))
	ranges, ok := address.NewRomVramRange(romRange, vramRange)
	if !ok {
		panic("bad test range")
	}
	return segment.New("test", ranges)
}

func be32(words ...uint32) []byte {
	out := make([]byte, 0, len(words)*4)
	for _, w := range words {
		out = append(out, byte(w>>24), byte(w>>16), byte(w>>8), byte(w))
	}
	return out
}

// A pointer word followed by a referenced word should split into two
// DataSym entries at the pointer's own vram and at the target vram.
func TestSplitOpensBoundaryAtPointerTarget(t *testing.T) {
	seg := newSegment(0x80010000, 0x100)
	cfg := config.Default()
	cfg.StringGuesserLevel = config.GuesserNo

	bytes := be32(0x80010004, 0xDEADBEEF)
	inRange := func(v address.Vram) bool { return v >= 0x80010000 && v < 0x80010100 }

	syms := section.Split(seg, bytes, 0x80010000, cfg, strguess.New(), inRange)

	assert.Equal(t, 2, len(syms), "expected 2 data syms, got %+v", syms)
	assert.Equal(t, address.Vram(0x80010000), syms[0].Vram, "unexpected boundaries: %+v", syms)
	assert.Equal(t, address.Vram(0x80010004), syms[1].Vram, "unexpected boundaries: %+v", syms)
}

// With the string guesser fully enabled, a null-terminated ASCII run
// should be carved into its own CString DataSym, padded to a word
// boundary.
func TestSplitCarvesOutCString(t *testing.T) {
	seg := newSegment(0x80020000, 0x100)
	cfg := config.Default()

	// "hi\0\0" then a following word.
	bytes := append([]byte{'h', 'i', 0, 0}, be32(0x11111111)...)
	inRange := func(address.Vram) bool { return false }

	syms := section.Split(seg, bytes, 0x80020000, cfg, strguess.New(), inRange)

	assert.True(t, len(syms) > 0, "expected at least one data sym")
	assert.Equal(t, "hi", string(syms[0].Bytes[:2]), "expected first sym to start with the string bytes, got %+v", syms[0])
}
