package preheat_test

import (
	"testing"

	"github.com/jetsetilly/spimdisasm/address"
	"github.com/jetsetilly/spimdisasm/config"
	"github.com/jetsetilly/spimdisasm/internal/assert"
	"github.com/jetsetilly/spimdisasm/preheat"
	"github.com/jetsetilly/spimdisasm/segment"
	"github.com/jetsetilly/spimdisasm/strguess"
	"github.com/jetsetilly/spimdisasm/symbols"
)

func rangeFor(start, end uint32) address.RomVramRange {
	r, ok := address.NewRomVramRange(
		address.NewRange(address.Rom(start), address.Rom(end)),
		address.NewRange(address.Vram(start), address.Vram(end)),
	)
	if !ok {
		panic("invalid rom/vram range in test")
	}
	return r
}

func TestPreheatTextDirectLinkSeedsFunction(t *testing.T) {
	seg := segment.New("test", rangeFor(0x80000000, 0x80001000))
	cfg := config.Default()

	// jal 0x80000100
	bytes := []byte{0x0C, 0x00, 0x00, 0x40}
	preheat.PreheatText(seg, bytes, address.Vram(0x80000000), cfg)

	ref, ok := seg.FindReferencedAddress(address.Vram(0x80000100))
	assert.True(t, ok, "expected a referenced address seeded at the jal target")
	at, ok := ref.AutodetectedType()
	assert.True(t, ok, "expected an autodetected type to be set")
	assert.Equal(t, symbols.Function, at, "expected autodetected Function type")
}

func TestPreheatTextHiLoPairSeedsWordReference(t *testing.T) {
	seg := segment.New("test", rangeFor(0x80000000, 0x80010000))
	cfg := config.Default()

	// lui $v0, 0x8000 ; addiu $v0, $v0, 0x0010 ; lw $a0, 0($v0)
	bytes := []byte{
		0x3C, 0x02, 0x80, 0x00,
		0x24, 0x42, 0x00, 0x10,
		0x8C, 0x44, 0x00, 0x00,
	}
	preheat.PreheatText(seg, bytes, address.Vram(0x80000000), cfg)

	ref, ok := seg.FindReferencedAddress(address.Vram(0x80000010))
	if !ok {
		t.Fatalf("expected a referenced address seeded at the paired HI/LO address")
	}
	if len(ref.Referrers) == 0 {
		t.Fatalf("expected at least one referrer recorded")
	}
}

func TestPreheatTextBranchSeedsLabel(t *testing.T) {
	seg := segment.New("test", rangeFor(0x80000000, 0x80001000))
	cfg := config.Default()

	// beq $zero, $zero, 1  (branch to pc+4+4)
	bytes := []byte{0x10, 0x00, 0x00, 0x01}
	preheat.PreheatText(seg, bytes, address.Vram(0x80000000), cfg)

	ref, ok := seg.FindReferencedAddress(address.Vram(0x80000008))
	if !ok {
		t.Fatalf("expected a referenced address seeded at the branch target")
	}
	at, ok := ref.AutodetectedType()
	if !ok || at != symbols.BranchLabel {
		t.Fatalf("expected autodetected BranchLabel type, got %v ok=%v", at, ok)
	}
}

func TestPreheatDataSeedsPointerReference(t *testing.T) {
	seg := segment.New("test", rangeFor(0x80000000, 0x80010000))
	cfg := config.Default()
	cfg.StringGuesserLevel = config.GuesserNo
	guesser := strguess.New()

	// a single word pointing back into this segment's range.
	bytes := []byte{0x80, 0x00, 0x40, 0x00}
	inRange := func(v address.Vram) bool {
		return v >= 0x80000000 && v < 0x80010000
	}
	preheat.PreheatData(seg, bytes, address.Vram(0x80004000), cfg, guesser, inRange)

	ref, ok := seg.FindReferencedAddress(address.Vram(0x80004000))
	if !ok {
		t.Fatalf("expected a referenced address seeded at the pointer target")
	}
	at, ok := ref.AutodetectedType()
	if !ok || at != symbols.Word {
		t.Fatalf("expected autodetected Word type, got %v ok=%v", at, ok)
	}
}

func TestPreheatDataSkipsOutOfRangePointers(t *testing.T) {
	seg := segment.New("test", rangeFor(0x80000000, 0x80010000))
	cfg := config.Default()
	cfg.StringGuesserLevel = config.GuesserNo
	guesser := strguess.New()

	// a word that does not decode into this segment's range.
	bytes := []byte{0x00, 0x00, 0x00, 0x05}
	inRange := func(v address.Vram) bool {
		return v >= 0x80000000 && v < 0x80010000
	}
	preheat.PreheatData(seg, bytes, address.Vram(0x80004000), cfg, guesser, inRange)

	if _, ok := seg.FindReferencedAddress(address.Vram(0x00000005)); ok {
		t.Fatalf("did not expect a referenced address for an out-of-range pointer")
	}
}

func TestPreheatGccExceptTableSeedsEveryWord(t *testing.T) {
	seg := segment.New("test", rangeFor(0x80000000, 0x80010000))
	cfg := config.Default()

	bytes := []byte{0x80, 0x00, 0x40, 0x00, 0x80, 0x00, 0x40, 0x04}
	inRange := func(v address.Vram) bool {
		return v >= 0x80000000 && v < 0x80010000
	}
	preheat.PreheatGccExceptTable(seg, bytes, address.Vram(0x80004000), cfg, inRange)

	for _, target := range []uint32{0x80004000, 0x80004004} {
		ref, ok := seg.FindReferencedAddress(address.Vram(target))
		if !ok {
			t.Fatalf("expected a referenced address seeded at 0x%x", target)
		}
		at, ok := ref.AutodetectedType()
		if !ok || at != symbols.GccExceptTableLabel {
			t.Fatalf("expected autodetected GccExceptTableLabel type, got %v ok=%v", at, ok)
		}
	}
}
