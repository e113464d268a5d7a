package migrate_test

import (
	"testing"

	"github.com/jetsetilly/spimdisasm/address"
	"github.com/jetsetilly/spimdisasm/analysis"
	"github.com/jetsetilly/spimdisasm/config"
	"github.com/jetsetilly/spimdisasm/migrate"
	"github.com/jetsetilly/spimdisasm/segment"
	"github.com/jetsetilly/spimdisasm/symbols"
)

func newSeg() *segment.Metadata {
	r, ok := address.NewRomVramRange(
		address.NewRange(address.Rom(0), address.Rom(0x1000)),
		address.NewRange(address.Vram(0x80000000), address.Vram(0x80001000)),
	)
	if !ok {
		panic("bad range")
	}
	return segment.New("rodata", r)
}

func TestPairMigratesSingleReferenceRodata(t *testing.T) {
	seg := newSeg()
	seg.AddUserSymbol(0x80000100, "D_80000100")
	sym, _ := seg.FindSymbol(0x80000100, false)
	sym.Type.SetAutodetected(symbols.Word)
	sym.AddReferenceFunction(symbols.ReferenceKey{ReferrerVram: 0x80010000, Segment: "rodata"}, 4)

	result := analysis.NewResult(0, 0x80010000)
	result.ByRom[4] = &analysis.InstrInfo{Class: analysis.ClassGpRel, ReferencedVram: 0x80000100, HasReference: true}

	funcs := []migrate.Function{{Vram: 0x80010000, Result: result}}
	rodata := []migrate.DataSymInfo{{Vram: 0x80000100, Type: symbols.Word}}

	pairings, unmatched := migrate.Pair(seg, config.Default(), funcs, rodata)

	if len(unmatched) != 0 {
		t.Fatalf("expected no unmatched rodata, got %v", unmatched)
	}
	if len(pairings) != 1 || len(pairings[0].Migrated) != 1 || pairings[0].Migrated[0] != 0x80000100 {
		t.Fatalf("expected one migrated symbol, got %+v", pairings)
	}
}

func TestPairLeavesMultiplyReferencedRodataUnmatched(t *testing.T) {
	seg := newSeg()
	seg.AddUserSymbol(0x80000200, "D_80000200")
	sym, _ := seg.FindSymbol(0x80000200, false)
	sym.Type.SetAutodetected(symbols.Word)
	sym.AddReferenceFunction(symbols.ReferenceKey{ReferrerVram: 0x80010000, Segment: "rodata"}, 4)
	sym.AddReferenceFunction(symbols.ReferenceKey{ReferrerVram: 0x80020000, Segment: "rodata"}, 4)

	result := analysis.NewResult(0, 0x80010000)
	result.ByRom[4] = &analysis.InstrInfo{Class: analysis.ClassGpRel, ReferencedVram: 0x80000200, HasReference: true}

	funcs := []migrate.Function{{Vram: 0x80010000, Result: result}}
	rodata := []migrate.DataSymInfo{{Vram: 0x80000200, Type: symbols.Word}}

	pairings, unmatched := migrate.Pair(seg, config.Default(), funcs, rodata)

	if len(pairings) != 0 {
		t.Fatalf("expected no pairings for a multiply-referenced symbol, got %+v", pairings)
	}
	if len(unmatched) != 1 || unmatched[0] != 0x80000200 {
		t.Fatalf("expected the symbol to be reported unmatched, got %v", unmatched)
	}
}

func TestPairNeverMigratesJumptables(t *testing.T) {
	seg := newSeg()
	seg.AddUserSymbol(0x80000300, "jtbl_80000300")

	result := analysis.NewResult(0, 0x80010000)
	result.ByRom[4] = &analysis.InstrInfo{Class: analysis.ClassJumptableJump, ReferencedVram: 0x80000300, HasReference: true}

	funcs := []migrate.Function{{Vram: 0x80010000, Result: result}}
	rodata := []migrate.DataSymInfo{{Vram: 0x80000300, Type: symbols.Jumptable}}

	pairings, unmatched := migrate.Pair(seg, config.Default(), funcs, rodata)

	if len(pairings) != 0 {
		t.Fatalf("expected jumptable to never migrate, got %+v", pairings)
	}
	if len(unmatched) != 1 {
		t.Fatalf("expected jumptable reported unmatched, got %v", unmatched)
	}
}
