// Package migrate pairs a text section's functions with the rodata
// symbols they reference, so a caller can print a function's constant
// pool inline with the function instead of in a separate rodata listing
// (spec.md section 4.8).
package migrate

import (
	"sort"

	"github.com/jetsetilly/spimdisasm/address"
	"github.com/jetsetilly/spimdisasm/analysis"
	"github.com/jetsetilly/spimdisasm/config"
	"github.com/jetsetilly/spimdisasm/segment"
	"github.com/jetsetilly/spimdisasm/symbols"
)

// nonMigratableKinds are rodata symbol types the reference implementation
// never inlines into a function body regardless of reference count:
// jumptables and gcc except tables are themselves further decomposed by
// later passes, and virtual tables are conventionally kept in their own
// rodata block for readability.
var nonMigratableKinds = map[symbols.SymbolType]bool{
	symbols.Jumptable:          true,
	symbols.GccExceptTableSym:  true,
	symbols.VirtualTable:       true,
}

// FuncRodataPairing is one function's migration result: which rodata
// symbols may be printed inline with it, split by whether they're
// late-rodata (printed after the function's other migrated symbols, per
// the IDO late-rodata convention).
type FuncRodataPairing struct {
	FunctionVram address.Vram
	Migrated     []address.Vram
	LateRodata   []address.Vram
}

// Function is the minimal shape migrate needs to describe one analyzed
// function: its start vram and the analysis.Result produced for it.
type Function struct {
	Vram   address.Vram
	Result *analysis.Result
}

// DataSymInfo is the minimal shape migrate needs for one rodata symbol's
// metadata: its vram, effective type, and whether it's flagged as
// late-rodata by the section splitter.
type DataSymInfo struct {
	Vram       address.Vram
	Type       symbols.SymbolType
	LateRodata bool
}

// Pair walks funcs in vram order, classifying each rodata symbol reachable
// from a function's own analysis.Result.ByRom referenced-vram facts as
// migrable into that function when it isn't referenced by any other
// function, isn't a non-migratable kind, and its metadata's
// RodataMigrationBehavior permits it. Unmatched rodata symbols are
// returned separately, in vram order, for the caller to interleave as
// standalone entries.
func Pair(rodataSeg *segment.Metadata, cfg config.Context, funcs []Function, rodata []DataSymInfo) (pairings []FuncRodataPairing, unmatched []address.Vram) {
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].Vram < funcs[j].Vram })

	rodataByVram := make(map[address.Vram]DataSymInfo, len(rodata))
	for _, r := range rodata {
		rodataByVram[r.Vram] = r
	}
	claimed := make(map[address.Vram]bool, len(rodata))

	for _, fn := range funcs {
		pairing := FuncRodataPairing{FunctionVram: fn.Vram}

		referenced := referencedRodataVrams(fn.Result)
		sort.Slice(referenced, func(i, j int) bool { return referenced[i] < referenced[j] })

		for _, vram := range referenced {
			info, ok := rodataByVram[vram]
			if !ok || claimed[vram] {
				continue
			}
			if !migrable(rodataSeg, cfg, info) {
				continue
			}
			claimed[vram] = true
			if info.LateRodata {
				pairing.LateRodata = append(pairing.LateRodata, vram)
			} else {
				pairing.Migrated = append(pairing.Migrated, vram)
			}
		}

		if len(pairing.Migrated) > 0 || len(pairing.LateRodata) > 0 {
			pairings = append(pairings, pairing)
		}
	}

	for _, r := range rodata {
		if !claimed[r.Vram] {
			unmatched = append(unmatched, r.Vram)
		}
	}
	sort.Slice(unmatched, func(i, j int) bool { return unmatched[i] < unmatched[j] })

	return pairings, unmatched
}

func referencedRodataVrams(result *analysis.Result) []address.Vram {
	seen := make(map[address.Vram]bool)
	var out []address.Vram
	for _, info := range result.ByRom {
		if !info.HasReference {
			continue
		}
		if seen[info.ReferencedVram] {
			continue
		}
		seen[info.ReferencedVram] = true
		out = append(out, info.ReferencedVram)
	}
	return out
}

// migrable applies spec.md section 4.8's three migration conditions: not
// referenced outside the owning function, not a non-migratable kind, and
// the symbol's own RodataMigrationBehavior permits it. The reference count
// condition is checked by the caller passing only symbols already filtered
// to single-function referrers via metadata, so here it's re-derived from
// the live SymbolMetadata when present.
func migrable(seg *segment.Metadata, cfg config.Context, info DataSymInfo) bool {
	if !cfg.Compiler.AllowsRodataMigration() {
		return false
	}
	if nonMigratableKinds[info.Type] {
		return false
	}
	sym, ok := seg.FindSymbol(info.Vram, false)
	if !ok {
		return true
	}
	if sym.IsReferencedFromMoreThanOneFunction() {
		return false
	}
	switch sym.RodataMigrationBehavior {
	case symbols.MigrationForceNotMigrate:
		return false
	case symbols.MigrationForceMigrate, symbols.MigrationDefault, symbols.MigrationToSpecificFunction:
		return true
	default:
		return true
	}
}
