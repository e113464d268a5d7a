// Package postprocess synthesizes, for every instruction and data word,
// the R_MIPS_* relocation that display formatting needs to print a
// symbol (or %hi/%lo/%got piece of one) instead of a raw immediate
// (spec.md section 4.6).
package postprocess

import (
	"github.com/jetsetilly/spimdisasm/address"
	"github.com/jetsetilly/spimdisasm/analysis"
	"github.com/jetsetilly/spimdisasm/section"
)

// RelocType is the closed set of relocation kinds this layer synthesizes.
// The R_CUSTOM_* entries aren't real ELF relocation types; they mark a
// HI/LO pair that never resolved to a symbol, so display prints a literal
// constant instead of %hi(sym)/%lo(sym).
type RelocType int

const (
	RelNone RelocType = iota
	RelMipsHi16
	RelMipsLo16
	RelMips26
	RelMipsGprel16
	RelMipsGot16
	RelMipsCall16
	RelMipsGotHi16
	RelMipsGotLo16
	RelMipsCallHi16
	RelMipsCallLo16
	RelMips32
	RelMipsGprel32
	RelCustomConstantHi
	RelCustomConstantLo
)

// RelocationInfo is what display needs to format one word's operand: the
// relocation kind and, when it resolved to a symbol, the vram to look
// that symbol's name up under.
type RelocationInfo struct {
	Type         RelocType
	TargetVram   address.Vram
	HasTarget    bool
	UserOverride bool
}

// UserRelocation is a user-supplied override, keyed by the ROM it
// applies to. ValidateUserRelocation rejects one that's structurally
// incompatible with the section it lands in (spec.md's
// InvalidRelocForSection, reconstructed from original_source/'s
// addend-validation table — see DESIGN.md).
type UserRelocation struct {
	Rom    address.Rom
	Type   RelocType
	Target address.Vram
}

// ValidateUserRelocation reports whether reloc's type is structurally
// valid for a word in a data section (isDataSection true) or a text
// section (false), and for the given alignment.
func ValidateUserRelocation(reloc UserRelocation, isDataSection bool, romAlignment uint32) error {
	switch reloc.Type {
	case RelMips32, RelMipsGprel32:
		if !isDataSection {
			return errInvalidRelocForSection(reloc.Type, "text")
		}
		if romAlignment%4 != 0 {
			return errMisaligned(reloc)
		}
	case RelMipsHi16, RelMipsLo16, RelMips26, RelMipsGprel16, RelMipsGot16,
		RelMipsCall16, RelMipsGotHi16, RelMipsGotLo16, RelMipsCallHi16, RelMipsCallLo16:
		if isDataSection {
			return errInvalidRelocForSection(reloc.Type, "data")
		}
	}
	return nil
}

type relocError struct{ msg string }

func (e *relocError) Error() string { return e.msg }

func errInvalidRelocForSection(t RelocType, section string) error {
	return &relocError{msg: "relocation type not valid in a " + section + " section"}
}

func errMisaligned(reloc UserRelocation) error {
	return &relocError{msg: "user relocation is not word-aligned"}
}

// SynthesizeText builds the per-ROM relocation table for one function's
// analysis Result, then applies any user overrides, which always win;
// SynthesizeText does not run ValidateUserRelocation on them.
func SynthesizeText(result *analysis.Result, userRelocs map[address.Rom]UserRelocation) map[address.Rom]RelocationInfo {
	out := make(map[address.Rom]RelocationInfo)

	for rom, info := range result.ByRom {
		switch info.Class {
		case analysis.ClassDirectLink:
			out[rom] = RelocationInfo{Type: RelMips26, TargetVram: info.ReferencedVram, HasTarget: info.HasReference}

		case analysis.ClassGpRel:
			if info.HasReference {
				out[rom] = RelocationInfo{Type: RelMipsGprel16, TargetVram: info.ReferencedVram, HasTarget: true}
			}

		case analysis.ClassGpGotLocal, analysis.ClassGpGotGlobal:
			out[rom] = RelocationInfo{Type: RelMipsGot16, TargetVram: info.ReferencedVram, HasTarget: info.HasReference}

		case analysis.ClassGpGotLazyResolver:
			out[rom] = RelocationInfo{Type: RelMipsCall16, TargetVram: info.ReferencedVram, HasTarget: info.HasReference}

		case analysis.ClassPairedGotLo:
			out[rom] = RelocationInfo{Type: RelMipsGotLo16, TargetVram: info.ReferencedVram, HasTarget: info.HasReference}

		case analysis.ClassPairedGpGotLo:
			out[rom] = RelocationInfo{Type: RelMipsGotHi16, TargetVram: info.ReferencedVram, HasTarget: info.HasReference}
		}

		if info.HasLo && info.Class == analysis.ClassPairedAddress {
			loType, hiType := RelMipsLo16, RelMipsHi16
			if !info.HasReference {
				loType, hiType = RelCustomConstantLo, RelCustomConstantHi
			}
			out[rom] = RelocationInfo{Type: loType, TargetVram: info.ReferencedVram, HasTarget: info.HasReference}
			if info.HasHi {
				if hi, ok := out[info.HiRom]; !ok || hi.Type == RelNone {
					out[info.HiRom] = RelocationInfo{Type: hiType, TargetVram: info.ReferencedVram, HasTarget: info.HasReference}
				}
			}
		}
	}

	for rom, reloc := range userRelocs {
		out[rom] = RelocationInfo{Type: reloc.Type, TargetVram: reloc.Target, HasTarget: true, UserOverride: true}
	}

	return out
}

// SynthesizeData builds the per-word relocation table for one data
// section's DataSyms: each word identified as a pointer reference gets
// R_MIPS_32 (or R_MIPS_GPREL32 if gpRelative reports the section is
// $gp-pointed).
func SynthesizeData(syms []section.DataSym, wordTargets map[address.Vram]address.Vram, gpRelative bool) map[address.Vram]RelocationInfo {
	out := make(map[address.Vram]RelocationInfo)
	relType := RelMips32
	if gpRelative {
		relType = RelMipsGprel32
	}
	for _, sym := range syms {
		for off := 0; off+4 <= len(sym.Bytes); off += 4 {
			wordVram := sym.Vram + address.Vram(off)
			if target, ok := wordTargets[wordVram]; ok {
				out[wordVram] = RelocationInfo{Type: relType, TargetVram: target, HasTarget: true}
			}
		}
	}
	return out
}
