package postprocess_test

import (
	"testing"

	"github.com/jetsetilly/spimdisasm/address"
	"github.com/jetsetilly/spimdisasm/analysis"
	"github.com/jetsetilly/spimdisasm/postprocess"
)

func TestSynthesizeTextEmitsHi16AndLo16ForPairedAddress(t *testing.T) {
	result := analysis.NewResult(0, 0x80000000)

	hiRom := address.Rom(0)
	loRom := address.Rom(4)

	result.ByRom[hiRom] = &analysis.InstrInfo{Class: analysis.ClassHi, HiRom: hiRom, HasHi: true}
	result.ByRom[loRom] = &analysis.InstrInfo{
		Class:           analysis.ClassPairedAddress,
		HiRom:           hiRom,
		HasHi:           true,
		LoRom:           loRom,
		HasLo:           true,
		ReferencedVram:  0x80001000,
		HasReference:    true,
	}

	relocs := postprocess.SynthesizeText(result, nil)

	hi, ok := relocs[hiRom]
	if !ok || hi.Type != postprocess.RelMipsHi16 || hi.TargetVram != 0x80001000 {
		t.Fatalf("expected HI16 reloc at hi rom, got %+v (ok=%v)", hi, ok)
	}
	lo, ok := relocs[loRom]
	if !ok || lo.Type != postprocess.RelMipsLo16 || lo.TargetVram != 0x80001000 {
		t.Fatalf("expected LO16 reloc at lo rom, got %+v (ok=%v)", lo, ok)
	}
}

func TestUserRelocationOverridesSynthesized(t *testing.T) {
	result := analysis.NewResult(0, 0x80000000)
	loRom := address.Rom(4)
	result.ByRom[loRom] = &analysis.InstrInfo{
		Class: analysis.ClassPairedAddress, HasLo: true, LoRom: loRom,
		ReferencedVram: 0x80001000, HasReference: true,
	}

	userRelocs := map[address.Rom]postprocess.UserRelocation{
		loRom: {Rom: loRom, Type: postprocess.RelMipsGprel16, Target: 0x80002000},
	}

	relocs := postprocess.SynthesizeText(result, userRelocs)

	got := relocs[loRom]
	if got.Type != postprocess.RelMipsGprel16 || got.TargetVram != 0x80002000 || !got.UserOverride {
		t.Fatalf("expected user override to win, got %+v", got)
	}
}

func TestValidateUserRelocationRejectsDataRelocInText(t *testing.T) {
	err := postprocess.ValidateUserRelocation(postprocess.UserRelocation{Type: postprocess.RelMips32}, false, 0)
	if err == nil {
		t.Fatalf("expected an error for R_MIPS_32 in a text section")
	}
}
