package register_test

import (
	"testing"

	"github.com/jetsetilly/spimdisasm/config"
	"github.com/jetsetilly/spimdisasm/isa"
	"github.com/jetsetilly/spimdisasm/register"
)

func word(w uint32) isa.Instruction {
	b := []byte{byte(w >> 24), byte(w >> 16), byte(w >> 8), byte(w)}
	return isa.Decode(b, config.BigEndian)
}

func TestClearLeavesNoValue(t *testing.T) {
	tr := register.New()
	lui := word(0x3C028000) // lui $v0, 0x8000
	tr.ProcessHi(lui, 0x100, false)

	if !tr.Reg(isa.RegV0).HasAnyValue() {
		t.Fatalf("expected v0 to carry HI state")
	}

	tr.Clear()
	for r := isa.Register(0); r < register.NumGPR; r++ {
		if tr.Reg(r).HasAnyValue() {
			t.Fatalf("register %d retained value after Clear", r)
		}
	}
}

func TestHiLoPairing(t *testing.T) {
	tr := register.New()
	lui := word(0x3C028000)  // lui $v0, 0x8000
	addiu := word(0x24420010) // addiu $v0, $v0, 0x10

	tr.ProcessHi(lui, 0x000, false)
	info, ok := tr.PreprocessLoAndGetInfo(addiu)
	if !ok {
		t.Fatalf("expected pairing info for addiu following lui")
	}
	if info.HiRom != 0x000 {
		t.Fatalf("expected HI rom 0, got %v", info.HiRom)
	}

	addr := (info.HiValue) + uint32(int32(addiu.ImmS16()))
	if addr != 0x80000010 {
		t.Fatalf("expected computed address 0x80000010, got %#x", addr)
	}

	tr.ProcessLo(addiu, addr, 0x004)
	loRom, ok := tr.Reg(isa.RegV0).LoRom()
	if !ok || loRom != 0x004 {
		t.Fatalf("expected lo rom 4, got %v ok=%v", loRom, ok)
	}
}

func TestHiSuspectAfterUnconditionalBranch(t *testing.T) {
	tr := register.New()
	lui := word(0x3C028000)
	tr.ProcessHi(lui, 0, true) // previous instruction was an unconditional branch

	_, ok := tr.PreprocessLoAndGetInfo(word(0x24420010))
	if ok {
		t.Fatalf("a HI flagged set_on_branch_likely should not be offered for pairing")
	}
}

func TestUnsetRegistersAfterFuncCall(t *testing.T) {
	tr := register.New()
	tr.ProcessHi(word(0x3C028000), 0, false) // v0 <- HI
	tr.UnsetRegistersAfterFuncCall()

	if tr.Reg(isa.RegV0).HasAnyValue() {
		t.Fatalf("v0 is caller-saved, should be cleared after a call")
	}
}

func TestJrRegDataRequiresDereference(t *testing.T) {
	tr := register.New()
	addiu := word(0x24420010)
	tr.ProcessLo(addiu, 0x80000010, 0x10)

	if _, ok := tr.GetJrRegData(word(0x00400008)); ok { // jr $v0
		t.Fatalf("expected no jr data before the register has been dereferenced")
	}

	tr.MarkDereferenced(isa.RegV0, 0x14)
	data, ok := tr.GetJrRegData(word(0x00400008))
	if !ok || data.Address != 0x80000010 {
		t.Fatalf("expected jr data once dereferenced, got %+v ok=%v", data, ok)
	}
}
