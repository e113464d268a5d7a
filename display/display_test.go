package display_test

import (
	"strings"
	"testing"

	"github.com/jetsetilly/spimdisasm/address"
	"github.com/jetsetilly/spimdisasm/config"
	"github.com/jetsetilly/spimdisasm/context"
	"github.com/jetsetilly/spimdisasm/display"
	"github.com/jetsetilly/spimdisasm/postprocess"
	"github.com/jetsetilly/spimdisasm/section"
	"github.com/jetsetilly/spimdisasm/segment"
	"github.com/jetsetilly/spimdisasm/symbols"
)

func mustRange(romStart, romEnd, vramStart, vramEnd uint32) address.RomVramRange {
	r, ok := address.NewRomVramRange(
		address.NewRange(address.Rom(romStart), address.Rom(romEnd)),
		address.NewRange(address.Vram(vramStart), address.Vram(vramEnd)),
	)
	if !ok {
		panic("bad test range")
	}
	return r
}

func buildCtx(t *testing.T, seg *segment.Metadata) *context.Context {
	t.Helper()
	ctx, err := context.NewBuilder(seg).Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	return ctx
}

func TestFunctionEmitsGloblLabelAndSize(t *testing.T) {
	seg := segment.New("global", mustRange(0, 0x100, 0x80000000, 0x80000100))
	seg.AddUserSymbol(0x80000000, "my_func")
	ctx := buildCtx(t, seg)

	// addiu $v0, $v0, 1 ; jr $ra ; nop (delay slot)
	instrBytes := []byte{
		0x24, 0x42, 0x00, 0x01,
		0x03, 0xE0, 0x00, 0x08,
		0x00, 0x00, 0x00, 0x00,
	}

	out, err := display.Function(ctx, seg, config.Default(), 0, 0x80000000, instrBytes, nil, display.RawWordFormatter{}, display.DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out, ".globl my_func\n") {
		t.Fatalf("expected .globl directive, got:\n%s", out)
	}
	if !strings.Contains(out, "my_func:\n") {
		t.Fatalf("expected label, got:\n%s", out)
	}
	if !strings.Contains(out, ".size my_func, . - my_func\n") {
		t.Fatalf("expected closing .size, got:\n%s", out)
	}
}

func TestFunctionMissingSelfSymbolErrors(t *testing.T) {
	seg := segment.New("global", mustRange(0, 0x100, 0x80000000, 0x80000100))
	ctx := buildCtx(t, seg)

	_, err := display.Function(ctx, seg, config.Default(), 0, 0x80000000, []byte{0, 0, 0, 0}, nil, display.RawWordFormatter{}, display.DefaultSettings())
	if err == nil {
		t.Fatalf("expected SelfSymNotFoundError")
	}
	if _, ok := err.(*display.SelfSymNotFoundError); !ok {
		t.Fatalf("expected *SelfSymNotFoundError, got %T: %v", err, err)
	}
}

func TestFunctionSubstitutesRelocatedImmediate(t *testing.T) {
	seg := segment.New("global", mustRange(0, 0x100, 0x80000000, 0x80000100))
	seg.AddUserSymbol(0x80000000, "my_func")
	seg.AddUserSymbol(0x80000010, "some_target")
	ctx := buildCtx(t, seg)

	instrBytes := []byte{0x0C, 0x00, 0x00, 0x04} // jal 0x80000010

	relocs := map[address.Rom]postprocess.RelocationInfo{
		0: {Type: postprocess.RelMips26, TargetVram: 0x80000010, HasTarget: true},
	}

	out, err := display.Function(ctx, seg, config.Default(), 0, 0x80000000, instrBytes, relocs, display.RawWordFormatter{}, display.DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "some_target") {
		t.Fatalf("expected relocation to resolve to symbol name, got:\n%s", out)
	}
}

func TestDataEmitsWordsWithRelocatedPointer(t *testing.T) {
	seg := segment.New("global", mustRange(0, 0x100, 0x80000000, 0x80000100))
	seg.AddUserSymbol(0x80000000, "my_data")
	seg.AddUserSymbol(0x80000020, "pointee")
	ctx := buildCtx(t, seg)

	sym := section.DataSym{
		Vram:  0x80000000,
		Bytes: []byte{0, 0, 0, 0x20, 0x11, 0x11, 0x11, 0x11},
		Type:  symbols.Word,
	}
	relocs := map[address.Vram]postprocess.RelocationInfo{
		0x80000000: {Type: postprocess.RelMips32, TargetVram: 0x80000020, HasTarget: true},
	}

	out, err := display.Data(ctx, seg, sym, relocs, display.DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "pointee") {
		t.Fatalf("expected pointer word to render as a symbol name, got:\n%s", out)
	}
	if !strings.Contains(out, "0x11111111") {
		t.Fatalf("expected raw second word, got:\n%s", out)
	}
}

func TestDataCStringEscapesNonPrintable(t *testing.T) {
	seg := segment.New("global", mustRange(0, 0x100, 0x80000000, 0x80000100))
	seg.AddUserSymbol(0x80000000, "my_str")
	ctx := buildCtx(t, seg)

	sym := section.DataSym{
		Vram:  0x80000000,
		Bytes: append([]byte("hi\x01"), 0),
		Type:  symbols.CString,
	}

	out, err := display.Data(ctx, seg, sym, nil, display.DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `.asciz "hi\x01"`) {
		t.Fatalf("expected escaped control byte, got:\n%s", out)
	}
}
