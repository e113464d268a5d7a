package context_test

import (
	"testing"

	"github.com/jetsetilly/spimdisasm/address"
	"github.com/jetsetilly/spimdisasm/context"
	"github.com/jetsetilly/spimdisasm/internal/assert"
	"github.com/jetsetilly/spimdisasm/segment"
)

func ranges(romStart, romEnd uint32, vramStart, vramEnd uint32) address.RomVramRange {
	r, ok := address.NewRomVramRange(
		address.NewRange(address.Rom(romStart), address.Rom(romEnd)),
		address.NewRange(address.Vram(vramStart), address.Vram(vramEnd)),
	)
	if !ok {
		panic("bad test range")
	}
	return r
}

func TestOverlappingOverlayRomIsRejected(t *testing.T) {
	global := segment.New("global", ranges(0, 0x1000, 0x80000000, 0x80001000))
	b := context.NewBuilder(global)

	a := segment.New("overlay_a", ranges(0x1000, 0x2000, 0x80100000, 0x80101000))
	c := segment.New("overlay_b", ranges(0x1800, 0x2800, 0x80200000, 0x80201000))

	if err := b.AddOverlay("cat", a); err != nil {
		t.Fatalf("unexpected error adding overlay_a: %v", err)
	}
	if err := b.AddOverlay("cat", c); err != nil {
		t.Fatalf("unexpected error adding overlay_b: %v", err)
	}

	_, err := b.Build()
	if err == nil {
		t.Fatalf("expected OverlappingRom error, got none")
	}
	buildErr, ok := err.(*context.BuildError)
	if !ok || buildErr.Kind != "OverlappingRom" {
		t.Fatalf("expected OverlappingRom, got %v", err)
	}
}

func TestOverlappingVramAcrossCategoriesIsRejected(t *testing.T) {
	global := segment.New("global", ranges(0, 0x1000, 0x80000000, 0x80001000))
	b := context.NewBuilder(global)

	a := segment.New("overlay_a", ranges(0x1000, 0x2000, 0x80100000, 0x80101000))
	c := segment.New("overlay_b", ranges(0x2000, 0x3000, 0x80100000, 0x80101000))

	if err := b.AddOverlay("cat_a", a); err != nil {
		t.Fatalf("unexpected error adding overlay_a: %v", err)
	}
	if err := b.AddOverlay("cat_b", c); err != nil {
		t.Fatalf("unexpected error adding overlay_b: %v", err)
	}

	_, err := b.Build()
	if err == nil {
		t.Fatalf("expected OverlappingVram error, got none")
	}
	buildErr, ok := err.(*context.BuildError)
	if !ok || buildErr.Kind != "OverlappingVram" {
		t.Fatalf("expected OverlappingVram, got %v", err)
	}
}

func TestOverlappingVramWithGlobalIsRejected(t *testing.T) {
	global := segment.New("global", ranges(0, 0x1000, 0x80000000, 0x80001000))
	b := context.NewBuilder(global)

	a := segment.New("overlay_a", ranges(0x1000, 0x2000, 0x80000800, 0x80001800))
	if err := b.AddOverlay("cat", a); err != nil {
		t.Fatalf("unexpected error adding overlay_a: %v", err)
	}

	_, err := b.Build()
	if err == nil {
		t.Fatalf("expected OverlappingVram error, got none")
	}
	buildErr, ok := err.(*context.BuildError)
	if !ok || buildErr.Kind != "OverlappingVram" {
		t.Fatalf("expected OverlappingVram, got %v", err)
	}
}

func TestSameCategoryOverlaysMaySharedVram(t *testing.T) {
	global := segment.New("global", ranges(0, 0x1000, 0x80000000, 0x80001000))
	b := context.NewBuilder(global)

	a := segment.New("overlay_a", ranges(0x1000, 0x2000, 0x80100000, 0x80101000))
	c := segment.New("overlay_b", ranges(0x2000, 0x3000, 0x80100000, 0x80101000))
	if err := b.AddOverlay("cat", a); err != nil {
		t.Fatalf("unexpected error adding overlay_a: %v", err)
	}
	if err := b.AddOverlay("cat", c); err != nil {
		t.Fatalf("unexpected error adding overlay_b: %v", err)
	}

	_, err := b.Build()
	assert.NoError(t, err, "expected overlays sharing a category's vram window to be accepted")
}

func TestPrioritisedOverlayNotFoundIsRejected(t *testing.T) {
	global := segment.New("global", ranges(0, 0x1000, 0x80000000, 0x80001000))
	global.AddPrioritisedOverlay("does_not_exist")
	b := context.NewBuilder(global)

	_, err := b.Build()
	if err == nil {
		t.Fatalf("expected PrioritisedOverlayNotFound error, got none")
	}
	buildErr, ok := err.(*context.BuildError)
	if !ok || buildErr.Kind != "PrioritisedOverlayNotFound" {
		t.Fatalf("expected PrioritisedOverlayNotFound, got %v", err)
	}
}

func TestFindSymbolWalksOwnerThenOverlaysThenPlatform(t *testing.T) {
	global := segment.New("global", ranges(0, 0x1000, 0x80000000, 0x80001000))
	overlay := segment.New("overlay_a", ranges(0x1000, 0x2000, 0x80100000, 0x80101000))
	global.AddPrioritisedOverlay("overlay_a")

	b := context.NewBuilder(global)
	if err := b.AddOverlay("cat", overlay); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, err := b.Build()
	assert.NoError(t, err, "unexpected build error")

	overlay.AddUserSymbol(0x80100010, "overlay_func")
	ctx.Platform.AddUserSymbol(0x80100010, "platform_func")

	sym, ok := ctx.FindSymbol(global, 0x80100010, false)
	assert.True(t, ok, "expected to find symbol via overlay fallback")
	assert.Equal(t, "overlay_func", sym.UserDeclaredName, "expected overlay's symbol to win over platform's")

	platformOnly, ok := ctx.FindSymbol(global, 0x80200010, false)
	_ = platformOnly
	if ok {
		t.Fatalf("expected no symbol at an address nothing declares")
	}
}
