// Package context is the top-level registry tying together the global
// segment, every overlay category, and the platform/user segment. Address
// resolution walks: the requesting segment's own map, then its
// prioritised overlay list, then the platform segment.
package context

import (
	"fmt"

	"github.com/jetsetilly/spimdisasm/address"
	"github.com/jetsetilly/spimdisasm/internal/logger"
	"github.com/jetsetilly/spimdisasm/segment"
	"github.com/jetsetilly/spimdisasm/symbols"
)

// OverlayCategory groups overlay segments that all occupy the same vram
// window at different times (and therefore different rom offsets), keyed
// by their rom start so overlapping-rom detection during Build is cheap.
type OverlayCategory struct {
	Name     string
	segments map[address.Rom]*segment.Metadata
}

func newOverlayCategory(name string) *OverlayCategory {
	return &OverlayCategory{Name: name, segments: make(map[address.Rom]*segment.Metadata)}
}

// Segments returns every segment in this overlay category.
func (c *OverlayCategory) Segments() []*segment.Metadata {
	out := make([]*segment.Metadata, 0, len(c.segments))
	for _, s := range c.segments {
		out = append(out, s)
	}
	return out
}

// ByName finds a specific overlay in the category.
func (c *OverlayCategory) ByName(name string) (*segment.Metadata, bool) {
	for _, s := range c.segments {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// BuildError is the typed error taxonomy for Context construction
// (spec.md section 7, "Context build").
type BuildError struct {
	Kind string
	Msg  string
}

func (e *BuildError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Msg) }

func errOverlappingRom(a, b string) error {
	return &BuildError{Kind: "OverlappingRom", Msg: fmt.Sprintf("%s overlaps %s", a, b)}
}
func errOverlappingVram(a, b string) error {
	return &BuildError{Kind: "OverlappingVram", Msg: fmt.Sprintf("%s overlaps %s", a, b)}
}
func errDuplicatedOverlayName(name string) error {
	return &BuildError{Kind: "DuplicatedOverlayName", Msg: name}
}
func errPrioritisedOverlayNotFound(name string) error {
	return &BuildError{Kind: "PrioritisedOverlayNotFound", Msg: name}
}

// fail logs a Context build failure under the "context" domain before
// returning it, so a caller who only keeps the recent-log ring buffer
// around for crash reports still has the rejected build's reason.
func fail(err error) (*Context, error) {
	logger.Logf("context", "build rejected: %v", err)
	return nil, err
}

// Context is the top-level registry: a global segment, overlay categories
// keyed by category name, and a platform/user segment for preset symbol
// tables (e.g. "N64 libultra symbols").
type Context struct {
	Global     *segment.Metadata
	overlays   map[string]*OverlayCategory
	Platform   *segment.Metadata
}

// Builder accumulates segments before Build() validates and freezes them
// into a Context, mirroring the reference implementation's
// ContextBuilder/SegmentBuilder split (context/builder/*.rs in
// original_source/).
type Builder struct {
	global   *segment.Metadata
	overlays map[string]*OverlayCategory
	platform *segment.Metadata
}

// NewBuilder starts a Context build over the given global segment range.
func NewBuilder(global *segment.Metadata) *Builder {
	return &Builder{
		global:   global,
		overlays: make(map[string]*OverlayCategory),
		platform: segment.New("platform", address.RomVramRange{}),
	}
}

// Platform exposes the platform/user segment so preset loaders (hardware
// register tables, libultra symbols) can populate it before Build.
func (b *Builder) Platform() *segment.Metadata { return b.platform }

// AddOverlay registers one overlay segment under the given category. It is
// an error (DuplicatedOverlayName) to add two overlays with the same name
// to the same category.
func (b *Builder) AddOverlay(category string, seg *segment.Metadata) error {
	seg.IsOverlay = true
	seg.CategoryName = category
	cat, ok := b.overlays[category]
	if !ok {
		cat = newOverlayCategory(category)
		b.overlays[category] = cat
	}
	for rom, existing := range cat.segments {
		if existing.Name == seg.Name {
			return errDuplicatedOverlayName(seg.Name)
		}
		if rom == seg.Ranges.Rom().Start {
			return errDuplicatedOverlayName(seg.Name)
		}
	}
	cat.segments[seg.Ranges.Rom().Start] = seg
	return nil
}

// Build validates rom/vram non-overlap within each scope and resolves
// each segment's prioritised-overlay name list, returning the frozen
// Context.
func (b *Builder) Build() (*Context, error) {
	// Overlays within the same category must not overlap each other's rom
	// range (they may share rom only if truly identical, which AddOverlay
	// already prevents by keying on rom start). Vram overlap is checked
	// separately below.
	for _, cat := range b.overlays {
		segs := cat.Segments()
		for i := 0; i < len(segs); i++ {
			for j := i + 1; j < len(segs); j++ {
				if segs[i].Ranges.Rom().Overlaps(segs[j].Ranges.Rom()) {
					return fail(errOverlappingRom(segs[i].Name, segs[j].Name))
				}
			}
		}
	}

	// Segments within the same overlay category are expected to share a
	// vram window (that's what makes them an overlay): different overlays
	// swap in and out of the same addresses at different rom offsets. The
	// global segment, and overlays belonging to different categories, each
	// occupy their own fixed vram window and must never overlap: two
	// categories claiming the same addresses (or an overlay overlapping
	// the permanently-resident global segment) would make address
	// resolution ambiguous.
	categories := make([]*OverlayCategory, 0, len(b.overlays))
	for _, cat := range b.overlays {
		categories = append(categories, cat)
	}
	for i := 0; i < len(categories); i++ {
		for _, seg := range categories[i].Segments() {
			if b.global.Ranges.Vram().Overlaps(seg.Ranges.Vram()) {
				return fail(errOverlappingVram(b.global.Name, seg.Name))
			}
		}
		for j := i + 1; j < len(categories); j++ {
			for _, segA := range categories[i].Segments() {
				for _, segB := range categories[j].Segments() {
					if segA.Ranges.Vram().Overlaps(segB.Ranges.Vram()) {
						return fail(errOverlappingVram(segA.Name, segB.Name))
					}
				}
			}
		}
	}

	allSegments := []*segment.Metadata{b.global}
	for _, cat := range b.overlays {
		allSegments = append(allSegments, cat.Segments()...)
	}
	for _, seg := range allSegments {
		for _, name := range seg.PrioritisedOverlays {
			if !b.hasOverlayNamed(name) {
				return fail(errPrioritisedOverlayNotFound(name))
			}
		}
	}

	return &Context{Global: b.global, overlays: b.overlays, Platform: b.platform}, nil
}

func (b *Builder) hasOverlayNamed(name string) bool {
	for _, cat := range b.overlays {
		if _, ok := cat.ByName(name); ok {
			return true
		}
	}
	return false
}

// OverlayCategories returns every overlay category in the built Context.
func (c *Context) OverlayCategories() map[string]*OverlayCategory { return c.overlays }

// OverlayByName finds a specific overlay segment across all categories.
func (c *Context) OverlayByName(name string) (*segment.Metadata, bool) {
	for _, cat := range c.overlays {
		if s, ok := cat.ByName(name); ok {
			return s, true
		}
	}
	return nil, false
}

// FindSymbol resolves vram starting from the given owning segment: first
// that segment's own map, then its prioritised overlays in order, then
// the platform segment. This is the walk spec.md section 3 describes for
// Context's address resolution.
func (c *Context) FindSymbol(owner *segment.Metadata, vram address.Vram, allowAddend bool) (*symbols.SymbolMetadata, bool) {
	if sym, ok := owner.FindSymbol(vram, allowAddend); ok {
		return sym, true
	}
	for _, name := range owner.PrioritisedOverlays {
		if ov, ok := c.OverlayByName(name); ok {
			if sym, ok := ov.FindSymbol(vram, allowAddend); ok {
				return sym, true
			}
		}
	}
	if sym, ok := c.Platform.FindSymbol(vram, allowAddend); ok {
		return sym, true
	}
	return nil, false
}

// FindSymbolGlobalFirst resolves vram by checking the global segment
// first, then the given owner (used when analyzing overlay code that
// often references globally-shared functions).
func (c *Context) FindSymbolGlobalFirst(owner *segment.Metadata, vram address.Vram, allowAddend bool) (*symbols.SymbolMetadata, bool) {
	if owner != c.Global {
		if sym, ok := c.Global.FindSymbol(vram, allowAddend); ok {
			return sym, true
		}
	}
	return c.FindSymbol(owner, vram, allowAddend)
}
