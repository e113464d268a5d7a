package address

// Ordered is the subset of address-like behavior Range needs: a type whose
// values are unsigned 32-bit quantities that can be compared and offset by
// a Size. Rom and Vram both satisfy it.
type Ordered interface {
	~uint32
}

// Range is a half-open interval [Start, End) over an address-like type T.
// It mirrors the reference implementation's generic AddressRange<T>.
type Range[T Ordered] struct {
	Start T
	End   T
}

// NewRange builds a Range, tolerating an inverted (start, end) pair by
// swapping them the same way the reference builder does when asked to
// expand a range.
func NewRange[T Ordered](start, end T) Range[T] {
	if end < start {
		start, end = end, start
	}
	return Range[T]{Start: start, End: end}
}

// Size returns the byte length spanned by the range.
func (r Range[T]) Size() Size { return Size(uint32(r.End) - uint32(r.Start)) }

// InRange reports whether addr falls within [Start, End).
func (r Range[T]) InRange(addr T) bool { return addr >= r.Start && addr < r.End }

// Overlaps reports whether the two ranges share any address.
func (r Range[T]) Overlaps(o Range[T]) bool {
	return r.Start < o.End && o.Start < r.End
}

// ExpandRange grows r in place so it covers o as well, the same operation
// the reference RomVramRange uses to merge segment ranges.
func (r *Range[T]) ExpandRange(o Range[T]) {
	if o.Start < r.Start {
		r.Start = o.Start
	}
	if o.End > r.End {
		r.End = o.End
	}
}

// IsEmpty reports whether the range spans zero bytes.
func (r Range[T]) IsEmpty() bool { return r.Start == r.End }

// RomRange and VramRange are the two concrete instantiations used
// everywhere else in the package; named so call sites don't need to spell
// out the generic parameter.
type RomRange = Range[Rom]
type VramRange = Range[Vram]

// RomVramRange pairs a Rom range with a Vram range at least as large as it
// (the vram side may extend past the rom side, e.g. to cover bss), with
// matching low-2-bit alignment between their starts — the invariant the
// reference implementation asserts in RomVramRange::new.
type RomVramRange struct {
	rom  RomRange
	vram VramRange
}

// NewRomVramRange constructs a RomVramRange. ok is false if the vram range
// is smaller than the rom range, or the two ranges don't share the same
// 4-byte-phase alignment.
func NewRomVramRange(rom RomRange, vram VramRange) (RomVramRange, bool) {
	if vram.Size() < rom.Size() {
		return RomVramRange{}, false
	}
	if uint32(vram.Start)%4 != uint32(rom.Start)%4 {
		return RomVramRange{}, false
	}
	return RomVramRange{rom: rom, vram: vram}, true
}

func (r RomVramRange) Rom() RomRange   { return r.rom }
func (r RomVramRange) Vram() VramRange { return r.vram }

func (r RomVramRange) InRomRange(rom Rom) bool   { return r.rom.InRange(rom) }
func (r RomVramRange) InVramRange(vram Vram) bool { return r.vram.InRange(vram) }

// VramFromRom converts a rom offset within this range to the matching vram.
func (r RomVramRange) VramFromRom(rom Rom) (Vram, bool) {
	if !r.rom.InRange(rom) {
		return 0, false
	}
	diff := uint32(rom) - uint32(r.rom.Start)
	return r.vram.Start + Vram(diff), true
}

// RomFromVram converts a vram within this range back to a rom offset. This
// is the round-trip operation exercised by the Address round-trip
// invariant: rom_from_vram(vram_from_rom(rom)) == Some(rom).
func (r RomVramRange) RomFromVram(vram Vram) (Rom, bool) {
	if !r.vram.InRange(vram) {
		return 0, false
	}
	diff := uint32(vram) - uint32(r.vram.Start)
	return r.rom.Start + Rom(diff), true
}

// ExpandRanges grows both the rom and vram ranges to also cover o.
func (r *RomVramRange) ExpandRanges(o RomVramRange) {
	r.rom.ExpandRange(o.rom)
	r.vram.ExpandRange(o.vram)
}
