package symbols

import "github.com/jetsetilly/spimdisasm/address"

// ReferencedAddress is the lightweight, preheater-owned record seeded
// before full disassembly runs: just enough to remember that some
// instruction or data word pointed at this vram, plus enough type/access
// hints to let the section splitter place a boundary there. It is merged
// into full SymbolMetadata once a section is created over it.
type ReferencedAddress struct {
	Vram      address.Vram
	Referrers []address.Vram

	Access AccessHistogram

	autodetectedType *SymbolType
	userType         *SymbolType
	userSize         *address.Size
}

// NewReferencedAddress creates an empty seed record for vram.
func NewReferencedAddress(vram address.Vram) *ReferencedAddress {
	return &ReferencedAddress{Vram: vram}
}

// SizeBytes returns the seed's byte width (the user size, else 1); segment's
// orderedmap.Sized adapter reports it as Size() so seeds can live in an
// AddendedOrderedMap alongside symbol metadata during preheat.
func (r *ReferencedAddress) SizeBytes() uint32 {
	if r.userSize != nil {
		return uint32(*r.userSize)
	}
	return 1
}

// AddReferrer records one more instruction/word vram that pointed here.
func (r *ReferencedAddress) AddReferrer(from address.Vram) {
	r.Referrers = append(r.Referrers, from)
}

// AddAccess records one memory access of the given width against the
// histogram, mirroring SymbolMetadata.AddAccess.
func (r *ReferencedAddress) AddAccess(at AccessKind) {
	switch at {
	case AccessKindByte:
		r.Access.Byte++
	case AccessKindShort:
		r.Access.Short++
	case AccessKindWord:
		r.Access.Word++
	case AccessKindDWord:
		r.Access.DWord++
	case AccessKindFloat:
		r.Access.Float++
	case AccessKindDouble:
		r.Access.Double++
	case AccessKindLeft:
		r.Access.Left++
	case AccessKindRight:
		r.Access.Right++
	}
}

// ReferenceCounter returns how many times a reference to this address was
// recorded — the string guesser's "referenced more than once" check reads
// this (including duplicates, matching the reference implementation which
// counts occurrences, not distinct referrers).
func (r *ReferencedAddress) ReferenceCounter() int { return len(r.Referrers) }

// SetAutodetectedType records (with label-kind precedence) a type inferred
// during preheat, e.g. BranchLabel for a branch target or Function for a
// jal target.
func (r *ReferencedAddress) SetAutodetectedType(st SymbolType) {
	if r.autodetectedType == nil {
		r.autodetectedType = &st
		return
	}
	preferred := PreferType(*r.autodetectedType, st)
	r.autodetectedType = &preferred
}

func (r *ReferencedAddress) AutodetectedType() (SymbolType, bool) {
	if r.autodetectedType == nil {
		return 0, false
	}
	return *r.autodetectedType, true
}

func (r *ReferencedAddress) SetUserType(st SymbolType) { r.userType = &st }

func (r *ReferencedAddress) UserType() (SymbolType, bool) {
	if r.userType == nil {
		return 0, false
	}
	return *r.userType, true
}

func (r *ReferencedAddress) SetUserSize(sz address.Size) { r.userSize = &sz }

func (r *ReferencedAddress) UserSize() (address.Size, bool) {
	if r.userSize == nil {
		return 0, false
	}
	return *r.userSize, true
}

// EffectiveType mirrors SymbolMetadata's user>auto precedence.
func (r *ReferencedAddress) EffectiveType() (SymbolType, bool) {
	if r.userType != nil {
		return *r.userType, true
	}
	if r.autodetectedType != nil {
		return *r.autodetectedType, true
	}
	return 0, false
}

// ReferenceView is a read-only projection of a ReferencedAddress (or of a
// fully-promoted SymbolMetadata) used by the string guesser so it doesn't
// need write access to decide whether a byte run looks like a string.
// Grounded on the reference implementation's ReferenceWrapper
// (analysis/reference_wrapper.rs in original_source/).
type ReferenceView struct {
	symType             *SymbolType
	userType            *SymbolType
	userSize            *address.Size
	referenceCounter    int
	nonLeftRightAccesses int
}

// ViewReferencedAddress builds a ReferenceView over a preheat-time record.
func ViewReferencedAddress(r *ReferencedAddress) ReferenceView {
	v := ReferenceView{
		userType:         r.userType,
		userSize:         r.userSize,
		referenceCounter: r.ReferenceCounter(),
	}
	if t, ok := r.EffectiveType(); ok {
		v.symType = &t
	}
	v.nonLeftRightAccesses = r.Access.Byte + r.Access.Short + r.Access.Word +
		r.Access.DWord + r.Access.Float + r.Access.Double
	return v
}

// ViewSymbolMetadata builds a ReferenceView over fully-promoted metadata.
func ViewSymbolMetadata(m *SymbolMetadata) ReferenceView {
	v := ReferenceView{
		referenceCounter: m.ReferenceCount(),
	}
	if ut, ok := m.Type.UserType(); ok {
		v.userType = &ut
	}
	if m.Size.HasUser() {
		sz := m.Size.Get()
		v.userSize = &sz
	}
	if t, ok := m.Type.Get(); ok {
		v.symType = &t
	}
	v.nonLeftRightAccesses = m.Access.Byte + m.Access.Short + m.Access.Word +
		m.Access.DWord + m.Access.Float + m.Access.Double
	return v
}

func (v ReferenceView) SymType() (SymbolType, bool) {
	if v.symType == nil {
		return 0, false
	}
	return *v.symType, true
}

func (v ReferenceView) UserDeclaredType() (SymbolType, bool) {
	if v.userType == nil {
		return 0, false
	}
	return *v.userType, true
}

func (v ReferenceView) UserDeclaredSize() (address.Size, bool) {
	if v.userSize == nil {
		return 0, false
	}
	return *v.userSize, true
}

func (v ReferenceView) ReferenceCounter() int { return v.referenceCounter }

// HasBeenDereferenced reports whether any access recorded against this
// address was a plain (non LEFT/RIGHT) memory access, the signal the
// string guesser uses to reject pointers that were actually dereferenced
// as scalars rather than read as string bytes.
func (v ReferenceView) HasBeenDereferenced() bool { return v.nonLeftRightAccesses > 0 }
