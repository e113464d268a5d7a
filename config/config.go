// Package config holds the small set of recognized options that change how
// the analyzer, string guesser, and display layer behave. Loading these
// options from a file or CLI flags is explicitly out of scope (spec.md
// section 1); this package only defines the in-memory structures the core
// consults.
package config

// Endian selects the byte order raw sections are decoded with.
type Endian int

const (
	BigEndian Endian = iota
	LittleEndian
)

// Compiler affects several analyzer/display heuristics: late-rodata
// support, multi-HI-to-one-LO pairing, rodata migration eligibility, the
// %lo big-addend workaround, and per-section/per-type alignment.
type Compiler int

const (
	CompilerNone Compiler = iota
	CompilerIDO
	CompilerKMC
	CompilerSN64
	CompilerEGCS
	CompilerPSYQ
	CompilerMWCCPS2
	CompilerEEGCC
)

// SupportsLateRodata reports whether the compiler interleaves jumptables
// and floats after the main rodata section at link time (an IDO-ism).
func (c Compiler) SupportsLateRodata() bool {
	return c == CompilerIDO
}

// PairMultipleHiToOneLo reports whether the compiler may emit more than
// one `lui` targeting the same `lo` instruction (seen with some versions
// of IDO's optimizer).
func (c Compiler) PairMultipleHiToOneLo() bool {
	switch c {
	case CompilerIDO, CompilerEGCS:
		return true
	default:
		return false
	}
}

// AllowsRodataMigration reports whether rodata belonging to a single
// function may be printed inline with that function.
func (c Compiler) AllowsRodataMigration() bool {
	return c != CompilerPSYQ
}

// BigAddendWorkaround reports whether %lo operands with an addend outside
// the usual +/-0x8000 range should be emitted as a raw constant instead of
// a symbol+addend, a workaround some compilers' assemblers require.
func (c Compiler) BigAddendWorkaround() bool {
	switch c {
	case CompilerSN64, CompilerPSYQ:
		return true
	default:
		return false
	}
}

// PrevAlignShiftOverride lets Compiler override the "previous" alignment
// directive emitted before a symbol of a given kind; ok is false when the
// symbol type's own alignment applies.
func (c Compiler) PrevAlignShiftOverride(isCString bool) (shift uint32, ok bool) {
	if !isCString {
		return 0, false
	}
	switch c {
	case CompilerSN64:
		// SN64 historically aligns strings stricter than the default 4.
		return 3, true
	default:
		return 0, false
	}
}

// StringGuesserLevel controls how aggressively the string guesser accepts
// a byte run as a C string; levels are ordered from least to most
// aggressive and comparisons (<, <=) between levels are meaningful.
type StringGuesserLevel int

const (
	GuesserNo StringGuesserLevel = iota
	GuesserConservative
	GuesserMultipleReferences
	GuesserEmptyStrings
	GuesserIgnoreDetectedType
	GuesserFull
)

// DefaultStringGuesserLevel matches the reference implementation's
// StringGuesserLevel::default().
const DefaultStringGuesserLevel = GuesserMultipleReferences

// Encoding selects the character encoding used to validate and decode
// C strings.
type Encoding int

const (
	Ascii Encoding = iota
	ShiftJis
	EucJp
	EucCn
)

// InstructionFlags carries ISA-variant toggles that affect instruction
// classification.
type InstructionFlags struct {
	// JAsBranch treats `j` as an intra-function branch rather than a
	// function call / tail call, matching some disassembler presets for
	// hand-written code.
	JAsBranch bool
}

// Context is the bundle of configuration consulted by the analyzer, the
// string guesser, and the display layer.
type Context struct {
	Endian             Endian
	Compiler           Compiler
	StringGuesserLevel StringGuesserLevel
	Encoding           Encoding
	GpValue            *uint32
	IsaVersion         int
	InstructionFlags   InstructionFlags
}

// Default returns the configuration the reference implementation falls
// back to absent any user overrides.
func Default() Context {
	return Context{
		Endian:             BigEndian,
		Compiler:           CompilerNone,
		StringGuesserLevel: DefaultStringGuesserLevel,
		Encoding:           Ascii,
		IsaVersion:         1,
	}
}
