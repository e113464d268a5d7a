// Package curated formats the disassembler's own errors with a uniform
// prefix, mirroring the teacher's curated.Errorf used throughout
// hardware/memory/cartridge/arm and coprocessor/developer.
package curated

import "fmt"

// Errorf formats an error the same way fmt.Errorf does. Kept as its own
// named wrapper, rather than called as fmt.Errorf directly, so every
// curated error site in this codebase can be grepped in one place and so
// a future caller-identifying prefix can be added without touching every
// call site.
func Errorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
