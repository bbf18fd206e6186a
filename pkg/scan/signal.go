// Package scan implements the phased, typestate-enforced filesystem walk:
// parse_superblock -> FsScanner -> per-AG AgScanner (inodes) -> AgExtentPhase
// -> AgDirPhase. Each phase is a distinct Go type whose scan method
// consumes it (via a one-shot guard) and returns the next phase, mirroring
// the teacher corpus's preference for small, single-purpose handle types
// (e.g. pkg/vdecompiler's IO/vpartInfo split) generalized here to enforce
// the single-traversal-per-phase property the spec's callback protocol
// requires.
package scan

// Signal is the callback return type every streaming phase uses: either
// keep going, or halt the phase and surface a value of T to the caller.
type Signal[T any] struct {
	brk   bool
	value T
}

// Continue tells the driver to keep scanning.
func Continue[T any]() Signal[T] {
	return Signal[T]{}
}

// Break halts the current phase and surfaces value to the caller once the
// phase method returns.
func Break[T any](value T) Signal[T] {
	return Signal[T]{brk: true, value: value}
}

// IsBreak reports whether this signal requests an early halt.
func (s Signal[T]) IsBreak() bool { return s.brk }

// Value returns the value passed to Break; zero value if this is Continue.
func (s Signal[T]) Value() T { return s.value }
