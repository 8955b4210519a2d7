package kernel

import "errors"

// Exhaustion is reported to the caller rather than halting the kernel.
var (
	ErrNoMem     = errors.New("kalloc: out of memory")
	ErrNoBuffers = errors.New("bget: no buffers")
)
