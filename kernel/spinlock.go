package kernel

import (
	"runtime"
	"sync/atomic"
)

// Mutual exclusion spin lock.
type Spinlock struct {
	locked atomic.Uint32 // Is the lock held?

	// For debugging:
	name string              // Name of lock.
	cpu  atomic.Pointer[Cpu] // The cpu holding the lock.
	rank lockRank
}

func initlock(lk *Spinlock, name string, rank lockRank) {
	lk.name = name
	lk.locked.Store(0)
	lk.cpu.Store(nil)
	lk.rank = rank
}

// NewSpinlock returns a leaf spinlock: one that is never held while
// taking another ranked lock.
func NewSpinlock(name string) *Spinlock {
	lk := new(Spinlock)
	initlock(lk, name, lockRankLeaf)
	return lk
}

// Acquire the lock.
// Loops (spins) until the lock is acquired.
func (lk *Spinlock) Acquire(c *Cpu) {
	push_off(c) // disable interrupts to avoid deadlock.
	if lk.Holding(c) {
		kpanic("acquire " + lk.name)
	}
	acquireLockRank(c, lk.rank)

	for !lk.locked.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}

	// Record info about lock acquisition for holding() and debugging.
	lk.cpu.Store(c)
}

// Release the lock.
func (lk *Spinlock) Release(c *Cpu) {
	if !lk.Holding(c) {
		kpanic("release " + lk.name)
	}

	lk.cpu.Store(nil)
	lk.locked.Store(0)

	releaseLockRank(c, lk.rank)
	pop_off(c)
}

// Check whether this cpu is holding the lock.
// Interrupts must be off.
func (lk *Spinlock) Holding(c *Cpu) bool {
	return lk.locked.Load() == 1 && lk.cpu.Load() == c
}
