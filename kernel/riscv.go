package kernel

const PGSIZE = uintptr(4096) // bytes per page

func PGROUNDUP(a uintptr) uintptr { return (a + PGSIZE - 1) & ^(PGSIZE - 1) }

// Cpu is the per-hart state. A hosted kernel thread runs "on" a Cpu by
// passing it to the lock and allocator entry points; a Cpu must only be
// used by one goroutine at a time, exactly as a real hart runs one thread.
type Cpu struct {
	id     int
	intr   bool // sstatus.SIE
	noff   int  // depth of push_off() nesting
	intena bool // were interrupts enabled before push_off()?

	held []lockRank // ranks of spinlocks currently held, in acquisition order
}

// NewCpu returns hart id with interrupts enabled.
func NewCpu(id int) *Cpu {
	return &Cpu{id: id, intr: true}
}

func (c *Cpu) ID() int { return c.id }

// enable device interrupts
func intr_on(c *Cpu) { c.intr = true }

// disable device interrupts
func intr_off(c *Cpu) { c.intr = false }

// are device interrupts enabled?
func intr_get(c *Cpu) bool { return c.intr }

// push_off/pop_off are like intr_off()/intr_on() except that they are matched:
// it takes two pop_off()s to undo two push_off()s. Also, if interrupts
// are initially off, then push_off, pop_off leaves them off.
func push_off(c *Cpu) {
	old := intr_get(c)

	intr_off(c)
	if c.noff == 0 {
		c.intena = old
	}
	c.noff++
}

func pop_off(c *Cpu) {
	if intr_get(c) {
		kpanic("pop_off - interruptible")
	}
	if c.noff < 1 {
		kpanic("pop_off")
	}
	c.noff--
	if c.noff == 0 && c.intena {
		intr_on(c)
	}
}
