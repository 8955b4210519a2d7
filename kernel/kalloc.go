package kernel

// Physical memory allocator, for user processes,
// kernel stacks, page-table pages,
// and pipe buffers. Allocates whole 4096-byte pages.

// run links a free page into a per-CPU free list. The links live in a
// descriptor array indexed by page number instead of inside the free
// page itself.
type run struct {
	next int // page number of the next free page, or -1
}

type kmemCpu struct {
	lock     Spinlock
	freelist int // page number of the first free page, or -1
}

// Kmem owns all physical memory between the end of the kernel image and
// PHYSTOP, kept as one free list per CPU.
type Kmem struct {
	layout Memlayout
	base   uintptr // first allocatable page, PGROUNDUP(end)
	ram    []byte  // simulated RAM backing [base, phystop)
	runs   []run
	npages int

	cpus []kmemCpu
}

// Kinit creates the allocator for ncpu harts and frees every page in the
// layout onto boot's list.
func Kinit(layout Memlayout, ncpu int, boot *Cpu) *Kmem {
	if ncpu < 1 || ncpu > NCPU {
		kpanic("kinit: ncpu")
	}
	if layout.Phystop <= layout.End || layout.End < layout.Kernbase || layout.Phystop%PGSIZE != 0 {
		kpanic("kinit: layout")
	}

	k := &Kmem{
		layout: layout,
		base:   PGROUNDUP(layout.End),
		cpus:   make([]kmemCpu, ncpu),
	}
	for i := range k.cpus {
		initlock(&k.cpus[i].lock, "kmem", lockRankKmem)
		k.cpus[i].freelist = -1
	}
	if k.base < layout.Phystop {
		k.npages = int((layout.Phystop - k.base) / PGSIZE)
	}
	k.ram = make([]byte, uintptr(k.npages)*PGSIZE)
	k.runs = make([]run, k.npages)

	Printf("kinit: [%p, %p)\n", layout.End, layout.Phystop)
	k.freerange(boot, layout.End, layout.Phystop)
	return k
}

func (k *Kmem) freerange(c *Cpu, pa_start uintptr, pa_end uintptr) {
	for p := PGROUNDUP(pa_start); p+PGSIZE <= pa_end; p += PGSIZE {
		k.Kfree(c, p)
	}
}

func (k *Kmem) pagenum(pa uintptr) int {
	return int((pa - k.base) / PGSIZE)
}

func (k *Kmem) pageaddr(r int) uintptr {
	return k.base + uintptr(r)*PGSIZE
}

func (k *Kmem) page(r int) []byte {
	off := uintptr(r) * PGSIZE
	return k.ram[off : off+PGSIZE : off+PGSIZE]
}

// kmemcpu returns c's free list. Caller must have interrupts off so it
// cannot move to another hart before locking the list.
func (k *Kmem) kmemcpu(c *Cpu) *kmemCpu {
	cid := c.id
	if cid < 0 || cid >= len(k.cpus) {
		kpanic("kmem: bad cpuid")
	}
	return &k.cpus[cid]
}

// Kfree frees the page of physical memory pointed at by pa,
// which normally should have been returned by a
// call to Kalloc. (The exception is when
// initializing the allocator; see Kinit above.)
func (k *Kmem) Kfree(c *Cpu, pa uintptr) {
	if pa%PGSIZE != 0 || pa < k.layout.End || pa >= k.layout.Phystop {
		kpanic("kfree")
	}

	r := k.pagenum(pa)

	// Fill with junk to catch dangling refs.
	memset(k.page(r), 1, uint(PGSIZE))

	push_off(c)
	kc := k.kmemcpu(c)
	kc.lock.Acquire(c)
	k.runs[r].next = kc.freelist
	kc.freelist = r
	kc.lock.Release(c)
	pop_off(c)
}

// Kalloc allocates one 4096-byte page of physical memory, taking it from
// c's free list or, when that is empty, stealing one from another CPU.
// Returns ErrNoMem if the memory cannot be allocated.
func (k *Kmem) Kalloc(c *Cpu) (uintptr, error) {
	r := -1

	push_off(c)
	kc := k.kmemcpu(c)
	kc.lock.Acquire(c)
	if kc.freelist == -1 {
		kc.lock.Release(c)
		ncpu := len(k.cpus)
		for i := 1; i < ncpu; i++ {
			victim := &k.cpus[(c.id+i)%ncpu]
			victim.lock.Acquire(c)
			if victim.freelist != -1 {
				r = victim.freelist
				victim.freelist = k.runs[r].next
				victim.lock.Release(c)
				break
			}
			victim.lock.Release(c)
		}
	} else {
		r = kc.freelist
		kc.freelist = k.runs[r].next
		kc.lock.Release(c)
	}
	pop_off(c)

	if r == -1 {
		return 0, ErrNoMem
	}
	k.runs[r].next = -1
	memset(k.page(r), 5, uint(PGSIZE)) // fill with junk
	return k.pageaddr(r), nil
}

// Page returns the memory of the page at pa.
func (k *Kmem) Page(pa uintptr) []byte {
	if pa%PGSIZE != 0 || pa < k.base || pa >= k.base+uintptr(k.npages)*PGSIZE {
		kpanic("page")
	}
	return k.page(k.pagenum(pa))
}

// Npages is the number of pages handed out by Kinit.
func (k *Kmem) Npages() int {
	return k.npages
}

// NfreeCpu counts the pages on hart id's free list.
func (k *Kmem) NfreeCpu(c *Cpu, id int) int {
	if id < 0 || id >= len(k.cpus) {
		kpanic("nfree: bad cpuid")
	}
	kc := &k.cpus[id]
	n := 0
	kc.lock.Acquire(c)
	for r := kc.freelist; r != -1; r = k.runs[r].next {
		n++
	}
	kc.lock.Release(c)
	return n
}

// Nfree counts free pages across all harts, one list lock at a time.
// The total is only exact when no other hart is allocating or freeing.
func (k *Kmem) Nfree(c *Cpu) int {
	n := 0
	for id := range k.cpus {
		n += k.NfreeCpu(c, id)
	}
	return n
}

// Freemem returns the number of bytes of free memory.
func (k *Kmem) Freemem(c *Cpu) uint64 {
	return uint64(k.Nfree(c)) * uint64(PGSIZE)
}
