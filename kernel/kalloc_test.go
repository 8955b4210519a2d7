package kernel

import (
	"errors"
	"sync"
	"testing"
)

func newTestKmem(test *testing.T, npages, ncpu int) (*Kmem, []*Cpu) {
	test.Helper()
	harts := make([]*Cpu, ncpu)
	for i := range harts {
		harts[i] = NewCpu(i)
	}
	k := Kinit(SmallMemlayout(npages), ncpu, harts[0])
	if k.Npages() != npages {
		fatalHere(test, "Npages = %d, expected %d", k.Npages(), npages)
	}
	return k, harts
}

func allJunk(page []byte, c byte) bool {
	for _, b := range page {
		if b != c {
			return false
		}
	}
	return true
}

// Kinit runs on one hart, so every page lands on its list.
func TestKinitSeedsBootCpu(test *testing.T) {
	k, harts := newTestKmem(test, 16, 4)

	if n := k.NfreeCpu(harts[0], 0); n != 16 {
		errorHere(test, "boot hart has %d free pages, expected 16", n)
	}
	for id := 1; id < 4; id++ {
		if n := k.NfreeCpu(harts[0], id); n != 0 {
			errorHere(test, "hart %d has %d free pages, expected 0", id, n)
		}
	}
	if m := k.Freemem(harts[0]); m != 16*uint64(PGSIZE) {
		errorHere(test, "Freemem = %d", m)
	}
}

func TestKinitRoundsUpEnd(test *testing.T) {
	boot := NewCpu(0)
	layout := Memlayout{
		Kernbase: KERNBASE,
		End:      KERNBASE + 0x1234,
		Phystop:  KERNBASE + 8*PGSIZE,
	}
	k := Kinit(layout, 1, boot)
	if k.Npages() != 6 {
		errorHere(test, "Npages = %d, expected 6", k.Npages())
	}
	pa, err := k.Kalloc(boot)
	if err != nil {
		fatalHere(test, "Kalloc: %s", err)
	}
	if pa < PGROUNDUP(layout.End) || pa%PGSIZE != 0 {
		errorHere(test, "Kalloc returned %x", pa)
	}
}

func TestKallocFillsJunk(test *testing.T) {
	k, harts := newTestKmem(test, 4, 1)
	c := harts[0]

	pa, err := k.Kalloc(c)
	if err != nil {
		fatalHere(test, "Kalloc: %s", err)
	}
	if !allJunk(k.Page(pa), 5) {
		errorHere(test, "allocated page not filled with 5")
	}

	page := k.Page(pa)
	for i := range page {
		page[i] = 0xaa
	}
	k.Kfree(c, pa)
	if !allJunk(k.Page(pa), 1) {
		errorHere(test, "freed page not filled with 1")
	}
}

// Pages are handed out most recently freed first from the local list.
func TestKallocLIFO(test *testing.T) {
	k, harts := newTestKmem(test, 4, 1)
	c := harts[0]

	a, _ := k.Kalloc(c)
	b, _ := k.Kalloc(c)
	k.Kfree(c, a)
	k.Kfree(c, b)
	if pa, _ := k.Kalloc(c); pa != b {
		errorHere(test, "expected %x, got %x", b, pa)
	}
	if pa, _ := k.Kalloc(c); pa != a {
		errorHere(test, "expected %x, got %x", a, pa)
	}
}

func TestKallocSteal(test *testing.T) {
	k, harts := newTestKmem(test, 8, 3)

	pa, err := k.Kalloc(harts[1])
	if err != nil {
		fatalHere(test, "Kalloc on empty hart: %s", err)
	}
	if pa == 0 {
		errorHere(test, "stolen page is 0")
	}
	if n := k.NfreeCpu(harts[1], 0); n != 7 {
		errorHere(test, "victim has %d pages, expected 7", n)
	}
	if n := k.NfreeCpu(harts[1], 1); n != 0 {
		errorHere(test, "thief has %d pages, expected 0", n)
	}

	// Freeing puts the page on the freeing hart's list.
	k.Kfree(harts[2], pa)
	if n := k.NfreeCpu(harts[2], 2); n != 1 {
		errorHere(test, "hart 2 has %d pages, expected 1", n)
	}
	if n := k.Nfree(harts[0]); n != 8 {
		errorHere(test, "Nfree = %d, expected 8", n)
	}
}

// Steal scans the other harts in round-robin order after the caller.
func TestKallocStealOrder(test *testing.T) {
	k, harts := newTestKmem(test, 2, 4)

	a, _ := k.Kalloc(harts[0])
	b, _ := k.Kalloc(harts[0])
	k.Kfree(harts[1], a)
	k.Kfree(harts[3], b)

	if pa, _ := k.Kalloc(harts[2]); pa != b {
		errorHere(test, "hart 2 should steal from hart 3 first: got %x, expected %x", pa, b)
	}
	if pa, _ := k.Kalloc(harts[2]); pa != a {
		errorHere(test, "hart 2 should then wrap to hart 1: got %x, expected %x", pa, a)
	}
}

func TestKallocExhaustion(test *testing.T) {
	k, harts := newTestKmem(test, 3, 2)

	var pages []uintptr
	for i := 0; i < 3; i++ {
		pa, err := k.Kalloc(harts[i%2])
		if err != nil {
			fatalHere(test, "Kalloc %d: %s", i, err)
		}
		pages = append(pages, pa)
	}

	pa, err := k.Kalloc(harts[1])
	if !errors.Is(err, ErrNoMem) || pa != 0 {
		errorHere(test, "expected ErrNoMem, got %x, %v", pa, err)
	}

	k.Kfree(harts[0], pages[1])
	if pa, err := k.Kalloc(harts[1]); err != nil || pa != pages[1] {
		errorHere(test, "expected %x after free, got %x, %v", pages[1], pa, err)
	}
}

func TestKfreeBadAddress(test *testing.T) {
	k, harts := newTestKmem(test, 4, 1)
	c := harts[0]
	layout := SmallMemlayout(4)

	expectPanic(test, "kfree", func() { k.Kfree(c, layout.End+PGSIZE+8) })
	expectPanic(test, "kfree", func() { k.Kfree(c, layout.Kernbase) })
	expectPanic(test, "kfree", func() { k.Kfree(c, layout.Phystop) })
	expectPanic(test, "kfree", func() { k.Kfree(c, layout.Phystop+PGSIZE) })

	if n := k.Nfree(c); n != 4 {
		errorHere(test, "bad frees changed the free count to %d", n)
	}
}

func TestKallocBadCpu(test *testing.T) {
	k, _ := newTestKmem(test, 4, 2)
	expectPanic(test, "kmem: bad cpuid", func() { k.Kalloc(NewCpu(5)) })
}

// Harts allocate and free concurrently; no page is ever owned twice, and
// the pages add back up once everyone is done.
func TestKallocConcurrent(test *testing.T) {
	const npages = 64
	k, harts := newTestKmem(test, npages, 4)

	var mu sync.Mutex
	inuse := make(map[uintptr]int)
	var wg sync.WaitGroup
	for _, c := range harts {
		wg.Add(1)
		go func(c *Cpu) {
			defer wg.Done()
			var mine []uintptr
			for i := 0; i < 2000; i++ {
				if i%3 != 2 {
					pa, err := k.Kalloc(c)
					if err != nil {
						continue
					}
					mu.Lock()
					if owner, ok := inuse[pa]; ok {
						errorHere(test, "page %x handed to hart %d while owned by hart %d", pa, c.id, owner)
					}
					inuse[pa] = c.id
					mu.Unlock()

					page := k.Page(pa)
					for j := range page {
						page[j] = byte(c.id)
					}
					mine = append(mine, pa)
				} else if len(mine) > 0 {
					pa := mine[len(mine)-1]
					mine = mine[:len(mine)-1]
					if !allJunk(k.Page(pa), byte(c.id)) {
						errorHere(test, "page %x clobbered while owned by hart %d", pa, c.id)
					}
					mu.Lock()
					delete(inuse, pa)
					mu.Unlock()
					k.Kfree(c, pa)
				}
			}
			for _, pa := range mine {
				mu.Lock()
				delete(inuse, pa)
				mu.Unlock()
				k.Kfree(c, pa)
			}
		}(c)
	}
	wg.Wait()

	if n := k.Nfree(harts[0]); n != npages {
		errorHere(test, "Nfree = %d after all frees, expected %d", n, npages)
	}
}

// Draining the allocator from every hart at once yields each page once.
func TestKallocDrainConcurrent(test *testing.T) {
	const npages = 256
	k, harts := newTestKmem(test, npages, NCPU)

	got := make([][]uintptr, len(harts))
	var wg sync.WaitGroup
	for _, c := range harts {
		wg.Add(1)
		go func(c *Cpu) {
			defer wg.Done()
			for {
				pa, err := k.Kalloc(c)
				if err != nil {
					return
				}
				got[c.id] = append(got[c.id], pa)
			}
		}(c)
	}
	wg.Wait()

	seen := make(map[uintptr]bool)
	for _, ps := range got {
		for _, pa := range ps {
			if seen[pa] {
				errorHere(test, "page %x allocated twice", pa)
			}
			seen[pa] = true
		}
	}
	if len(seen) != npages {
		errorHere(test, "allocated %d distinct pages, expected %d", len(seen), npages)
	}
	if n := k.Nfree(harts[0]); n != 0 {
		errorHere(test, "Nfree = %d after drain", n)
	}
}
