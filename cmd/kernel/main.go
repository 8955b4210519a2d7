package main

import (
	"os"
	"sync"

	"xv6-kcore/kernel"
)

type Counter struct {
	lock *kernel.Spinlock
	num  int
}

var count Counter

func main() {
	boot := kernel.NewCpu(0)

	kernel.Printf("kmeminit... ")
	kmem := kernel.Kinit(kernel.DefaultMemlayout(), kernel.NCPU, boot)
	kernel.Printf("OK\n")

	kernel.Printf("binit...  ")
	disk := kernel.NewRamDisk(kernel.FSSIZE)
	bcache := kernel.Binit(disk, kernel.NBUCKET, kernel.NBUF)
	kernel.Printf("OK\n")

	kernel.Printf("initlock...")
	count.lock = kernel.NewSpinlock("count")
	kernel.Printf("OK\n")

	harts := make([]*kernel.Cpu, kernel.NCPU)
	harts[0] = boot
	for i := 1; i < len(harts); i++ {
		harts[i] = kernel.NewCpu(i)
	}

	ok := kallocTest(kmem, harts)
	ok = spinlockTest(harts) && ok
	ok = bcacheTest(bcache, disk, harts) && ok
	if !ok {
		os.Exit(1)
	}
}

// onHarts runs fn once on every hart in parallel.
func onHarts(harts []*kernel.Cpu, fn func(c *kernel.Cpu)) {
	var wg sync.WaitGroup
	for _, c := range harts {
		wg.Add(1)
		go func(c *kernel.Cpu) {
			defer wg.Done()
			fn(c)
		}(c)
	}
	wg.Wait()
}

func kallocTest(kmem *kernel.Kmem, harts []*kernel.Cpu) bool {
	kernel.Printf("--- kalloc test ---\n")

	boot := harts[0]
	before := kmem.Freemem(boot)
	pages := make([][]uintptr, len(harts))
	onHarts(harts, func(c *kernel.Cpu) {
		for {
			pa, err := kmem.Kalloc(c)
			if err != nil {
				break
			}
			pages[c.ID()] = append(pages[c.ID()], pa)
		}
	})

	n := 0
	for id, ps := range pages {
		kernel.Printf("hart %d: %d pages\n", id, len(ps))
		n += len(ps)
	}
	kernel.Printf("allocate %d KB memory\n", n*4)

	onHarts(harts, func(c *kernel.Cpu) {
		for _, pa := range pages[c.ID()] {
			kmem.Kfree(c, pa)
		}
	})

	after := kmem.Freemem(boot)
	if n != kmem.Npages() || after != before {
		kernel.Printf("kalloc test: FAIL (allocated %d of %d, free %d -> %d)\n", n, kmem.Npages(), before, after)
		return false
	}
	kernel.Printf("kalloc test: OK\n")
	return true
}

func spinlockTest(harts []*kernel.Cpu) bool {
	kernel.Printf("--- spinlock test ---\n")
	onHarts(harts, func(c *kernel.Cpu) {
		for i := 0; i < 1000; i++ {
			count.lock.Acquire(c)
			count.num++
			count.lock.Release(c)
		}
	})
	expected := 1000 * len(harts)
	kernel.Printf("Expected Count: %d, Real Count: %d\n", expected, count.num)
	return count.num == expected
}

func bcacheTest(bcache *kernel.Bcache, disk *kernel.RamDisk, harts []*kernel.Cpu) bool {
	kernel.Printf("--- bcache test ---\n")

	const nblocks = 64
	failed := make([]bool, len(harts))
	onHarts(harts, func(c *kernel.Cpu) {
		p := kernel.NewProc("bcachetest", c)
		for blockno := uint32(c.ID()); blockno < nblocks; blockno += uint32(len(harts)) {
			b, err := bcache.Bread(p, kernel.ROOTDEV, blockno)
			if err != nil {
				failed[c.ID()] = true
				return
			}
			data := b.Data()
			for i := range data {
				data[i] = byte(blockno)
			}
			bcache.Bwrite(p, b)
			bcache.Brelse(p, b)
		}
		for blockno := uint32(c.ID()); blockno < nblocks; blockno += uint32(len(harts)) {
			b, err := bcache.Bread(p, kernel.ROOTDEV, blockno)
			if err != nil {
				failed[c.ID()] = true
				return
			}
			if b.Data()[0] != byte(blockno) || disk.Block(kernel.ROOTDEV, blockno)[kernel.BSIZE-1] != byte(blockno) {
				failed[c.ID()] = true
			}
			bcache.Brelse(p, b)
		}
	})

	st := bcache.Stats()
	kernel.Printf("hits %d misses %d reads %d writes %d\n", st.Hits, st.Misses, st.Reads, st.Writes)
	for id, f := range failed {
		if f {
			kernel.Printf("bcache test: FAIL on hart %d\n", id)
			return false
		}
	}
	kernel.Printf("bcache test: OK\n")
	return true
}
