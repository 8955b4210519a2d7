package kernel

import "sync/atomic"

// Buffer cache.
//
// The buffer cache is a fixed set of hash buckets, each holding a fixed
// array of Buf slots with cached copies of disk block contents. Caching
// disk blocks in memory reduces the number of disk reads and also provides
// a synchronization point for disk blocks used by multiple processes.
//
// Interface:
// * To get a buffer for a particular disk block, call Bread.
// * After changing buffer data, call Bwrite to write it to disk.
// * When done with the buffer, call Brelse.
// * Do not use the buffer after calling Brelse.
// * Only one process at a time can use a buffer,
//     so do not keep them longer than necessary.

type bucket struct {
	lock Spinlock // guards dev, blockno, refcnt of every slot in buf
	buf  []Buf
}

// Bcache is the buffer cache: nbucket buckets of nbuf slots over one Disk.
type Bcache struct {
	disk    Disk
	buckets []bucket

	hits   atomic.Uint64
	misses atomic.Uint64
	reads  atomic.Uint64
	writes atomic.Uint64
}

// BcacheStats counts cache activity since Binit.
type BcacheStats struct {
	Hits   uint64 // bget found the block already bound
	Misses uint64 // bget bound a free slot
	Reads  uint64 // disk fills
	Writes uint64 // disk flushes
}

// Binit creates a cache of nbucket buckets holding nbuf slots each.
func Binit(disk Disk, nbucket, nbuf int) *Bcache {
	if disk == nil || nbucket < 1 || nbuf < 1 {
		kpanic("binit")
	}
	bc := &Bcache{
		disk:    disk,
		buckets: make([]bucket, nbucket),
	}
	for i := range bc.buckets {
		bk := &bc.buckets[i]
		initlock(&bk.lock, "bcache", lockRankBucket)
		bk.buf = make([]Buf, nbuf)
		for j := range bk.buf {
			b := &bk.buf[j]
			b.dev = NODEV
			b.bucket = bk
			initsleeplock(&b.lock, "buffer")
		}
	}
	return bc
}

func (bc *Bcache) hash(blockno uint32) *bucket {
	return &bc.buckets[blockno%uint32(len(bc.buckets))]
}

// Look through blockno's bucket for block on device dev.
// If not found, allocate a buffer from the same bucket.
// In either case, return locked buffer.
func (bc *Bcache) bget(p *Proc, dev uint32, blockno uint32) (*Buf, error) {
	if dev == NODEV {
		kpanic("bget: dev")
	}
	c := mycpu(p)
	bk := bc.hash(blockno)

	bk.lock.Acquire(c)

	// Is the block already cached?
	for i := range bk.buf {
		b := &bk.buf[i]
		if b.dev == dev && b.blockno == blockno {
			b.refcnt++
			bk.lock.Release(c)
			bc.hits.Add(1)
			acquiresleep(&b.lock, p)
			return b, nil
		}
	}

	// Not cached.
	// Recycle the first unused buffer in the bucket.
	for i := range bk.buf {
		b := &bk.buf[i]
		if b.refcnt == 0 {
			b.dev = dev
			b.blockno = blockno
			b.valid = false
			b.refcnt = 1
			bk.lock.Release(c)
			bc.misses.Add(1)
			acquiresleep(&b.lock, p)
			return b, nil
		}
	}
	bk.lock.Release(c)
	return nil, ErrNoBuffers
}

// Bread returns a locked buf with the contents of the indicated block.
func (bc *Bcache) Bread(p *Proc, dev uint32, blockno uint32) (*Buf, error) {
	b, err := bc.bget(p, dev, blockno)
	if err != nil {
		return nil, err
	}
	if !b.valid {
		bc.disk.Rw(b, false)
		bc.reads.Add(1)
		b.valid = true
	}
	return b, nil
}

// Bwrite writes b's contents to disk. Must be locked.
func (bc *Bcache) Bwrite(p *Proc, b *Buf) {
	if !holdingsleep(&b.lock, p) {
		kpanic("bwrite")
	}
	bc.disk.Rw(b, true)
	bc.writes.Add(1)
}

// Brelse releases a locked buffer. The slot stays bound to its block and
// becomes a candidate for reuse once no one references it.
func (bc *Bcache) Brelse(p *Proc, b *Buf) {
	if !holdingsleep(&b.lock, p) {
		kpanic("brelse")
	}

	releasesleep(&b.lock, p)

	c := mycpu(p)
	bk := b.bucket
	bk.lock.Acquire(c)
	if b.refcnt < 1 {
		bk.lock.Release(c)
		kpanic("brelse: refcnt")
	}
	b.refcnt--
	bk.lock.Release(c)
}

// Bpin keeps b bound to its block after the caller's Brelse.
func (bc *Bcache) Bpin(p *Proc, b *Buf) {
	c := mycpu(p)
	bk := b.bucket
	bk.lock.Acquire(c)
	b.refcnt++
	bk.lock.Release(c)
}

// Bunpin drops a reference taken by Bpin.
func (bc *Bcache) Bunpin(p *Proc, b *Buf) {
	c := mycpu(p)
	bk := b.bucket
	bk.lock.Acquire(c)
	if b.refcnt < 1 {
		bk.lock.Release(c)
		kpanic("bunpin")
	}
	b.refcnt--
	bk.lock.Release(c)
}

// Refcnt reads b's reference count.
func (bc *Bcache) Refcnt(p *Proc, b *Buf) int {
	c := mycpu(p)
	bk := b.bucket
	bk.lock.Acquire(c)
	n := b.refcnt
	bk.lock.Release(c)
	return n
}

// Stats returns the cache counters.
func (bc *Bcache) Stats() BcacheStats {
	return BcacheStats{
		Hits:   bc.hits.Load(),
		Misses: bc.misses.Load(),
		Reads:  bc.reads.Load(),
		Writes: bc.writes.Load(),
	}
}

// Nbucket and Nbuf report the cache geometry.
func (bc *Bcache) Nbucket() int { return len(bc.buckets) }
func (bc *Bcache) Nbuf() int    { return len(bc.buckets[0].buf) }
