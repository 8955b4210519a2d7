package kernel

type lockRank int

// Ranks of the kernel spinlocks, in rank order. A Cpu may only acquire a
// spinlock whose rank is strictly greater than every spinlock it already
// holds, so two locks of the same class (two bucket locks, two per-CPU free
// list locks) can never be held together.
const (
	lockRankUnknown lockRank = iota

	lockRankKmem   // per-CPU free list
	lockRankBucket // buffer cache bucket metadata
	lockRankLeaf   // locks that never nest anything
)

var lockNames = []string{
	lockRankUnknown: "Unknown",
	lockRankKmem:    "kmem",
	lockRankBucket:  "bcache",
	lockRankLeaf:    "leaf",
}

func (rank lockRank) String() string {
	if rank < 0 || int(rank) >= len(lockNames) {
		return "BAD RANK"
	}
	return lockNames[rank]
}

// acquireLockRank records rank as held by c, enforcing the ordering.
// Locks of unknown rank are not tracked.
func acquireLockRank(c *Cpu, rank lockRank) {
	if rank == lockRankUnknown {
		return
	}
	if n := len(c.held); n > 0 && c.held[n-1] >= rank {
		kpanic("acquire: lock ordering problem: " + c.held[n-1].String() + " held while taking " + rank.String())
	}
	c.held = append(c.held, rank)
}

func releaseLockRank(c *Cpu, rank lockRank) {
	if rank == lockRankUnknown {
		return
	}
	for i := len(c.held) - 1; i >= 0; i-- {
		if c.held[i] == rank {
			c.held = append(c.held[:i], c.held[i+1:]...)
			return
		}
	}
	kpanic("release: lock rank not held: " + rank.String())
}

// nheld reports how many ranked spinlocks c holds.
func nheld(c *Cpu) int {
	return len(c.held)
}
