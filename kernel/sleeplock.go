package kernel

import "sync"

// Long-term locks for processes. A process waiting for a Sleeplock is
// suspended (its goroutine parks) rather than spinning, so the hart is free
// to run other work.
type Sleeplock struct {
	lk     sync.Mutex // protects this sleep lock
	wakeup *sync.Cond // sleep/wakeup channel for waiters
	locked bool       // Is the lock held?

	// For debugging:
	name string // Name of lock.
	pid  int    // Process holding lock
}

func initsleeplock(lk *Sleeplock, name string) {
	lk.wakeup = sync.NewCond(&lk.lk)
	lk.name = name
	lk.locked = false
	lk.pid = 0
}

// acquiresleep may suspend p, so p's hart must not hold any spinlock.
func acquiresleep(lk *Sleeplock, p *Proc) {
	if nheld(p.cpu) > 0 {
		kpanic("acquiresleep " + lk.name + ": holding spinlock")
	}
	lk.lk.Lock()
	for lk.locked {
		lk.wakeup.Wait()
	}
	lk.locked = true
	lk.pid = p.pid
	lk.lk.Unlock()
}

func releasesleep(lk *Sleeplock, p *Proc) {
	lk.lk.Lock()
	lk.locked = false
	lk.pid = 0
	lk.wakeup.Broadcast()
	lk.lk.Unlock()
}

func holdingsleep(lk *Sleeplock, p *Proc) bool {
	lk.lk.Lock()
	r := lk.locked && lk.pid == p.pid
	lk.lk.Unlock()
	return r
}
