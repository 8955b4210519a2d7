package kernel

// Buf is one buffer cache slot: an in-memory copy of a disk block.
type Buf struct {
	// bucket lock must be held when using these:
	dev     uint32
	blockno uint32
	refcnt  int
	bucket  *bucket

	lock  Sleeplock
	valid bool // has data been read from disk?
	data  [BSIZE]byte
}

// Dev and Blockno are stable while the caller holds a reference.
func (b *Buf) Dev() uint32     { return b.dev }
func (b *Buf) Blockno() uint32 { return b.blockno }

// Data is the block contents. Only the holder of b's lock may use it.
func (b *Buf) Data() []byte { return b.data[:] }
