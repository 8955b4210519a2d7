package kernel

const (
	NCPU    = 8    // maximum number of CPUs
	NBUF    = 30   // size of each bucket's buffer array (MAXOPBLOCKS*3)
	NBUCKET = 7    // buffer cache hash buckets
	BSIZE   = 1024 // block size
	ROOTDEV = 1    // device number of file system root disk
	FSSIZE  = 2000 // size of file system in blocks
)

// NODEV marks a buffer slot that is not bound to any block.
const NODEV = ^uint32(0)
