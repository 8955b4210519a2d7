package kernel

import (
	"sync"
	"sync/atomic"
)

// Disk is the driver the buffer cache uses to fill and flush slots.
// Rw transfers b's data to or from block b.Blockno() of device b.Dev()
// and returns once the transfer is done, suspending the caller meanwhile.
type Disk interface {
	Rw(b *Buf, write bool)
}

// RamDisk is a memory-backed disk: every device number gets its own
// image of nblocks blocks, created zeroed on first use.
type RamDisk struct {
	lock    sync.Mutex
	nblocks uint32
	images  map[uint32][]byte

	reads  atomic.Uint64
	writes atomic.Uint64
}

// NewRamDisk returns a disk of nblocks blocks per device.
func NewRamDisk(nblocks int) *RamDisk {
	if nblocks <= 0 {
		kpanic("ramdisk: size")
	}
	return &RamDisk{
		nblocks: uint32(nblocks),
		images:  make(map[uint32][]byte),
	}
}

func (d *RamDisk) image(dev uint32) []byte {
	img, ok := d.images[dev]
	if !ok {
		img = make([]byte, int(d.nblocks)*BSIZE)
		d.images[dev] = img
	}
	return img
}

// Rw copies b's data to or from its block on the disk image.
func (d *RamDisk) Rw(b *Buf, write bool) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if b.blockno >= d.nblocks {
		kpanic("virtio_disk_rw: blockno")
	}
	off := int(b.blockno) * BSIZE
	img := d.image(b.dev)
	if write {
		copy(img[off:off+BSIZE], b.data[:])
		d.writes.Add(1)
	} else {
		copy(b.data[:], img[off:off+BSIZE])
		d.reads.Add(1)
	}
}

// Block returns a copy of the on-disk contents of (dev, blockno).
func (d *RamDisk) Block(dev, blockno uint32) []byte {
	d.lock.Lock()
	defer d.lock.Unlock()

	if blockno >= d.nblocks {
		kpanic("ramdisk: blockno")
	}
	off := int(blockno) * BSIZE
	out := make([]byte, BSIZE)
	copy(out, d.image(dev)[off:off+BSIZE])
	return out
}

// Load overwrites the on-disk contents of (dev, blockno) with data.
func (d *RamDisk) Load(dev, blockno uint32, data []byte) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if blockno >= d.nblocks || len(data) > BSIZE {
		kpanic("ramdisk: load")
	}
	off := int(blockno) * BSIZE
	copy(d.image(dev)[off:off+BSIZE], data)
}

// Reads and Writes count completed transfers.
func (d *RamDisk) Reads() uint64  { return d.reads.Load() }
func (d *RamDisk) Writes() uint64 { return d.writes.Load() }
