package kernel

// Physical memory layout

// qemu -machine virt is set up like this,
// based on qemu's hw/riscv/virt.c:
//
// 00001000 -- boot ROM, provided by qemu
// 02000000 -- CLINT
// 0C000000 -- PLIC
// 10000000 -- uart0
// 10001000 -- virtio disk
// 80000000 -- boot ROM jumps here in machine mode
//             -kernel loads the kernel here
// unused RAM after 80000000.

// the kernel uses physical memory thus:
// 80000000 -- entry.S, then kernel text and data
// end -- start of kernel page allocation area
// PHYSTOP -- end RAM used by the kernel

// the kernel expects there to be RAM
// for use by the kernel and user pages
// from physical address 0x80000000 to PHYSTOP.
const (
	KERNBASE = uintptr(0x80000000)
	PHYSTOP  = KERNBASE + 128*1024*1024
)

// KERNEND stands in for the linker's end symbol: the first address after
// the kernel image.
const KERNEND = KERNBASE + 0x21c48

// Memlayout describes the RAM handed to the page allocator.
type Memlayout struct {
	Kernbase uintptr // where the kernel image is loaded
	End      uintptr // first address after kernel
	Phystop  uintptr // end of RAM used by the kernel
}

// DefaultMemlayout is the qemu virt layout.
func DefaultMemlayout() Memlayout {
	return Memlayout{
		Kernbase: KERNBASE,
		End:      KERNEND,
		Phystop:  PHYSTOP,
	}
}

// SmallMemlayout gives npages of allocatable RAM directly after a
// kernel image of one page; handy for tests and small harts counts.
func SmallMemlayout(npages int) Memlayout {
	return Memlayout{
		Kernbase: KERNBASE,
		End:      KERNBASE + PGSIZE,
		Phystop:  KERNBASE + PGSIZE + uintptr(npages)*PGSIZE,
	}
}
