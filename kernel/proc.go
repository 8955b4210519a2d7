package kernel

import "sync/atomic"

var nextpid atomic.Int64

func allocpid() int {
	return int(nextpid.Add(1))
}

// Proc is a kernel thread: the identity that owns sleep locks, running on
// one hart at a time.
type Proc struct {
	pid  int    // Process ID
	name string // Process name (debugging)
	cpu  *Cpu   // hart this thread is running on
}

// NewProc creates a kernel thread named name running on c.
func NewProc(name string, c *Cpu) *Proc {
	if c == nil {
		kpanic("newproc: no cpu")
	}
	return &Proc{pid: allocpid(), name: name, cpu: c}
}

func (p *Proc) Pid() int     { return p.pid }
func (p *Proc) Name() string { return p.name }
func (p *Proc) Cpu() *Cpu    { return p.cpu }

// mycpu returns the hart p is running on.
func mycpu(p *Proc) *Cpu {
	return p.cpu
}
