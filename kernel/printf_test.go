package kernel

import (
	"bytes"
	"testing"
)

func TestPrintf(test *testing.T) {
	var out bytes.Buffer
	old := SetConsole(&out)
	defer SetConsole(old)

	Printf("%d %d %d|%x|%p|%s|%c%c|%%|%q\n", 0, -42, uint32(7), uintptr(0xbeef), uintptr(0x80000000), "kmem", 'o', 'k')

	want := "0 -42 7|beef|0x0000000080000000|kmem|ok|%|%q\n"
	if got := out.String(); got != want {
		errorHere(test, "got %q, expected %q", got, want)
	}
}

func TestKpanicReports(test *testing.T) {
	var out bytes.Buffer
	old := SetConsole(&out)
	defer SetConsole(old)

	expectPanic(test, "kfree", func() { kpanic("kfree") })
	if got := out.String(); got != "panic: kfree\n" {
		errorHere(test, "console got %q", got)
	}
}
