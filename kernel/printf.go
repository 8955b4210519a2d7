package kernel

import (
	"io"
	"os"
	"sync"
)

// formatted console output -- printf, panic.

var pr struct {
	lock sync.Mutex // serializes whole lines from concurrent harts
	uart io.Writer
	buf  []byte
}

func init() {
	pr.uart = os.Stdout
}

// SetConsole redirects kernel console output to w and returns the previous
// sink.
func SetConsole(w io.Writer) io.Writer {
	pr.lock.Lock()
	defer pr.lock.Unlock()
	old := pr.uart
	pr.uart = w
	return old
}

func uart_putc(c byte) {
	pr.buf = append(pr.buf, c)
}

var digits = "0123456789abcdef"

func printInt(xx uint64, base uint64, sign bool) {
	// A uint64 needs at most 20 decimal digits.
	var buf [20]byte
	i := 0

	x := xx
	if sign && int64(xx) < 0 {
		x = uint64(-int64(xx))
	}

	for {
		buf[i] = digits[x%base]
		i++
		x /= base
		if x == 0 {
			break
		}
	}

	if sign && int64(xx) < 0 {
		uart_putc('-')
	}

	for i = i - 1; i >= 0; i-- {
		uart_putc(buf[i])
	}
}

func printPtr(x uint64) {
	uart_putc('0')
	uart_putc('x')
	for i := 0; i < 16; i++ {
		uart_putc(digits[x>>60])
		x <<= 4
	}
}

func printString(str string) {
	for i := 0; i < len(str); i++ {
		uart_putc(str[i])
	}
}

// toUint widens any integer argument; ok is false for non-integers.
func toUint(arg interface{}) (v uint64, signed bool, ok bool) {
	switch v := arg.(type) {
	case int:
		return uint64(v), true, true
	case int32:
		return uint64(v), true, true
	case int64:
		return uint64(v), true, true
	case uint:
		return uint64(v), false, true
	case uint32:
		return uint64(v), false, true
	case uint64:
		return v, false, true
	case uintptr:
		return uint64(v), false, true
	case byte:
		return uint64(v), false, true
	}
	return 0, false, false
}

// Printf prints to the console. Only understands %d, %x, %p, %s, %c.
func Printf(format string, args ...interface{}) {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	argIdx := 0
	next := func() interface{} {
		if argIdx >= len(args) {
			return nil
		}
		a := args[argIdx]
		argIdx++
		return a
	}

	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 >= len(format) {
			uart_putc(format[i])
			continue
		}
		i++
		switch format[i] {
		case 'd':
			if v, signed, ok := toUint(next()); ok {
				printInt(v, 10, signed)
			} else {
				printString("%!d")
			}
		case 'x':
			if v, _, ok := toUint(next()); ok {
				printInt(v, 16, false)
			} else {
				printString("%!x")
			}
		case 'p':
			if v, _, ok := toUint(next()); ok {
				printPtr(v)
			} else {
				printString("%!p")
			}
		case 's':
			if s, ok := next().(string); ok {
				printString(s)
			} else {
				printString("(null)")
			}
		case 'c':
			switch v := next().(type) {
			case int:
				uart_putc(byte(v))
			case int32:
				uart_putc(byte(v))
			case byte:
				uart_putc(v)
			default:
				uart_putc('?')
			}
		case '%':
			uart_putc('%')
		default:
			// Print unknown % sequence to draw attention.
			uart_putc('%')
			uart_putc(format[i])
		}
	}

	pr.uart.Write(pr.buf)
	pr.buf = pr.buf[:0]
}

// kpanic reports msg on the console and halts the calling thread. Hosted
// kernels unwind with a Go panic so a test harness can recover it.
func kpanic(msg string) {
	Printf("panic: %s\n", msg)
	panic(msg)
}
