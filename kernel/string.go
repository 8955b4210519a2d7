package kernel

func memset(dst []byte, c int, n uint) {
	b := byte(c)
	for i := uint(0); i < n; i++ {
		dst[i] = b
	}
}
