package constraint

// floorDiv returns floor(a/b) for b != 0.
func floorDiv(a, b int) int {
	if b == 0 {
		panic("floorDiv: zero divisor")
	}
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// ceilDiv returns ceil(a/b) for b != 0.
func ceilDiv(a, b int) int {
	if b == 0 {
		panic("ceilDiv: zero divisor")
	}
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}

// termRange is the contribution range of c·x.
func termRange(c, min, max int) (lo, hi int) {
	if c > 0 {
		return c * min, c * max
	}
	return c * max, c * min
}
