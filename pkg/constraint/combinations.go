package constraint

import "sync"

type choose struct{ n, k int }

var (
	combinationsMu    sync.Mutex
	combinationsCache = map[choose]float64{}
)

// Combinations returns the binomial coefficient C(n, k) as a float64 so that
// large counts saturate instead of overflowing. Results are cached; the cache
// is safe for concurrent use.
func Combinations(n, k int) float64 {
	if k < 0 || n < 0 || k > n {
		return 0
	}
	if 2*k > n {
		k = n - k
	}
	key := choose{n, k}

	combinationsMu.Lock()
	defer combinationsMu.Unlock()
	if r, ok := combinationsCache[key]; ok {
		return r
	}
	r := 1.0
	for i := 1; i <= k; i++ {
		r = r * float64(n-k+i) / float64(i)
	}
	combinationsCache[key] = r
	return r
}

// eachCombination calls fn with every k-subset of [0,n) in lexicographic
// order. The slice passed to fn is reused between calls. Enumeration stops
// when fn returns false; the result reports whether it ran to the end.
func eachCombination(n, k int, fn func(idx []int) bool) bool {
	if k < 0 || k > n {
		return true
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		if !fn(idx) {
			return false
		}
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return true
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
