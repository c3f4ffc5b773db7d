package features

// trailingWindows returns, for every position of a day-sorted group, the
// index range [lo, hi) of members whose day falls in (day-window, day].
// Members on the same day share one window, so ties include each other.
func trailingWindows(days []int, window int) (lo, hi []int) {
	n := len(days)
	lo = make([]int, n)
	hi = make([]int, n)

	l := 0
	for i := 0; i < n; {
		j := i
		for j < n && days[j] == days[i] {
			j++
		}
		for days[l] <= days[i]-window {
			l++
		}
		for k := i; k < j; k++ {
			lo[k] = l
			hi[k] = j
		}
		i = j
	}
	return lo, hi
}

// slidingDistinct counts distinct keys inside each window. Both window
// bounds must be non-decreasing, which trailingWindows guarantees.
func slidingDistinct(keys []string, lo, hi []int) []int {
	out := make([]int, len(keys))
	counts := make(map[string]int)
	l, h := 0, 0
	for p := range keys {
		for ; h < hi[p]; h++ {
			counts[keys[h]]++
		}
		for ; l < lo[p]; l++ {
			counts[keys[l]]--
			if counts[keys[l]] == 0 {
				delete(counts, keys[l])
			}
		}
		out[p] = len(counts)
	}
	return out
}
