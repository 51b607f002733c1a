package scoring

import "sort"

// PercentileRanks returns each value's percentile rank on a 0-100 scale.
//
// Ranking is fractional: tied values share the average of the ordinal
// positions they occupy, so two equal values always receive the same
// percentile. The rank is avgPosition / n * 100, which makes the largest
// value 100 and a single value 100.
func PercentileRanks(values []float64) []float64 {
	n := len(values)
	ranks := make([]float64, n)
	if n == 0 {
		return ranks
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	for start := 0; start < n; {
		end := start
		for end+1 < n && values[order[end+1]] == values[order[start]] {
			end++
		}
		// Positions are 1-based: start+1 .. end+1
		avg := float64(start+end+2) / 2
		pct := avg / float64(n) * 100
		for k := start; k <= end; k++ {
			ranks[order[k]] = pct
		}
		start = end + 1
	}

	return ranks
}

// MinRanks ranks values in descending order where ties share the lowest
// rank of their group (1, 2, 2, 4).
func MinRanks(values []float64) []int {
	ranks := make([]int, len(values))
	for i, v := range values {
		rank := 1
		for _, other := range values {
			if other > v {
				rank++
			}
		}
		ranks[i] = rank
	}
	return ranks
}
