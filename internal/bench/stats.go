package bench

import (
	"slices"
	"time"
)

// Median returns the median of runs: the middle value for an odd count and
// the mean of the two middle values for an even count. Zero for no runs.
func Median(runs []time.Duration) time.Duration {
	if len(runs) == 0 {
		return 0
	}
	sorted := slices.Clone(runs)
	slices.Sort(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1] + (sorted[mid]-sorted[mid-1])/2
}

// Speedup returns without/with. The second result is false when with is
// zero and the ratio is undefined.
func Speedup(without, with time.Duration) (float64, bool) {
	if with == 0 {
		return 0, false
	}
	return float64(without) / float64(with), true
}

func summarize(phase string, runs []time.Duration, rows int64) PhaseResult {
	pr := PhaseResult{
		Phase:  phase,
		Runs:   runs,
		Median: Median(runs),
		Rows:   rows,
	}
	if len(runs) == 0 {
		return pr
	}

	pr.Min, pr.Max = runs[0], runs[0]
	var total time.Duration
	for _, d := range runs {
		pr.Min = min(pr.Min, d)
		pr.Max = max(pr.Max, d)
		total += d
	}
	pr.Mean = total / time.Duration(len(runs))
	return pr
}
