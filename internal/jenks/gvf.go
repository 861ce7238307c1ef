package jenks

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GoodnessOfVarianceFit scores a classification between 0 and 1:
// (SDAM - SDCM) / SDAM, where SDAM is the squared deviation of all values
// from the array mean and SDCM the sum of squared deviations from each
// class mean. Values are assigned to the first class whose upper bound
// is >= the value.
func GoodnessOfVarianceFit(values, breaks []float64) float64 {
	if len(values) == 0 || len(breaks) == 0 {
		return 0
	}

	mean := stat.Mean(values, nil)
	var sdam float64
	sums := make([]float64, len(breaks))
	sqs := make([]float64, len(breaks))
	counts := make([]float64, len(breaks))
	for _, v := range values {
		d := v - mean
		sdam += d * d

		c := sort.SearchFloat64s(breaks, v)
		if c >= len(breaks) {
			c = len(breaks) - 1
		}
		sums[c] += v
		sqs[c] += v * v
		counts[c]++
	}
	if sdam == 0 {
		return 1
	}

	var sdcm float64
	for c := range breaks {
		if counts[c] == 0 {
			continue
		}
		sdcm += sqs[c] - sums[c]*sums[c]/counts[c]
	}
	return (sdam - sdcm) / sdam
}
