// Package stats computes timing statistics from parsed capture logs and
// formats the analysis report.
//
// This file holds the descriptive statistics shared by every report section.
package stats

import (
	"math"

	"github.com/influxdata/tdigest"
)

// digestCompression matches the ~100 centroid digests used elsewhere for
// latency percentiles; capture logs rarely hold more than a few hundred
// thousand frames.
const digestCompression = 100

// Distribution summarizes one numeric series.
type Distribution struct {
	Count int
	Mean  float64
	Max   float64

	// StdDev is the sample standard deviation. It is undefined below two
	// samples, in which case HasStdDev is false and StdDev is zero.
	StdDev    float64
	HasStdDev bool

	// Percentiles from a t-digest.
	P50 float64
	P95 float64
	P99 float64
}

// Summarize computes a Distribution. An empty series yields the zero value.
func Summarize(values []float64) Distribution {
	d := Distribution{Count: len(values)}
	if len(values) == 0 {
		return d
	}

	d.Mean = Mean(values)
	d.Max = values[0]
	td := tdigest.NewWithCompression(digestCompression)
	for _, v := range values {
		if v > d.Max {
			d.Max = v
		}
		td.Add(v, 1)
	}

	d.StdDev, d.HasStdDev = SampleStdDev(values)

	d.P50 = td.Quantile(0.50)
	d.P95 = td.Quantile(0.95)
	d.P99 = td.Quantile(0.99)

	return d
}

// Mean returns the arithmetic mean, or 0 for an empty series.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStdDev returns the sample (n-1) standard deviation.
// ok is false when there are fewer than two samples.
func SampleStdDev(values []float64) (stddev float64, ok bool) {
	if len(values) < 2 {
		return 0, false
	}
	mean := Mean(values)
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)-1)), true
}

// PercentDiff returns (value-base)/base*100. ok is false when base is zero.
func PercentDiff(value, base float64) (pct float64, ok bool) {
	if base == 0 {
		return 0, false
	}
	return (value - base) / base * 100, true
}

// ints converts millisecond counts for the float helpers.
func ints(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
