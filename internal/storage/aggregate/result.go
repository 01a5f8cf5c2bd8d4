package aggregate

import (
	"fmt"
	"io"
	"sort"
)

// Result represents the statistics of one series over an event window.
type Result struct {
	// Key identifies the series, e.g. "Cal/energy/12".
	Key string

	// Event window [EventStart, EventEnd). EventEnd is zero for an
	// unbounded window.
	EventStart uint64
	EventEnd   uint64

	// Basic statistics (always present)
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Mean  float64

	// Percentiles (optional, nil if not enabled)
	P50 *float64
	P90 *float64
	P95 *float64
	P99 *float64

	// Events of the first and last value
	FirstEvent uint64
	LastEvent  uint64
}

// IsEmpty returns true if no values were aggregated.
func (r *Result) IsEmpty() bool {
	return r.Count == 0
}

// HasPercentiles returns true if percentile data is available.
func (r *Result) HasPercentiles() bool {
	return r.P50 != nil
}

// SetPercentiles sets all percentile values.
func (r *Result) SetPercentiles(p50, p90, p95, p99 float64) {
	r.P50 = &p50
	r.P90 = &p90
	r.P95 = &p95
	r.P99 = &p99
}

// SortResults orders results by key and then by window start.
func SortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Key != results[j].Key {
			return results[i].Key < results[j].Key
		}
		return results[i].EventStart < results[j].EventStart
	})
}

// PrintResults writes one line per result.
func PrintResults(w io.Writer, results []Result) {
	for _, r := range results {
		fmt.Fprintf(w, "%-24s events=[%d,%d] n=%d mean=%.4g min=%.4g max=%.4g",
			r.Key, r.FirstEvent, r.LastEvent, r.Count, r.Mean, r.Min, r.Max)
		if r.HasPercentiles() {
			fmt.Fprintf(w, " p50=%.4g p90=%.4g p95=%.4g p99=%.4g", *r.P50, *r.P90, *r.P95, *r.P99)
		}
		fmt.Fprintln(w)
	}
}
