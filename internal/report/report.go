// Package report turns the raw results of a scan run into a finalized
// Report and delivers it: a console table, a JSON file and, optionally, a
// persistent store.
package report

import (
	"sort"

	"github.com/anstrom/skim/internal/scanning"
)

// Report is a finalized scan run. Results are sorted by ascending port.
type Report struct {
	Stats   scanning.Statistics
	Results []scanning.ScanResult
}

// Finalize computes duration and open-port count and sorts the results.
// The input slice is not modified.
func Finalize(results []scanning.ScanResult, stats scanning.Statistics) *Report {
	sorted := make([]scanning.ScanResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Port < sorted[j].Port
	})

	open := 0
	for i := range sorted {
		if sorted[i].IsOpen {
			open++
		}
	}

	stats.OpenPorts = open
	stats.TotalPorts = len(sorted)
	if !stats.EndTime.IsZero() && !stats.StartTime.IsZero() {
		stats.Duration = stats.EndTime.Sub(stats.StartTime)
	}

	return &Report{Stats: stats, Results: sorted}
}

// OpenResults returns the results for open ports, in port order.
func (r *Report) OpenResults() []scanning.ScanResult {
	var open []scanning.ScanResult
	for _, res := range r.Results {
		if res.IsOpen {
			open = append(open, res)
		}
	}
	return open
}
