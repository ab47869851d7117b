package bench

import (
	"fmt"
	"sort"
	"time"

	"s7bench/s7"
)

// Results is the outcome of one benchmark run.
type Results struct {
	Driver            string
	ConnectionTime    time.Duration
	DisconnectionTime time.Duration
	CycleCount        int             // completed read cycles
	ReadTimes         []time.Duration // one entry per completed cycle
	Elapsed           time.Duration   // wall time from connect to disconnect
	LastValues        map[string]s7.Value
}

// Summary holds whole-millisecond read time statistics.
type Summary struct {
	AvgMillis int64 `json:"avg_ms"`
	MinMillis int64 `json:"min_ms"`
	MaxMillis int64 `json:"max_ms"`
	P95Millis int64 `json:"p95_ms"`
}

// ReadMillis returns the read times truncated to whole milliseconds.
func (r *Results) ReadMillis() []int64 {
	out := make([]int64, len(r.ReadTimes))
	for i, d := range r.ReadTimes {
		out[i] = d.Milliseconds()
	}
	return out
}

// Summary computes the statistics. The average is the integer quotient of
// the summed per-cycle milliseconds and the cycle count.
func (r *Results) Summary() Summary {
	ms := r.ReadMillis()
	if len(ms) == 0 {
		return Summary{}
	}

	var total int64
	for _, v := range ms {
		total += v
	}

	sorted := append([]int64(nil), ms...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return Summary{
		AvgMillis: total / int64(len(ms)),
		MinMillis: sorted[0],
		MaxMillis: sorted[len(sorted)-1],
		P95Millis: percentile(sorted, 95),
	}
}

// percentile returns the nearest-rank percentile of an ascending slice.
func percentile(sorted []int64, p int) int64 {
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

// Line formats the one-line run summary.
func (r *Results) Line() string {
	return fmt.Sprintf("  --> %d ms connect, %d ms disconnect, %d ms avg read time",
		r.ConnectionTime.Milliseconds(), r.DisconnectionTime.Milliseconds(), r.Summary().AvgMillis)
}

// ScenarioLine formats the scenario header printed before the runs.
func ScenarioLine(tags, cycles int, cycleTime time.Duration) string {
	return fmt.Sprintf("Scenario: %d tags, %d cycles, %dms intervals", tags, cycles, cycleTime.Milliseconds())
}
