package bench

import (
	"encoding/json"
	"time"
)

// Report is the JSON document published to the sinks and served by the
// status API.
type Report struct {
	Driver        string         `json:"driver"`
	Host          string         `json:"host"`
	Rack          int            `json:"rack"`
	Slot          int            `json:"slot"`
	Bus           string         `json:"bus"`
	Tags          int            `json:"tags"`
	Cycles        int            `json:"cycles"`
	CycleTimeMs   int64          `json:"cycle_time_ms"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	ConnectMs     int64          `json:"connect_ms"`
	DisconnectMs  int64          `json:"disconnect_ms"`
	CompletedRuns int            `json:"completed_cycles"`
	ReadTimesMs   []int64        `json:"read_times_ms"`
	Summary       Summary        `json:"summary"`
	LastValues    map[string]any `json:"last_values,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// Scenario describes the run for reporting.
type Scenario struct {
	Host      string
	Rack      int
	Slot      int
	Bus       string
	Cycles    int
	CycleTime time.Duration
}

// NewReport builds a report from a finished run. runErr is the error Run
// returned, if any.
func NewReport(sc Scenario, specs []TagSpec, res *Results, started time.Time, runErr error) *Report {
	rep := &Report{
		Driver:      res.Driver,
		Host:        sc.Host,
		Rack:        sc.Rack,
		Slot:        sc.Slot,
		Bus:         sc.Bus,
		Tags:        len(specs),
		Cycles:      sc.Cycles,
		CycleTimeMs: sc.CycleTime.Milliseconds(),
		StartedAt:   started.UTC(),
		FinishedAt:  started.Add(res.Elapsed).UTC(),

		ConnectMs:     res.ConnectionTime.Milliseconds(),
		DisconnectMs:  res.DisconnectionTime.Milliseconds(),
		CompletedRuns: res.CycleCount,
		ReadTimesMs:   res.ReadMillis(),
		Summary:       res.Summary(),
	}
	if len(res.LastValues) > 0 {
		rep.LastValues = make(map[string]any, len(res.LastValues))
		for name, v := range res.LastValues {
			rep.LastValues[name] = v.GoValue()
		}
	}
	if runErr != nil {
		rep.Error = runErr.Error()
	}
	return rep
}

// OK reports whether the run completed without error.
func (r *Report) OK() bool { return r.Error == "" }

// JSON encodes the report.
func (r *Report) JSON() ([]byte, error) {
	return json.Marshal(r)
}
