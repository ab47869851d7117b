package bench

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"s7bench/s7"
)

func msDurations(ms ...int) []time.Duration {
	out := make([]time.Duration, len(ms))
	for i, v := range ms {
		out[i] = time.Duration(v)*time.Millisecond + 300*time.Microsecond
	}
	return out
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name  string
		times []time.Duration
		want  Summary
	}{
		{"empty", nil, Summary{}},
		{"single", msDurations(7), Summary{7, 7, 7, 7}},
		{"integer average", msDurations(1, 2), Summary{1, 1, 2, 2}},
		{"p95 nearest rank", msDurations(10, 1, 2, 3, 4, 5, 6, 7, 8, 9, 11, 12, 13, 14, 15, 16, 17, 18, 19, 100),
			Summary{AvgMillis: 14, MinMillis: 1, MaxMillis: 100, P95Millis: 19}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Results{ReadTimes: tt.times, CycleCount: len(tt.times)}
			if got := r.Summary(); got != tt.want {
				t.Errorf("Summary() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLines(t *testing.T) {
	r := &Results{
		ConnectionTime:    12 * time.Millisecond,
		DisconnectionTime: 3 * time.Millisecond,
		ReadTimes:         msDurations(4, 6),
		CycleCount:        2,
	}
	if got := r.Line(); got != "  --> 12 ms connect, 3 ms disconnect, 5 ms avg read time" {
		t.Errorf("Line() = %q", got)
	}
	if got := ScenarioLine(19, 50, 300*time.Millisecond); got != "Scenario: 19 tags, 50 cycles, 300ms intervals" {
		t.Errorf("ScenarioLine() = %q", got)
	}
}

func TestNewReport(t *testing.T) {
	specs, _ := ParseTagList("%DB1:0:INT|INT;5\n")
	res := &Results{
		Driver:         "batched",
		ConnectionTime: 2 * time.Millisecond,
		ReadTimes:      msDurations(3),
		CycleCount:     1,
		Elapsed:        time.Second,
		LastValues:     map[string]s7.Value{"tag-1": s7.Int16Value(5)},
	}
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sc := Scenario{Host: "10.0.0.1", Slot: 1, Bus: "sim", Cycles: 1, CycleTime: 300 * time.Millisecond}

	rep := NewReport(sc, specs, res, started, errors.New("boom"))
	if rep.OK() || rep.Error != "boom" {
		t.Errorf("Error = %q", rep.Error)
	}
	if !rep.FinishedAt.Equal(started.Add(time.Second)) {
		t.Errorf("FinishedAt = %v", rep.FinishedAt)
	}

	data, err := rep.JSON()
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["driver"] != "batched" || decoded["tags"] != float64(1) || decoded["cycle_time_ms"] != float64(300) {
		t.Errorf("decoded = %v", decoded)
	}
	if !strings.Contains(string(data), `"last_values":{"tag-1":5}`) {
		t.Errorf("json = %s", data)
	}
}
