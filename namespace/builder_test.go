package namespace

import "testing"

func TestBuilder(t *testing.T) {
	tests := []struct {
		name    string
		b       *Builder
		mqtt    string
		status  string
		latest  string
		history string
		channel string
		kafka   string
	}{
		{
			name:    "namespace only",
			b:       New("s7bench", ""),
			mqtt:    "s7bench/runs/batched",
			status:  "s7bench/status",
			latest:  "s7bench:batched:latest",
			history: "s7bench:batched:history",
			channel: "s7bench:runs",
			kafka:   "s7bench-runs",
		},
		{
			name:    "with selector",
			b:       New("plant", "line2"),
			mqtt:    "plant/line2/runs/batched",
			status:  "plant/line2/status",
			latest:  "plant:line2:batched:latest",
			history: "plant:line2:batched:history",
			channel: "plant:line2:runs",
			kafka:   "plant-line2-runs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := func(what, got, want string) {
				if got != want {
					t.Errorf("%s = %q, want %q", what, got, want)
				}
			}
			check("MQTTRunTopic", tt.b.MQTTRunTopic("batched"), tt.mqtt)
			check("MQTTStatusTopic", tt.b.MQTTStatusTopic(), tt.status)
			check("ValkeyLatestKey", tt.b.ValkeyLatestKey("batched"), tt.latest)
			check("ValkeyHistoryKey", tt.b.ValkeyHistoryKey("batched"), tt.history)
			check("ValkeyRunsChannel", tt.b.ValkeyRunsChannel(), tt.channel)
			check("KafkaRunsTopic", tt.b.KafkaRunsTopic(), tt.kafka)
		})
	}
}
