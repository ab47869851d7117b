package logging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	return string(content)
}

func TestDebugLogger_Filter(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		logged []string
		hidden []string
	}{
		{"empty logs all", "", []string{"s7", "bench", "kafka"}, nil},
		{"single", "bench", []string{"bench"}, []string{"s7", "mqtt"}},
		{"s7 includes gos7", "S7", []string{"s7", "gos7"}, []string{"driver"}},
		{"sinks alias", "sinks, driver", []string{"mqtt", "kafka", "valkey", "push", "driver"}, []string{"s7"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "debug.log")
			logger, err := NewDebugLogger(path)
			if err != nil {
				t.Fatalf("NewDebugLogger failed: %v", err)
			}
			logger.SetFilter(tt.filter)
			for _, p := range append(tt.logged, tt.hidden...) {
				logger.Log(p, "message for %s", p)
			}
			logger.Close()

			str := readLog(t, path)
			for _, p := range tt.logged {
				if !strings.Contains(str, "["+p+"] message for "+p) {
					t.Errorf("expected %s message in output", p)
				}
			}
			for _, p := range tt.hidden {
				if strings.Contains(str, "message for "+p+"\n") {
					t.Errorf("unexpected %s message in output", p)
				}
			}
			if !strings.Contains(str, "[debug] session ended") {
				t.Error("missing footer")
			}
		})
	}
}

func TestDebugLogger_UnknownFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	logger, err := NewDebugLogger(path)
	if err != nil {
		t.Fatalf("NewDebugLogger failed: %v", err)
	}
	logger.SetFilter("bench,s7x")
	logger.Close()

	str := readLog(t, path)
	if !strings.Contains(str, "unknown filter names ignored: s7x") {
		t.Errorf("unknown filter not reported:\n%s", str)
	}
	if strings.Contains(str, "ignored: bench") {
		t.Error("known protocol reported as unknown")
	}
}

func TestDebugLogger_Packets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	logger, err := NewDebugLogger(path)
	if err != nil {
		t.Fatalf("NewDebugLogger failed: %v", err)
	}

	logger.Packet("s7", "TX", []byte{0x03, 0x00, 0x00, 0x16, 0x11, 0xE0})
	logger.Packet("s7", "RX", nil)
	logger.Close()
	logger.Packet("s7", "TX", []byte{0xFF})

	str := readLog(t, path)
	for _, want := range []string{
		"[s7] TX (6 bytes):",
		"0000: 03 00 00 16 11 E0",
		"[s7] RX (0 bytes):",
		"(empty)",
	} {
		if !strings.Contains(str, want) {
			t.Errorf("output missing %q:\n%s", want, str)
		}
	}
	if strings.Contains(str, "0000: FF") {
		t.Error("packet written after Close")
	}
}

func TestDescribeFrame(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{
			name: "connection request",
			data: []byte{0x03, 0x00, 0x00, 0x16, 0x11, 0xE0, 0x00, 0x00, 0x00, 0x01, 0x00,
				0xC1, 0x02, 0x01, 0x00, 0xC2, 0x02, 0x01, 0x01, 0xC0, 0x01, 0x0A},
			want: "COTP CR",
		},
		{
			name: "setup communication job",
			data: []byte{0x03, 0x00, 0x00, 0x19, 0x02, 0xF0, 0x80,
				0x32, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x08, 0x00, 0x00,
				0xF0, 0x00, 0x00, 0x01, 0x00, 0x01, 0x03, 0xC0},
			want: "COTP DT | S7 Job ref=0 SetupComm pdu=960",
		},
		{
			name: "read var ack with error",
			data: []byte{0x03, 0x00, 0x00, 0x15, 0x02, 0xF0, 0x80,
				0x32, 0x03, 0x00, 0x00, 0x00, 0x07, 0x00, 0x02, 0x00, 0x00, 0x85, 0x00,
				0x04, 0x03},
			want: "COTP DT | S7 AckData ref=7 error=0x8500 ReadVar items=3",
		},
		{
			name: "length mismatch",
			data: []byte{0x03, 0x00, 0x00, 0x20, 0x02, 0xF0, 0x80},
			want: "",
		},
		{
			name: "raw payload",
			data: []byte{0x00, 0x2A, 0x01, 0x02, 0x03, 0x04, 0x05},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeFrame(tt.data); got != tt.want {
				t.Errorf("describeFrame = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHexDump(t *testing.T) {
	data := []byte("S7 PLC read benchmark")
	dump := hexDump(data)

	lines := strings.Split(dump, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), dump)
	}
	if !strings.HasPrefix(lines[0], "    0000: 53 37 20 50") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasSuffix(lines[0], "S7 PLC read benc") {
		t.Errorf("line 0 ascii = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "    0010: ") || !strings.HasSuffix(lines[1], "hmark") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestGlobalDebugLogger(t *testing.T) {
	// Nil global logger must be a no-op.
	SetGlobalDebugLogger(nil)
	DebugLog("s7", "dropped")
	DebugTX("s7", []byte{1})

	path := filepath.Join(t.TempDir(), "debug.log")
	logger, err := NewDebugLogger(path)
	if err != nil {
		t.Fatalf("NewDebugLogger failed: %v", err)
	}
	SetGlobalDebugLogger(logger)
	defer SetGlobalDebugLogger(nil)

	DebugConnect("gos7", "plc:102")
	DebugDisconnect("gos7", "plc:102", "closed by client")
	DebugError("driver", "batch", errors.New("boom"))
	DebugConnectError("s7", "10.0.0.1:102", errors.New("refused"))
	DebugTX("s7", []byte{0x03, 0x00, 0x00, 0x07, 0x02, 0xF0, 0x80})
	logger.Close()

	str := readLog(t, path)
	for _, want := range []string{"CONNECT FAILED to 10.0.0.1:102: refused", "TX (7 bytes) COTP DT:", "CONNECT to plc:102", "DISCONNECT from plc:102: closed by client", "ERROR in batch: boom"} {
		if !strings.Contains(str, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
