package logging

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

const debugTimeFormat = "2006-01-02 15:04:05.000"

// protocols lists the names the benchmark logs under. Filter names outside
// this list are reported in the log header so a typo does not silently
// hide everything.
var protocols = []string{"s7", "gos7", "driver", "bench", "mqtt", "kafka", "valkey", "push", "api"}

// filterAliases expands a filter name into the protocols it covers.
var filterAliases = map[string][]string{
	"s7":    {"gos7"},
	"sinks": {"mqtt", "kafka", "valkey", "push"},
}

// DebugLogger writes PLC session traffic to a dedicated file: handshakes,
// PDU negotiation, batch layout and every TPKT frame as an annotated hex
// dump. A nil *DebugLogger discards everything.
type DebugLogger struct {
	mu      sync.Mutex
	w       io.WriteCloser
	closed  bool
	filters map[string]bool // empty logs every protocol
}

var (
	globalMu    sync.RWMutex
	globalDebug *DebugLogger
)

// NewDebugLogger truncates path and starts a new session log in it.
func NewDebugLogger(path string) (*DebugLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open debug log file: %w", err)
	}
	l := &DebugLogger{w: f, filters: map[string]bool{}}
	l.Log("debug", "session started %s", time.Now().Format(time.RFC3339))
	return l, nil
}

// SetFilter restricts logging to a comma separated list of protocols,
// e.g. "s7,bench". Aliases expand ("s7" adds "gos7", "sinks" adds every
// report sink). An empty filter logs everything.
func (l *DebugLogger) SetFilter(filter string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.filters = map[string]bool{}
	var unknown []string
	for _, name := range strings.Split(filter, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		aliases, isAlias := filterAliases[name]
		if !isAlias && !slices.Contains(protocols, name) {
			unknown = append(unknown, name)
		}
		l.filters[name] = true
		for _, a := range aliases {
			l.filters[a] = true
		}
	}
	if len(l.filters) == 0 {
		return
	}

	active := make([]string, 0, len(l.filters))
	for name := range l.filters {
		active = append(active, name)
	}
	slices.Sort(active)
	l.writeLine("debug", "filter: "+strings.Join(active, ", "))
	if len(unknown) > 0 {
		l.writeLine("debug", fmt.Sprintf("unknown filter names ignored: %s (known: %s)",
			strings.Join(unknown, ", "), strings.Join(protocols, ", ")))
	}
}

// enabled reports whether protocol passes the filter. Session markers
// always pass. Callers hold l.mu.
func (l *DebugLogger) enabled(protocol string) bool {
	if l.closed {
		return false
	}
	p := strings.ToLower(protocol)
	return len(l.filters) == 0 || l.filters[p] || p == "debug"
}

func (l *DebugLogger) writeLine(protocol, msg string) {
	fmt.Fprintf(l.w, "%s [%s] %s\n", time.Now().Format(debugTimeFormat), protocol, msg)
}

// Log writes one timestamped line tagged with protocol.
func (l *DebugLogger) Log(protocol, format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.enabled(protocol) {
		l.writeLine(protocol, fmt.Sprintf(format, args...))
	}
}

// Packet dumps a frame sent (TX) or received (RX). ISO-on-TCP frames get a
// one-line summary of their TPKT, COTP and S7 headers.
func (l *DebugLogger) Packet(protocol, direction string, data []byte) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled(protocol) {
		return
	}

	head := fmt.Sprintf("%s (%d bytes)", direction, len(data))
	if summary := describeFrame(data); summary != "" {
		head += " " + summary
	}
	l.writeLine(protocol, head+":")
	fmt.Fprintln(l.w, hexDump(data))
}

// Close writes the session footer and closes the file.
func (l *DebugLogger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.writeLine("debug", "session ended")
	l.closed = true
	return l.w.Close()
}

// hexDump renders 16 bytes per line: offset, two groups of eight hex
// bytes and the printable ASCII.
//
//	0000: 03 00 00 16 11 E0 00 00  00 01 00 C1 02 01 00 C2  ................
func hexDump(data []byte) string {
	if len(data) == 0 {
		return "    (empty)"
	}

	var sb strings.Builder
	for off := 0; off < len(data); off += 16 {
		row := data[off:min(off+16, len(data))]
		fmt.Fprintf(&sb, "    %04X: ", off)
		for i := 0; i < 16; i++ {
			if i == 8 {
				sb.WriteByte(' ')
			}
			if i < len(row) {
				fmt.Fprintf(&sb, "%02X ", row[i])
			} else {
				sb.WriteString("   ")
			}
		}
		sb.WriteByte(' ')
		for _, b := range row {
			if b < 32 || b > 126 {
				b = '.'
			}
			sb.WriteByte(b)
		}
		if off+16 < len(data) {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// SetGlobalDebugLogger installs the logger used by the package helpers.
// nil turns debug logging off.
func SetGlobalDebugLogger(l *DebugLogger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalDebug = l
}

func global() *DebugLogger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalDebug
}

// DebugLog writes a line through the global logger, if any.
func DebugLog(protocol, format string, args ...any) {
	global().Log(protocol, format, args...)
}

// DebugTX dumps a transmitted frame.
func DebugTX(protocol string, data []byte) {
	global().Packet(protocol, "TX", data)
}

// DebugRX dumps a received frame.
func DebugRX(protocol string, data []byte) {
	global().Packet(protocol, "RX", data)
}

// DebugConnect records a connection attempt.
func DebugConnect(protocol, address string) {
	DebugLog(protocol, "CONNECT to %s", address)
}

// DebugConnectSuccess records an established session, details being e.g.
// the negotiated PDU size.
func DebugConnectSuccess(protocol, address, details string) {
	DebugLog(protocol, "CONNECTED to %s - %s", address, details)
}

// DebugConnectError records a failed connection attempt.
func DebugConnectError(protocol, address string, err error) {
	DebugLog(protocol, "CONNECT FAILED to %s: %v", address, err)
}

// DebugDisconnect records a closed session.
func DebugDisconnect(protocol, address, reason string) {
	DebugLog(protocol, "DISCONNECT from %s: %s", address, reason)
}

// DebugError records a failed operation.
func DebugError(protocol, op string, err error) {
	DebugLog(protocol, "ERROR in %s: %v", op, err)
}
