// Package csvlog writes the sampler's ranked view to a CSV file,
// truncating and rewriting the whole file on every tick so it always
// reflects the most recent sample.
package csvlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/vladimirazarov/isa-top/internal/flow"
)

var header = []string{
	"timestamp", "protocol", "src_ip", "src_port", "dst_ip", "dst_port",
	"bytes_sent", "bytes_received", "packets_sent", "packets_received",
}

// Logger writes one CSV snapshot per call to Consume. Opening the file
// happens once, at construction time: a failure to open the configured
// path is a startup error and is fatal, per the error handling design;
// a failure during an individual write is logged by the caller and does
// not stop the monitor.
type Logger struct {
	path string
	f    *os.File
}

// Open creates (or truncates) the file at path for writing. The caller
// owns the returned Logger's lifetime and must call Close on shutdown.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv log %q: %w", path, err)
	}
	return &Logger{path: path, f: f}, nil
}

// Consume implements sampler.Consumer: it rewrites the file from
// scratch with a header line followed by one row per flow in view.
func (l *Logger) Consume(view []flow.Entry, sampledAt time.Time) error {
	if err := l.f.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate csv log: %w", err)
	}
	if _, err := l.f.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to seek csv log: %w", err)
	}

	w := csv.NewWriter(l.f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	ts := strconv.FormatInt(sampledAt.Unix(), 10)
	for _, e := range view {
		row := []string{
			ts,
			e.Key.Proto.String(),
			ipOf(e.Key.Src),
			portOf(e.Key.Src),
			ipOf(e.Key.Dst),
			portOf(e.Key.Dst),
			strconv.FormatUint(e.Stats.BytesSent, 10),
			strconv.FormatUint(e.Stats.BytesReceived, 10),
			strconv.FormatUint(e.Stats.PacketsSent, 10),
			strconv.FormatUint(e.Stats.PacketsReceived, 10),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv log: %w", err)
	}
	return nil
}

// Close closes the underlying file. Nothing is buffered between calls:
// each Consume flushes its rows before returning.
func (l *Logger) Close() error {
	return l.f.Close()
}

func ipOf(e flow.Endpoint) string {
	ip := e.IP
	if ip.Is4In6() {
		ip = ip.Unmap()
	}
	return ip.String()
}

func portOf(e flow.Endpoint) string {
	return strconv.FormatUint(uint64(e.Port), 10)
}
