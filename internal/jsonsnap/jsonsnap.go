// Package jsonsnap writes the sampler's ranked view to a JSON file, for
// the hidden debug flag that dumps a machine-readable snapshot alongside
// the terminal table (and the CSV log, when that is enabled).
package jsonsnap

import (
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/vladimirazarov/isa-top/internal/flow"
)

var j = jsoniter.ConfigCompatibleWithStandardLibrary

// entry is the wire shape of one ranked flow in the snapshot. Endpoints
// are rendered as strings rather than the internal netip.Addr encoding,
// so the snapshot is readable without linking against this module.
type entry struct {
	SrcIP           string `json:"src_ip"`
	SrcPort         uint16 `json:"src_port"`
	DstIP           string `json:"dst_ip"`
	DstPort         uint16 `json:"dst_port"`
	Protocol        string `json:"protocol"`
	BytesSent       uint64 `json:"bytes_sent"`
	BytesReceived   uint64 `json:"bytes_received"`
	PacketsSent     uint64 `json:"packets_sent"`
	PacketsReceived uint64 `json:"packets_received"`
	TxBPS           float64 `json:"tx_bps"`
	RxBPS           float64 `json:"rx_bps"`
	TxPPS           float64 `json:"tx_pps"`
	RxPPS           float64 `json:"rx_pps"`
}

type snapshot struct {
	SampledAt int64   `json:"sampled_at"`
	Flows     []entry `json:"flows"`
}

// Logger writes one JSON snapshot per call to Consume, truncating and
// rewriting the file each tick like csvlog.Logger does.
type Logger struct {
	path string
	f    *os.File
}

// Open creates (or truncates) the file at path for writing.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open json snapshot %q: %w", path, err)
	}
	return &Logger{path: path, f: f}, nil
}

// Consume implements sampler.Consumer.
func (l *Logger) Consume(view []flow.Entry, sampledAt time.Time) error {
	if err := l.f.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate json snapshot: %w", err)
	}
	if _, err := l.f.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to seek json snapshot: %w", err)
	}

	snap := snapshot{
		SampledAt: sampledAt.Unix(),
		Flows:     make([]entry, 0, len(view)),
	}
	for _, e := range view {
		snap.Flows = append(snap.Flows, entry{
			SrcIP:           unmapped(e.Key.Src),
			SrcPort:         e.Key.Src.Port,
			DstIP:           unmapped(e.Key.Dst),
			DstPort:         e.Key.Dst.Port,
			Protocol:        e.Key.Proto.String(),
			BytesSent:       e.Stats.BytesSent,
			BytesReceived:   e.Stats.BytesReceived,
			PacketsSent:     e.Stats.PacketsSent,
			PacketsReceived: e.Stats.PacketsReceived,
			TxBPS:           e.Stats.TxBPS,
			RxBPS:           e.Stats.RxBPS,
			TxPPS:           e.Stats.TxPPS,
			RxPPS:           e.Stats.RxPPS,
		})
	}

	enc := j.NewEncoder(l.f)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to write json snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *Logger) Close() error {
	return l.f.Close()
}

func unmapped(e flow.Endpoint) string {
	ip := e.IP
	if ip.Is4In6() {
		ip = ip.Unmap()
	}
	return ip.String()
}
