// Package pcapsrc wraps slimcap's zero-copy AF_PACKET source behind the
// minimal contract the monitor needs: pull one frame at a time, report it
// as IP-layer bytes plus an on-wire length, and tear the handle down
// cleanly on shutdown.
package pcapsrc

import (
	"errors"
	"fmt"

	"github.com/fako1024/slimcap/capture"
	"github.com/fako1024/slimcap/capture/afpacket"
)

// Snaplen bounds how many bytes of each packet are captured. The spec's
// flow accounting only ever needs the IP and transport headers, never the
// payload.
const Snaplen = 128

const (
	// DefaultRingBufferBlockSize is the size, in bytes, of a single AF_PACKET
	// ring buffer block.
	DefaultRingBufferBlockSize = 1 << 20
	// DefaultRingBufferNumBlocks is the number of blocks making up the ring
	// buffer.
	DefaultRingBufferNumBlocks = 4
)

// Config controls how a Source opens its interface.
type Config struct {
	Promiscuous         bool
	RingBufferBlockSize int
	RingBufferNumBlocks int
}

// DefaultConfig returns the ring buffer sizing used when the caller does
// not override it.
func DefaultConfig() Config {
	return Config{
		RingBufferBlockSize: DefaultRingBufferBlockSize,
		RingBufferNumBlocks: DefaultRingBufferNumBlocks,
	}
}

// Source is a single-interface zero-copy packet source.
type Source struct {
	iface  string
	handle capture.SourceZeroCopy
	pkt    capture.Packet
}

// Open creates and starts an AF_PACKET ring buffer capture on iface.
func Open(iface string, cfg Config) (*Source, error) {
	handle, err := afpacket.NewRingBufSource(iface,
		afpacket.CaptureLength(Snaplen),
		afpacket.BufferSize(cfg.RingBufferBlockSize, cfg.RingBufferNumBlocks),
		afpacket.Promiscuous(cfg.Promiscuous),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture on %q: %w", iface, err)
	}

	return &Source{
		iface:  iface,
		handle: handle,
		pkt:    make(capture.Packet, Snaplen+6),
	}, nil
}

// Frame is one captured packet, reduced to what the classifier needs.
type Frame struct {
	IPLayer capture.IPLayer
	Wire    uint32
}

// ErrUnblocked is returned by Next when the capture handle was unblocked
// (e.g. as part of a coordinated shutdown) rather than having received a
// packet or hit a genuine error.
var ErrUnblocked = errors.New("capture unblocked")

// Next blocks until the next packet arrives on the interface and returns
// its IP-layer view. The returned Frame aliases the Source's internal
// buffer and is only valid until the next call to Next.
func (s *Source) Next() (Frame, error) {
	pkt, err := s.handle.NextPacket(s.pkt)
	if err != nil {
		if errors.Is(err, capture.ErrCaptureUnblock) {
			return Frame{}, ErrUnblocked
		}
		return Frame{}, fmt.Errorf("capture error on %q: %w", s.iface, err)
	}

	return Frame{
		IPLayer: pkt.IPLayer(),
		Wire:    pkt.TotalLen(),
	}, nil
}

// Unblock interrupts a blocked call to Next without closing the handle, so
// a capture goroutine can be woken for a coordinated shutdown.
func (s *Source) Unblock() error {
	return s.handle.Unblock()
}

// Close stops capturing and releases the underlying handle and its ring
// buffer memory.
func (s *Source) Close() error {
	if err := s.handle.Close(); err != nil {
		return fmt.Errorf("failed to close capture on %q: %w", s.iface, err)
	}
	if err := s.handle.Free(); err != nil {
		return fmt.Errorf("failed to free capture resources on %q: %w", s.iface, err)
	}
	return nil
}
