package flow

import "time"

// Direction classifies an observed packet relative to the monitoring host:
// TX if the packet's source address is local, RX if its destination is.
// Loopback traffic is both, and contributes to both counters of the same
// flow.
type Direction uint8

const (
	TX Direction = iota
	RX
)

// Stats holds the mutable per-flow counters. It is created on first
// observation of a flow and mutated only by Table.Update and
// Table.SampleAndRank.
type Stats struct {
	BytesSent     uint64
	BytesReceived uint64
	PacketsSent   uint64
	PacketsReceived uint64

	FirstSeen time.Time
	LastSeen  time.Time

	// Rates, set only by SampleAndRank; zero until the flow has survived
	// one full sampling interval.
	TxBPS float64
	RxBPS float64
	TxPPS float64
	RxPPS float64
}

// Entry pairs a flow key with a point-in-time copy of its stats, as
// returned by Table.Snapshot and Table.SampleAndRank.
type Entry struct {
	Key   Key
	Stats Stats
}

// SortBy selects the ranking key used by SampleAndRank.
type SortBy uint8

const (
	// ByBytes ranks flows by bytes_sent + bytes_received, descending.
	ByBytes SortBy = iota
	// ByPackets ranks flows by packets_sent + packets_received, descending.
	ByPackets
)
