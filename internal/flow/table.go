package flow

import (
	"sort"
	"sync"
	"time"
)

// Table is the concurrent mapping from Key to Stats at the heart of the
// engine. A single mutex covers both the live map and the previous-sample
// map used by SampleAndRank; it is never held across packet parsing,
// terminal I/O or CSV I/O, only across the O(1) map operations of Update
// and the O(M) traversal of SampleAndRank.
type Table struct {
	mu      sync.Mutex
	current map[Key]*Stats
	prev    map[Key]Stats
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		current: make(map[Key]*Stats),
		prev:    make(map[Key]Stats),
	}
}

// Update records one packet on the given flow and direction. If the flow
// is new, a Stats record is created with both sides' counters zeroed
// except the observed direction, and first_seen/last_seen set to now.
func (t *Table) Update(key Key, dir Direction, byteCount uint64, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.current[key]
	if !ok {
		s = &Stats{FirstSeen: now}
		t.current[key] = s
	}
	switch dir {
	case TX:
		s.BytesSent += byteCount
		s.PacketsSent++
	case RX:
		s.BytesReceived += byteCount
		s.PacketsReceived++
	}
	s.LastSeen = now
}

// Remove erases a flow. It is a no-op if the key is absent.
func (t *Table) Remove(key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.current, key)
	delete(t.prev, key)
}

// Get returns a copy of the current stats for key, if present.
func (t *Table) Get(key Key) (Stats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.current[key]
	if !ok {
		return Stats{}, false
	}
	return *s, true
}

// Snapshot returns a consistent copy of the whole table. The caller must
// not rely on any reference into the table after this returns.
func (t *Table) Snapshot() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, 0, len(t.current))
	for k, s := range t.current {
		out = append(out, Entry{Key: k, Stats: *s})
	}
	return out
}

// Len reports the number of live flows.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.current)
}

// SampleAndRank atomically computes per-flow rates against the
// previous-sample table, updates that table in place, sorts a copy of the
// current view by sortBy and truncates it to at most topN entries. A
// newly observed flow (no entry in the previous table) reports all-zero
// rates for its first interval rather than an infinite rate from a zero
// denominator.
func (t *Table) SampleAndRank(sortBy SortBy, now time.Time, topN int) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	view := make([]Entry, 0, len(t.current))
	for key, cur := range t.current {
		if prev, ok := t.prev[key]; ok {
			if dt := now.Sub(prev.LastSeen).Seconds(); dt > 0 {
				cur.TxBPS = float64(cur.BytesSent-prev.BytesSent) / dt
				cur.RxBPS = float64(cur.BytesReceived-prev.BytesReceived) / dt
				cur.TxPPS = float64(cur.PacketsSent-prev.PacketsSent) / dt
				cur.RxPPS = float64(cur.PacketsReceived-prev.PacketsReceived) / dt
			} else {
				cur.TxBPS, cur.RxBPS, cur.TxPPS, cur.RxPPS = 0, 0, 0, 0
			}
		} else {
			cur.TxBPS, cur.RxBPS, cur.TxPPS, cur.RxPPS = 0, 0, 0, 0
		}
		cur.LastSeen = now
		t.prev[key] = *cur

		view = append(view, Entry{Key: key, Stats: *cur})
	}

	// garbage collect prev entries for flows that no longer exist
	for key := range t.prev {
		if _, ok := t.current[key]; !ok {
			delete(t.prev, key)
		}
	}

	switch sortBy {
	case ByPackets:
		sort.SliceStable(view, func(i, j int) bool {
			return totalPackets(view[i].Stats) > totalPackets(view[j].Stats)
		})
	default:
		sort.SliceStable(view, func(i, j int) bool {
			return totalBytes(view[i].Stats) > totalBytes(view[j].Stats)
		})
	}

	if topN > 0 && len(view) > topN {
		view = view[:topN]
	}
	return view
}

func totalBytes(s Stats) uint64 {
	return s.BytesSent + s.BytesReceived
}

func totalPackets(s Stats) uint64 {
	return s.PacketsSent + s.PacketsReceived
}
