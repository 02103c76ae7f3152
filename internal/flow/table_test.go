package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) Key {
	t.Helper()
	return NewKeyV4([4]byte{192, 168, 1, 10}, [4]byte{8, 8, 8, 8}, 12345, 80, TCP)
}

func TestTableUpdateCreatesFlow(t *testing.T) {
	tbl := NewTable()
	k := testKey(t)
	now := time.Now()

	tbl.Update(k, TX, 74, now)

	s, ok := tbl.Get(k)
	require.True(t, ok)
	require.Equal(t, uint64(74), s.BytesSent)
	require.Equal(t, uint64(1), s.PacketsSent)
	require.Equal(t, uint64(0), s.BytesReceived)
	require.Equal(t, uint64(0), s.PacketsReceived)
	require.Equal(t, now, s.FirstSeen)
	require.Equal(t, now, s.LastSeen)
}

// Loopback double-count: one packet can satisfy both TX and RX.
func TestTableLoopbackDoubleCount(t *testing.T) {
	tbl := NewTable()
	k := NewKeyV4([4]byte{127, 0, 0, 1}, [4]byte{127, 0, 0, 1}, 5000, 6000, TCP)
	now := time.Now()

	tbl.Update(k, TX, 100, now)
	tbl.Update(k, RX, 100, now)

	s, ok := tbl.Get(k)
	require.True(t, ok)
	require.Equal(t, uint64(100), s.BytesSent)
	require.Equal(t, uint64(1), s.PacketsSent)
	require.Equal(t, uint64(100), s.BytesReceived)
	require.Equal(t, uint64(1), s.PacketsReceived)
}

func TestTableRemove(t *testing.T) {
	tbl := NewTable()
	k := testKey(t)
	tbl.Update(k, TX, 1, time.Now())
	tbl.Remove(k)
	_, ok := tbl.Get(k)
	require.False(t, ok)
}

// Direction idempotence: two updates of 100 each look the same as one of
// 200 and one of 0, except the packet counter tracks call count.
func TestDirectionIdempotence(t *testing.T) {
	k := testKey(t)
	now := time.Now()

	a := NewTable()
	a.Update(k, TX, 100, now)
	a.Update(k, TX, 100, now)

	b := NewTable()
	b.Update(k, TX, 200, now)
	b.Update(k, TX, 0, now)

	sa, _ := a.Get(k)
	sb, _ := b.Get(k)

	require.Equal(t, sa.BytesSent, sb.BytesSent)
	require.Equal(t, uint64(2), sa.PacketsSent)
	require.Equal(t, uint64(2), sb.PacketsSent)
}

func TestSampleAndRankByBytes(t *testing.T) {
	tbl := NewTable()
	now := time.Now()

	k500 := NewKeyV4([4]byte{1, 1, 1, 1}, [4]byte{2, 2, 2, 2}, 1, 1, TCP)
	k1500 := NewKeyV4([4]byte{1, 1, 1, 2}, [4]byte{2, 2, 2, 2}, 1, 1, TCP)
	k1000 := NewKeyV4([4]byte{1, 1, 1, 3}, [4]byte{2, 2, 2, 2}, 1, 1, TCP)

	tbl.Update(k500, TX, 500, now)
	tbl.Update(k1500, TX, 1500, now)
	tbl.Update(k1000, TX, 1000, now)

	view := tbl.SampleAndRank(ByBytes, now, 10)
	require.Len(t, view, 3)
	require.Equal(t, k1500, view[0].Key)
	require.Equal(t, k1000, view[1].Key)
	require.Equal(t, k500, view[2].Key)
}

func TestSampleAndRankTopNTruncates(t *testing.T) {
	tbl := NewTable()
	now := time.Now()
	for i := 0; i < 15; i++ {
		k := NewKeyV4([4]byte{1, 1, 1, byte(i)}, [4]byte{2, 2, 2, 2}, 1, 1, TCP)
		tbl.Update(k, TX, uint64(i), now)
	}
	view := tbl.SampleAndRank(ByBytes, now, 10)
	require.Len(t, view, 10)
}

func TestSampleAndRankRateOverOneInterval(t *testing.T) {
	tbl := NewTable()
	k := testKey(t)
	t0 := time.Now()

	tbl.Update(k, TX, 1000, t0)
	tbl.SampleAndRank(ByBytes, t0, 10)

	t1 := t0.Add(time.Second)
	tbl.Update(k, TX, 5000, t1)
	view := tbl.SampleAndRank(ByBytes, t1, 10)

	require.Len(t, view, 1)
	require.InDelta(t, 5000, view[0].Stats.TxBPS, 1)
	require.InDelta(t, 1, view[0].Stats.TxPPS, 0.01)
	require.Equal(t, float64(0), view[0].Stats.RxBPS)
}

func TestSampleAndRankNewFlowHasZeroRate(t *testing.T) {
	tbl := NewTable()
	k := testKey(t)
	now := time.Now()
	tbl.Update(k, TX, 1000, now)

	view := tbl.SampleAndRank(ByBytes, now, 10)
	require.Len(t, view, 1)
	require.Equal(t, float64(0), view[0].Stats.TxBPS)
}

// Prev-table GC: after SampleAndRank, every key remaining in the internal
// prev table must also be in the current table.
func TestSampleAndRankGCsPrevTable(t *testing.T) {
	tbl := NewTable()
	k1 := testKey(t)
	k2 := NewKeyV4([4]byte{1, 2, 3, 4}, [4]byte{5, 6, 7, 8}, 1, 2, UDP)
	now := time.Now()

	tbl.Update(k1, TX, 10, now)
	tbl.Update(k2, TX, 20, now)
	tbl.SampleAndRank(ByBytes, now, 10)

	tbl.Remove(k2)

	now2 := now.Add(time.Second)
	tbl.SampleAndRank(ByBytes, now2, 10)

	require.Len(t, tbl.prev, 1)
	_, ok := tbl.prev[k1]
	require.True(t, ok)
	_, ok = tbl.prev[k2]
	require.False(t, ok)
}

func TestSnapshotIsConsistentCopy(t *testing.T) {
	tbl := NewTable()
	k := testKey(t)
	now := time.Now()
	tbl.Update(k, TX, 42, now)

	snap := tbl.Snapshot()
	require.Len(t, snap, 1)

	// mutating the table after Snapshot must not affect the returned copy
	tbl.Update(k, TX, 1, now)
	require.Equal(t, uint64(42), snap[0].Stats.BytesSent)
}
