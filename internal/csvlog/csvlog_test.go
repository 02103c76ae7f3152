package csvlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vladimirazarov/isa-top/internal/flow"
)

func TestLoggerWritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.csv")
	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	k := flow.NewKeyV4([4]byte{192, 168, 1, 10}, [4]byte{8, 8, 8, 8}, 12345, 80, flow.TCP)
	view := []flow.Entry{{
		Key: k,
		Stats: flow.Stats{
			BytesSent:   74,
			PacketsSent: 1,
		},
	}}

	sampledAt := time.Unix(1700000000, 0)
	require.NoError(t, l.Consume(view, sampledAt))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	expected := "timestamp,protocol,src_ip,src_port,dst_ip,dst_port,bytes_sent,bytes_received,packets_sent,packets_received\n" +
		"1700000000,TCP,192.168.1.10,12345,8.8.8.8,80,74,0,1,0\n"
	require.Equal(t, expected, string(data))
}

func TestLoggerTruncatesEachTick(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.csv")
	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	k1 := flow.NewKeyV4([4]byte{1, 1, 1, 1}, [4]byte{2, 2, 2, 2}, 1, 2, flow.TCP)
	k2 := flow.NewKeyV4([4]byte{3, 3, 3, 3}, [4]byte{4, 4, 4, 4}, 3, 4, flow.UDP)

	require.NoError(t, l.Consume([]flow.Entry{{Key: k1}, {Key: k2}}, time.Unix(1, 0)))
	require.NoError(t, l.Consume([]flow.Entry{{Key: k1}}, time.Unix(2, 0)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	require.Equal(t, 2, lines) // header + one row, not two
}
