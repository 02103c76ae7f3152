package classify

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vladimirazarov/isa-top/internal/flow"
)

// buildEthIPv4TCP builds a minimal Ethernet + IPv4 (no options) + TCP
// frame. payloadLen pads the TCP segment so the frame reaches
// totalFrameLen, mimicking a realistic wire length.
func buildEthIPv4TCP(t *testing.T, src, dst [4]byte, sport, dport uint16, proto byte, totalFrameLen int) []byte {
	t.Helper()
	frame := make([]byte, totalFrameLen)
	// 14 bytes of Ethernet header left as zero, irrelevant to the parser.
	ip := frame[14:]
	ip[0] = 0x45 // version 4, IHL 5
	ip[9] = proto
	copy(ip[12:16], src[:])
	copy(ip[16:20], dst[:])

	if proto == protoTCP || proto == protoUDP {
		l4 := ip[20:]
		l4[0], l4[1] = byte(sport>>8), byte(sport)
		l4[2], l4[3] = byte(dport>>8), byte(dport)
	}
	return frame
}

func TestClassifyOneV4TCPPacketLocalSource(t *testing.T) {
	locals := NewLocalAddrs()
	locals.AddV4([4]byte{192, 168, 1, 10})

	frame := buildEthIPv4TCP(t, [4]byte{192, 168, 1, 10}, [4]byte{8, 8, 8, 8}, 12345, 80, protoTCP, 74)

	updates, err := Classify(frame, 74, LinkEthernet, locals)
	require.NoError(t, err)
	require.Len(t, updates, 1)

	want := flow.NewKeyV4([4]byte{192, 168, 1, 10}, [4]byte{8, 8, 8, 8}, 12345, 80, flow.TCP)
	require.Equal(t, want, updates[0].Key)
	require.Equal(t, flow.TX, updates[0].Dir)
	require.Equal(t, uint64(74), updates[0].Bytes)
}

func TestClassifyLoopbackDoubleCount(t *testing.T) {
	locals := NewLocalAddrs()
	locals.AddV4([4]byte{127, 0, 0, 1})

	frame := buildEthIPv4TCP(t, [4]byte{127, 0, 0, 1}, [4]byte{127, 0, 0, 1}, 5000, 6000, protoTCP, 100)

	updates, err := Classify(frame, 100, LinkEthernet, locals)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	require.Equal(t, flow.TX, updates[0].Dir)
	require.Equal(t, flow.RX, updates[1].Dir)
	require.Equal(t, updates[0].Key, updates[1].Key)
}

func TestClassifyUnknownL4Dropped(t *testing.T) {
	locals := NewLocalAddrs()
	locals.AddV4([4]byte{192, 168, 1, 10})

	frame := buildEthIPv4TCP(t, [4]byte{192, 168, 1, 10}, [4]byte{8, 8, 8, 8}, 0, 0, 47, 60) // GRE

	updates, err := Classify(frame, 60, LinkEthernet, locals)
	require.NoError(t, err)
	require.Nil(t, updates)
}

func TestClassifyNeitherEndpointLocalDropped(t *testing.T) {
	locals := NewLocalAddrs()
	locals.AddV4([4]byte{192, 168, 1, 10})

	frame := buildEthIPv4TCP(t, [4]byte{1, 2, 3, 4}, [4]byte{5, 6, 7, 8}, 1, 2, protoTCP, 64)

	updates, err := Classify(frame, 64, LinkEthernet, locals)
	require.NoError(t, err)
	require.Nil(t, updates)
}

func TestClassifyV6UDP(t *testing.T) {
	locals := NewLocalAddrs()
	var local [16]byte
	local[0] = 0x20
	local[1] = 0x01
	local[2] = 0x0d
	local[3] = 0xb8
	local[15] = 0x01
	locals.AddV6(local)

	frame := make([]byte, 80)
	ip := frame[14:]
	ip[0] = 0x60 // version 6
	ip[6] = protoUDP

	var src, dst [16]byte
	src = local
	dst[0], dst[1], dst[2], dst[3], dst[15] = 0x20, 0x01, 0x0d, 0xb8, 0x02
	copy(ip[8:24], src[:])
	copy(ip[24:40], dst[:])

	l4 := ip[40:]
	l4[0], l4[1] = 12345>>8, byte(12345)
	l4[2], l4[3] = 0, 53

	updates, err := Classify(frame, 80, LinkEthernet, locals)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	require.Equal(t, flow.TX, updates[0].Dir)
	require.Equal(t, flow.UDP, updates[0].Key.Proto)
	require.Equal(t, uint16(12345), updates[0].Key.Src.Port)
	require.Equal(t, uint16(53), updates[0].Key.Dst.Port)
}

func TestClassifyIPLayerMatchesClassify(t *testing.T) {
	locals := NewLocalAddrs()
	locals.AddV4([4]byte{192, 168, 1, 10})

	frame := buildEthIPv4TCP(t, [4]byte{192, 168, 1, 10}, [4]byte{8, 8, 8, 8}, 12345, 80, protoTCP, 74)

	want, err := Classify(frame, 74, LinkEthernet, locals)
	require.NoError(t, err)

	got, err := ClassifyIPLayer(frame[14:], 74, locals)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestClassifyIPLayerTruncated(t *testing.T) {
	locals := NewLocalAddrs()
	_, err := ClassifyIPLayer(nil, 0, locals)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestCheckLinkTypeRejectsUnsupported(t *testing.T) {
	require.NoError(t, CheckLinkType(LinkEthernet))
	require.NoError(t, CheckLinkType(LinkNull))
	require.NoError(t, CheckLinkType(LinkLoop))
	require.Error(t, CheckLinkType(LinkType(99)))
}
