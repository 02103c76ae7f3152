package flow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewKeyV4RoundTrip(t *testing.T) {
	src := [4]byte{192, 168, 1, 10}
	dst := [4]byte{8, 8, 8, 8}

	k := NewKeyV4(src, dst, 12345, 80, TCP)

	require.Equal(t, "192.168.1.10:12345", k.Src.String())
	require.Equal(t, "8.8.8.8:80", k.Dst.String())
}

func TestNewKeyV4MappedEqualsItself(t *testing.T) {
	// Two keys built from the same v4 tuple must compare equal, since the
	// table uses Key directly as a map key.
	a := NewKeyV4([4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2}, 1, 2, UDP)
	b := NewKeyV4([4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2}, 1, 2, UDP)
	require.Equal(t, a, b)
}

func TestNewKeyV6(t *testing.T) {
	var src, dst [16]byte
	src[0], src[15] = 0x20, 0x01 // not a real address, just distinct bytes
	dst[0], dst[15] = 0x20, 0x02

	k := NewKeyV6(src, dst, 12345, 53, UDP)
	require.Equal(t, UDP, k.Proto)
	require.NotEqual(t, k.Src, k.Dst)
}

func TestProtocolString(t *testing.T) {
	tests := []struct {
		proto    Protocol
		expected string
	}{
		{TCP, "TCP"},
		{UDP, "UDP"},
		{ICMP, "ICMP"},
		{ICMPv6, "ICMPv6"},
	}
	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			require.Equal(t, test.expected, test.proto.String())
		})
	}
}
