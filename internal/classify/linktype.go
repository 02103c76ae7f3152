// Package classify turns one captured frame into zero, one or two
// flow.Table updates: it strips the link layer, parses the IPv4/IPv6 and
// TCP/UDP/ICMP headers by hand (no gopacket-style layer decoding, since
// the only fields the engine needs are the two endpoints, the protocol
// and the ports), and classifies direction against the interface's local
// address set.
package classify

import "fmt"

// LinkType identifies the link-layer framing of a captured frame, using
// the same numeric values as libpcap's DLT_* constants.
type LinkType int

const (
	// LinkEthernet is DLT_EN10MB: a 14 byte Ethernet header precedes the
	// IP header.
	LinkEthernet LinkType = 1
	// LinkNull is DLT_NULL (BSD loopback): a 4 byte host-byte-order
	// address family field precedes the IP header.
	LinkNull LinkType = 0
	// LinkLoop is DLT_LOOP (OpenBSD loopback): a 4 byte big-endian
	// address family field precedes the IP header.
	LinkLoop LinkType = 108
)

// ErrUnsupportedLinkType is returned at capture startup for any link type
// other than the three this classifier understands. Per the error
// handling design, an unsupported link type is fatal rather than guessed
// at: silently assuming an IP offset on an unknown framing would produce
// garbage flow keys instead of a clean failure.
var ErrUnsupportedLinkType = fmt.Errorf("unsupported link type")

// headerOffset returns the byte offset of the IP header for the given
// link type, or false if the link type is not supported.
func headerOffset(lt LinkType) (int, bool) {
	switch lt {
	case LinkEthernet:
		return 14, true
	case LinkNull, LinkLoop:
		return 4, true
	default:
		return 0, false
	}
}

// CheckLinkType validates a link type at capture startup so an
// unsupported framing fails fast instead of producing silently wrong
// flow keys once packets start arriving.
func CheckLinkType(lt LinkType) error {
	if _, ok := headerOffset(lt); !ok {
		return fmt.Errorf("%w: %d", ErrUnsupportedLinkType, lt)
	}
	return nil
}
