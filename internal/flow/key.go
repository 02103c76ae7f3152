// Package flow defines the canonical flow identity and the concurrent
// table that tracks per-flow traffic counters.
package flow

import (
	"fmt"
	"net/netip"
)

// Protocol identifies the transport (or transport-like) protocol of a flow.
type Protocol uint8

// Supported protocols. Any other IP protocol number is dropped by the
// classifier before a FlowKey is ever built.
const (
	TCP Protocol = iota
	UDP
	ICMP
	ICMPv6
)

// String renders the protocol the way it appears in the CSV log and the
// terminal table.
func (p Protocol) String() string {
	switch p {
	case TCP:
		return "TCP"
	case UDP:
		return "UDP"
	case ICMP:
		return "ICMP"
	case ICMPv6:
		return "ICMPv6"
	default:
		return "UNKNOWN"
	}
}

// Endpoint is one side of a flow: an IPv6-shaped address (IPv4 addresses are
// stored IPv4-mapped, ::ffff:a.b.c.d) plus a port. Port is 0 for protocols
// without one (ICMP, ICMPv6).
type Endpoint struct {
	IP   netip.Addr
	Port uint16
}

// String renders "<ip>:<port>", printing the IPv4-mapped form as dotted-quad.
func (e Endpoint) String() string {
	ip := e.IP
	if ip.Is4In6() {
		ip = ip.Unmap()
	}
	return fmt.Sprintf("%s:%d", ip, e.Port)
}

// Key is the hashable, comparable identity of a flow: a directional
// triple of (source endpoint, destination endpoint, protocol). Swapping
// source and destination yields a different key; two opposite-direction
// half-flows of the same session are distinct table entries.
type Key struct {
	Src, Dst Endpoint
	Proto    Protocol
}

// NewKeyV4 builds a flow key from IPv4 endpoints, mapping both addresses
// into the IPv4-in-IPv6 form (::ffff:a.b.c.d) so the table only ever deals
// with one endpoint shape, whether the packet arrived on the v4 or v6
// branch of the classifier.
func NewKeyV4(srcIP, dstIP [4]byte, srcPort, dstPort uint16, proto Protocol) Key {
	return Key{
		Src:   Endpoint{IP: mappedV4(srcIP), Port: srcPort},
		Dst:   Endpoint{IP: mappedV4(dstIP), Port: dstPort},
		Proto: proto,
	}
}

// NewKeyV6 builds a flow key directly from IPv6 endpoints.
func NewKeyV6(srcIP, dstIP [16]byte, srcPort, dstPort uint16, proto Protocol) Key {
	return Key{
		Src:   Endpoint{IP: netip.AddrFrom16(srcIP), Port: srcPort},
		Dst:   Endpoint{IP: netip.AddrFrom16(dstIP), Port: dstPort},
		Proto: proto,
	}
}

// mappedV4 embeds a v4 address into the ::ffff:0:0/96 prefix so it
// compares and hashes identically no matter which branch of the
// classifier produced the key.
func mappedV4(ip [4]byte) netip.Addr {
	var b [16]byte
	b[10], b[11] = 0xff, 0xff
	copy(b[12:], ip[:])
	return netip.AddrFrom16(b)
}
