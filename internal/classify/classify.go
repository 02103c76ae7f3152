package classify

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vladimirazarov/isa-top/internal/flow"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// IP protocol numbers the classifier dispatches on. Anything else is
// dropped.
const (
	protoICMP   = 0x01
	protoTCP    = 0x06
	protoUDP    = 0x11
	protoICMPv6 = 0x3a
)

// BSD-style address family values used by the DLT_NULL/DLT_LOOP family
// field. AF_INET6 differs between BSD flavours (24 on OpenBSD/NetBSD, 28
// on FreeBSD, 30 on macOS); all three are accepted.
const (
	afINET         = 2
	afINET6BSD     = 24
	afINET6FreeBSD = 28
	afINET6Darwin  = 30
)

var (
	// ErrTruncated is returned for a frame too short to contain the
	// headers it claims to carry (e.g. an IPv4 header shorter than its
	// own IHL, or a TCP/UDP header too short to hold both ports).
	ErrTruncated = errors.New("packet too short / truncated")

	errUnknownIPVersion = errors.New("neither IPv4 nor IPv6")
)

// Update is one flow table update produced by classifying a frame. A
// single loopback packet produces two updates (TX and RX) for the same
// key.
type Update struct {
	Key   flow.Key
	Dir   flow.Direction
	Bytes uint64
}

// Classify parses frame (the full captured link-layer frame) and returns
// the flow table updates it implies. wireLen is the total on-wire length
// reported by the capture header, used as the byte count credited to the
// flow (not the parsed IP payload length). A nil, nil result means the
// packet was recognized but intentionally dropped (unknown L4 protocol,
// IP fragment, neither endpoint local, ...); an error is returned only for
// conditions the error-handling design treats as a malformed-packet drop
// at the caller, never escalated.
func Classify(frame []byte, wireLen uint32, linkType LinkType, locals *LocalAddrs) ([]Update, error) {
	offset, ok := headerOffset(linkType)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedLinkType, linkType)
	}
	if len(frame) < offset {
		return nil, ErrTruncated
	}

	ipLayer := frame[offset:]
	isV4, ok := detectVersion(linkType, frame, ipLayer)
	if !ok {
		return nil, errUnknownIPVersion
	}

	if isV4 {
		return classifyV4(ipLayer, wireLen, locals)
	}
	return classifyV6(ipLayer, wireLen, locals)
}

// ClassifyIPLayer is the entry point for sources that already hand back
// the link layer stripped (slimcap's AF_PACKET ring buffer does this for
// every frame it delivers, since it only ever captures on Ethernet-style
// devices). It is equivalent to Classify with the link-layer stripping
// step skipped.
func ClassifyIPLayer(ipLayer []byte, wireLen uint32, locals *LocalAddrs) ([]Update, error) {
	if len(ipLayer) < 1 {
		return nil, ErrTruncated
	}
	switch ipLayer[0] >> 4 {
	case 4:
		return classifyV4(ipLayer, wireLen, locals)
	case 6:
		return classifyV6(ipLayer, wireLen, locals)
	default:
		return nil, errUnknownIPVersion
	}
}

// detectVersion decides whether ipLayer carries an IPv4 or IPv6 packet.
// For DLT_NULL/DLT_LOOP frames the link layer's address family field is
// authoritative; for Ethernet frames the high nibble of the first IP
// header byte is used instead.
func detectVersion(linkType LinkType, frame, ipLayer []byte) (isV4 bool, ok bool) {
	switch linkType {
	case LinkNull:
		if len(frame) < 4 {
			return false, false
		}
		switch binary.NativeEndian.Uint32(frame[0:4]) {
		case afINET:
			return true, true
		case afINET6BSD, afINET6FreeBSD, afINET6Darwin:
			return false, true
		default:
			return false, false
		}
	case LinkLoop:
		if len(frame) < 4 {
			return false, false
		}
		switch binary.BigEndian.Uint32(frame[0:4]) {
		case afINET:
			return true, true
		case afINET6BSD, afINET6FreeBSD, afINET6Darwin:
			return false, true
		default:
			return false, false
		}
	default:
		if len(ipLayer) < 1 {
			return false, false
		}
		switch ipLayer[0] >> 4 {
		case 4:
			return true, true
		case 6:
			return false, true
		default:
			return false, false
		}
	}
}

func classifyV4(ipLayer []byte, wireLen uint32, locals *LocalAddrs) ([]Update, error) {
	if len(ipLayer) < ipv4.HeaderLen {
		return nil, ErrTruncated
	}

	ihl := int(ipLayer[0]&0x0f) * 4
	if len(ipLayer) < ihl {
		return nil, ErrTruncated
	}

	proto := ipLayer[9]

	// fragment check: only the first fragment carries a transport header
	fragOffset := (uint16(ipLayer[6]&0x1f) << 8) | uint16(ipLayer[7])
	if fragOffset != 0 {
		return nil, nil
	}

	var srcIP, dstIP [4]byte
	copy(srcIP[:], ipLayer[12:16])
	copy(dstIP[:], ipLayer[16:20])

	var key flow.Key
	l4 := ipLayer[ihl:]
	switch proto {
	case protoTCP, protoUDP:
		if len(l4) < 4 {
			return nil, ErrTruncated
		}
		sport := binary.BigEndian.Uint16(l4[0:2])
		dport := binary.BigEndian.Uint16(l4[2:4])
		p := flow.TCP
		if proto == protoUDP {
			p = flow.UDP
		}
		key = flow.NewKeyV4(srcIP, dstIP, sport, dport, p)
	case protoICMP:
		key = flow.NewKeyV4(srcIP, dstIP, 0, 0, flow.ICMP)
	default:
		return nil, nil
	}

	return direct(key, wireLen, locals.hasV4(srcIP), locals.hasV4(dstIP)), nil
}

func classifyV6(ipLayer []byte, wireLen uint32, locals *LocalAddrs) ([]Update, error) {
	if len(ipLayer) < ipv6.HeaderLen {
		return nil, ErrTruncated
	}

	nextHeader := ipLayer[6]

	var srcIP, dstIP [16]byte
	copy(srcIP[:], ipLayer[8:24])
	copy(dstIP[:], ipLayer[24:40])

	l4 := ipLayer[ipv6.HeaderLen:]

	var key flow.Key
	switch nextHeader {
	case protoTCP, protoUDP:
		if len(l4) < 4 {
			return nil, ErrTruncated
		}
		sport := binary.BigEndian.Uint16(l4[0:2])
		dport := binary.BigEndian.Uint16(l4[2:4])
		p := flow.TCP
		if nextHeader == protoUDP {
			p = flow.UDP
		}
		key = flow.NewKeyV6(srcIP, dstIP, sport, dport, p)
	case protoICMPv6:
		key = flow.NewKeyV6(srcIP, dstIP, 0, 0, flow.ICMPv6)
	default:
		// Extension header chains (Hop-by-Hop, Routing, Fragment, ...)
		// are not walked; this is a documented limitation, not a bug.
		return nil, nil
	}

	return direct(key, wireLen, locals.hasV6(srcIP), locals.hasV6(dstIP)), nil
}

// direct emits a TX update if the source is local and an RX update if the
// destination is local. Loopback traffic, where both are true, produces
// both updates for the same key so loopback measurements are symmetric.
func direct(key flow.Key, wireLen uint32, srcLocal, dstLocal bool) []Update {
	var updates []Update
	if srcLocal {
		updates = append(updates, Update{Key: key, Dir: flow.TX, Bytes: uint64(wireLen)})
	}
	if dstLocal {
		updates = append(updates, Update{Key: key, Dir: flow.RX, Bytes: uint64(wireLen)})
	}
	return updates
}
