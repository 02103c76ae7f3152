package classify

import (
	"fmt"
	"net"
	"net/netip"
)

// LocalAddrs is the set of local IPv4 and IPv6 addresses of the
// interface being monitored, collected once at capture startup. It is
// treated as immutable for the lifetime of a capture session: the design
// does not track interface address changes mid-run.
type LocalAddrs struct {
	v4 map[netip.Addr]struct{}
	v6 map[netip.Addr]struct{}
}

// NewLocalAddrs returns an empty address set.
func NewLocalAddrs() *LocalAddrs {
	return &LocalAddrs{
		v4: make(map[netip.Addr]struct{}),
		v6: make(map[netip.Addr]struct{}),
	}
}

// AddV4 registers a local IPv4 address.
func (l *LocalAddrs) AddV4(ip [4]byte) {
	l.v4[netip.AddrFrom4(ip)] = struct{}{}
}

// AddV6 registers a local IPv6 address.
func (l *LocalAddrs) AddV6(ip [16]byte) {
	l.v6[netip.AddrFrom16(ip)] = struct{}{}
}

func (l *LocalAddrs) hasV4(ip [4]byte) bool {
	_, ok := l.v4[netip.AddrFrom4(ip)]
	return ok
}

func (l *LocalAddrs) hasV6(ip [16]byte) bool {
	_, ok := l.v6[netip.AddrFrom16(ip)]
	return ok
}

// LocalAddrsFromInterface collects the local IPv4 and IPv6 addresses of
// the named interface once, for the lifetime of a capture session. Per
// the design notes, the interface's addresses are treated as immutable
// for that lifetime; a change mid-run is not tracked.
func LocalAddrsFromInterface(name string) (*LocalAddrs, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up interface %q: %w", name, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, fmt.Errorf("failed to read addresses of %q: %w", name, err)
	}

	locals := NewLocalAddrs()
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		addr, ok := netip.AddrFromSlice(ipNet.IP)
		if !ok {
			continue
		}
		switch {
		case addr.Is4():
			locals.AddV4(addr.As4())
		case addr.Is4In6():
			locals.AddV4(addr.As4())
		default:
			locals.AddV6(addr.As16())
		}
	}
	return locals, nil
}
