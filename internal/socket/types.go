package socket

import (
	"fmt"
	"net/netip"
	"strconv"
)

// Protocol represents a transport protocol with a kernel socket table.
type Protocol string

const (
	TCP Protocol = "tcp"
	UDP Protocol = "udp"
)

// Protocols lists every supported protocol in report order.
var Protocols = []Protocol{TCP, UDP}

// Record is one row of a kernel socket table.
type Record struct {
	Protocol   Protocol
	LocalAddr  netip.Addr
	LocalPort  uint16
	RemoteAddr netip.Addr
	RemotePort uint16
	State      State // zero for UDP
	UID        uint32
	Inode      uint64
}

// Local returns the local endpoint as "a.b.c.d:port".
func (r Record) Local() string {
	return endpoint(r.LocalAddr, r.LocalPort)
}

// Remote returns the remote endpoint as "a.b.c.d:port".
func (r Record) Remote() string {
	return endpoint(r.RemoteAddr, r.RemotePort)
}

// String returns a human-readable representation of the record.
func (r Record) String() string {
	return fmt.Sprintf("%s %s -> %s (inode %d)", r.Protocol, r.Local(), r.Remote(), r.Inode)
}

func endpoint(addr netip.Addr, port uint16) string {
	return addr.String() + ":" + strconv.Itoa(int(port))
}
