package sntpal

import "net/netip"

type TransportState int

const (
	TransportClosed TransportState = iota
	TransportBound
)

func (s TransportState) String() string {
	if s == TransportBound {
		return "bound"
	}
	return "closed"
}

// Transport is the non-blocking datagram endpoint a Session drives. None of
// its methods may block.
type Transport interface {
	Open(localPort uint16) error
	State() TransportState
	// Available reports the size of the next pending datagram, 0 if none.
	Available() int
	SendTo(buf []byte, dst netip.AddrPort) error
	// RecvFrom copies the pending datagram into buf, truncating it when buf is
	// smaller.
	RecvFrom(buf []byte) (int, netip.AddrPort, error)
	Close() error
}
