package sntpal

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

const (
	// Guards RecvFrom against a datagram that vanished after Available reported it.
	recvGuard = 5 * time.Millisecond

	maxDatagram   = 65535
	maxEmptyDrain = 64
)

// UDPTransport is a Transport over an IPv4 UDP socket.
type UDPTransport struct {
	Host string // local bind address, empty for any
	TTL  int
	TOS  int

	conn  *net.UDPConn
	pconn *ipv4.PacketConn
	peek  []byte
}

var _ Transport = (*UDPTransport)(nil)

func (t *UDPTransport) Open(localPort uint16) error {
	if t.conn != nil {
		return nil
	}

	address, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(t.Host, strconv.Itoa(int(localPort))))
	if err != nil {
		return fmt.Errorf("resolving local address: %w", err)
	}

	conn, err := net.ListenUDP("udp4", address)
	if err != nil {
		return fmt.Errorf("can't listen on %v/udp: %w", address, err)
	}

	pconn := ipv4.NewPacketConn(conn)

	if t.TTL > 0 {
		if err = pconn.SetTTL(t.TTL); err != nil {
			conn.Close()
			return fmt.Errorf("setting ttl: %w", err)
		}
	}

	if t.TOS > 0 {
		if err = pconn.SetTOS(t.TOS); err != nil {
			conn.Close()
			return fmt.Errorf("setting tos: %w", err)
		}
	}

	t.conn = conn
	t.pconn = pconn

	return nil
}

func (t *UDPTransport) State() TransportState {
	if t.conn == nil {
		return TransportClosed
	}
	return TransportBound
}

// LocalAddr returns the bound address, or an invalid AddrPort when closed.
func (t *UDPTransport) LocalAddr() netip.AddrPort {
	if t.conn == nil {
		return netip.AddrPort{}
	}
	return t.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// Available peeks at the head of the receive queue without blocking and
// returns the size of the pending datagram. Empty datagrams are drained so
// they cannot hide the replies queued behind them.
func (t *UDPTransport) Available() int {
	if t.conn == nil {
		return 0
	}

	rawConn, err := t.conn.SyscallConn()
	if err != nil {
		t.Close()
		return 0
	}

	if t.peek == nil {
		t.peek = make([]byte, maxDatagram)
	}

	var (
		n       int
		peekErr error
	)

	err = rawConn.Control(func(fd uintptr) {
		for range maxEmptyDrain {
			n, _, peekErr = unix.Recvfrom(int(fd), t.peek, unix.MSG_PEEK|unix.MSG_DONTWAIT)
			if peekErr != nil || n > 0 {
				return
			}

			// zero-length datagram at the head
			if _, _, peekErr = unix.Recvfrom(int(fd), nil, unix.MSG_DONTWAIT); peekErr != nil {
				return
			}
		}
	})
	if errors.Is(peekErr, unix.EAGAIN) || errors.Is(peekErr, unix.EWOULDBLOCK) || errors.Is(peekErr, unix.EINTR) {
		return 0
	}
	if err != nil || peekErr != nil {
		t.Close()
		return 0
	}

	return n
}

func (t *UDPTransport) SendTo(buf []byte, dst netip.AddrPort) error {
	if t.pconn == nil {
		return net.ErrClosed
	}

	if _, err := t.pconn.WriteTo(buf, nil, net.UDPAddrFromAddrPort(dst)); err != nil {
		t.Close()
		return err
	}

	return nil
}

func (t *UDPTransport) RecvFrom(buf []byte) (int, netip.AddrPort, error) {
	if t.pconn == nil {
		return 0, netip.AddrPort{}, net.ErrClosed
	}

	if err := t.pconn.SetReadDeadline(time.Now().Add(recvGuard)); err != nil {
		return 0, netip.AddrPort{}, err
	}

	n, _, addr, err := t.pconn.ReadFrom(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, netip.AddrPort{}, nil
		}

		t.Close()
		return 0, netip.AddrPort{}, err
	}

	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return n, netip.AddrPort{}, nil
	}

	src := udpAddr.AddrPort()
	return n, netip.AddrPortFrom(src.Addr().Unmap(), src.Port()), nil
}

func (t *UDPTransport) Close() error {
	if t.conn == nil {
		return nil
	}

	err := t.conn.Close()
	t.conn = nil
	t.pconn = nil

	return err
}
