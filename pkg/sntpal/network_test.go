package sntpal_test

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrewLester/sntpal/internal/ntp"
	"github.com/AndrewLester/sntpal/pkg/civil"
	"github.com/AndrewLester/sntpal/pkg/sntpal"
)

// startServer answers every request on a loopback socket with seconds in the
// transmit timestamp, after dropping the first drop requests. With empty set,
// each reply is preceded by a zero-length datagram.
func startServer(t *testing.T, seconds uint64, drop int, empty bool) netip.AddrPort {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	t.Cleanup(func() { conn.Close() })

	go func() {
		packet := make([]byte, 1300)

		for {
			n, addr, err := conn.ReadFromUDP(packet)
			if err != nil {
				return
			}

			request, err := ntp.DecodePacket(packet[:n])
			if err != nil || request.Mode != ntp.CLIENT {
				continue
			}

			if drop > 0 {
				drop--
				continue
			}

			if empty {
				conn.WriteToUDP(nil, addr)
			}

			conn.WriteToUDP(serverResponse(seconds), addr)
		}
	}()

	return conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

func TestUDPTransport(t *testing.T) {
	server := startServer(t, testSeconds, 0, false)

	transport := &sntpal.UDPTransport{Host: "127.0.0.1", TTL: 16}
	assert.Equal(t, sntpal.TransportClosed, transport.State())
	assert.Zero(t, transport.Available())

	require.NoError(t, transport.Open(0))
	t.Cleanup(func() { transport.Close() })

	assert.Equal(t, sntpal.TransportBound, transport.State())
	assert.True(t, transport.LocalAddr().IsValid())
	assert.Zero(t, transport.Available())

	request := ntp.BuildRequest(0, ntp.VERSION, ntp.CLIENT)
	require.NoError(t, transport.SendTo(request[:], server))

	require.Eventually(t, func() bool {
		return transport.Available() > 0
	}, 2*time.Second, time.Millisecond)

	// truncated to the caller's buffer
	buf := make([]byte, 44)
	n, src, err := transport.RecvFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, 44, n)
	assert.Equal(t, server, src)

	seconds, err := ntp.ParseTransmitSeconds(buf[:n])
	require.NoError(t, err)
	assert.EqualValues(t, testSeconds, seconds)

	assert.Zero(t, transport.Available())

	require.NoError(t, transport.Close())
	assert.Equal(t, sntpal.TransportClosed, transport.State())
	assert.ErrorIs(t, transport.SendTo(request[:], server), net.ErrClosed)
}

func TestQueryLoopback(t *testing.T) {
	server := startServer(t, testSeconds, 1, false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	progress := make(chan uint16, 8)

	result, err := sntpal.Query(ctx, sntpal.Config{
		Server:        server.String(),
		Timezone:      39,
		RetryCap:      20,
		PollsPerRetry: 200,
		PollInterval:  time.Millisecond,
	},
		sntpal.WithTransport(&sntpal.UDPTransport{Host: "127.0.0.1"}),
		sntpal.WithProgress(progress),
	)
	require.NoError(t, err)

	assert.Equal(t, civil.DateTime{Year: 2010, Month: 6, Day: 18, Hour: 21, Minute: 42, Second: 6}, result.DateTime)
	assert.EqualValues(t, testSeconds, result.Seconds)
	assert.EqualValues(t, 2, result.Requests, "first request is dropped by the server")
	assert.Len(t, progress, 2)
}

func TestUDPTransportEmptyDatagram(t *testing.T) {
	server := startServer(t, testSeconds, 0, true)

	transport := &sntpal.UDPTransport{Host: "127.0.0.1"}
	require.NoError(t, transport.Open(0))
	t.Cleanup(func() { transport.Close() })

	request := ntp.BuildRequest(0, ntp.VERSION, ntp.CLIENT)
	require.NoError(t, transport.SendTo(request[:], server))

	// the empty datagram is skipped, the reply behind it is reported
	require.Eventually(t, func() bool {
		return transport.Available() == ntp.PacketSize
	}, 2*time.Second, time.Millisecond)

	buf := make([]byte, ntp.PacketSize)
	n, src, err := transport.RecvFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, ntp.PacketSize, n)
	assert.Equal(t, server, src)
	assert.Equal(t, sntpal.TransportBound, transport.State())
}

func TestQueryLoopbackEmptyDatagram(t *testing.T) {
	server := startServer(t, testSeconds, 0, true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := sntpal.Query(ctx, sntpal.Config{
		Server:        server.String(),
		Timezone:      21,
		RetryCap:      5,
		PollsPerRetry: 100,
		PollInterval:  time.Millisecond,
	}, sntpal.WithTransport(&sntpal.UDPTransport{Host: "127.0.0.1"}))
	require.NoError(t, err)

	assert.Equal(t, civil.DateTime{Year: 2010, Month: 6, Day: 18, Hour: 13, Minute: 42, Second: 6}, result.DateTime)
	assert.EqualValues(t, 1, result.Requests)
}
