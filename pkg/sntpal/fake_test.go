package sntpal_test

import (
	"net/netip"

	"github.com/stretchr/testify/mock"

	"github.com/AndrewLester/sntpal/internal/ntp"
	"github.com/AndrewLester/sntpal/pkg/sntpal"
)

const (
	testServer  = "192.0.2.10"
	testSeconds = 3485857326 // 2010-06-18 13:42:06 UTC
)

func serverResponse(seconds uint64) []byte {
	return ntp.EncodePacket(ntp.Packet{
		Version: ntp.VERSION,
		Mode:    ntp.SERVER,
		NtpFieldsEncoded: ntp.NtpFieldsEncoded{
			Stratum: 2,
			Xmt:     seconds<<32 | 0x8000_0000,
		},
	})
}

// fakeTransport is an in-memory Transport. Datagrams queued in inbox are
// delivered in order; onSend lets a test react to requests.
type fakeTransport struct {
	state  sntpal.TransportState
	opens  int
	closes int

	sent  [][]byte
	dsts  []netip.AddrPort
	inbox [][]byte
	reads []int // buffer sizes passed to RecvFrom

	source netip.AddrPort // sender reported by RecvFrom, testServer:123 when unset

	openErr error
	sendErr error

	onSend func(f *fakeTransport)
}

func (f *fakeTransport) Open(uint16) error {
	if f.openErr != nil {
		return f.openErr
	}

	f.opens++
	f.state = sntpal.TransportBound

	return nil
}

func (f *fakeTransport) State() sntpal.TransportState {
	return f.state
}

func (f *fakeTransport) Available() int {
	if f.state == sntpal.TransportClosed || len(f.inbox) == 0 {
		return 0
	}

	return len(f.inbox[0])
}

func (f *fakeTransport) SendTo(buf []byte, dst netip.AddrPort) error {
	if f.sendErr != nil {
		return f.sendErr
	}

	f.sent = append(f.sent, append([]byte(nil), buf...))
	f.dsts = append(f.dsts, dst)

	if f.onSend != nil {
		f.onSend(f)
	}

	return nil
}

func (f *fakeTransport) RecvFrom(buf []byte) (int, netip.AddrPort, error) {
	f.reads = append(f.reads, len(buf))

	datagram := f.inbox[0]
	f.inbox = f.inbox[1:]

	source := f.source
	if !source.IsValid() {
		source = netip.MustParseAddrPort(testServer + ":123")
	}

	return copy(buf, datagram), source, nil
}

func (f *fakeTransport) Close() error {
	f.closes++
	f.state = sntpal.TransportClosed

	return nil
}

// respondOnSend queues a server response for every request.
func respondOnSend(seconds uint64) func(f *fakeTransport) {
	return func(f *fakeTransport) {
		f.inbox = append(f.inbox, serverResponse(seconds))
	}
}

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Open(localPort uint16) error {
	return m.Called(localPort).Error(0)
}

func (m *mockTransport) State() sntpal.TransportState {
	return m.Called().Get(0).(sntpal.TransportState)
}

func (m *mockTransport) Available() int {
	return m.Called().Int(0)
}

func (m *mockTransport) SendTo(buf []byte, dst netip.AddrPort) error {
	return m.Called(buf, dst).Error(0)
}

func (m *mockTransport) RecvFrom(buf []byte) (int, netip.AddrPort, error) {
	args := m.Called(buf)
	return args.Int(0), args.Get(1).(netip.AddrPort), args.Error(2)
}

func (m *mockTransport) Close() error {
	return m.Called().Error(0)
}
