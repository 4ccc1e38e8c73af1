package ntp

type TimestampEncoded = uint64

type ShortEncoded = uint32

type Mode byte

const (
	RESERVED Mode = iota
	SYMMETRIC_ACTIVE
	SYMMETRIC_PASSIVE
	CLIENT
	SERVER
	BROADCAST_SERVER
	BROADCAST_CLIENT
	RESERVED_PRIVATE_USE
)

const (
	Port = "123" // NTP port number

	VERSION byte = 4 // NTP version number

	NOSYNC byte = 0x3 // leap unsync

	PacketSize = 48

	// Integer seconds of the transmit timestamp. The fraction that follows is ignored.
	TransmitSecondsOffset = 40
	transmitSecondsEnd    = TransmitSecondsOffset + 4
)

func (m Mode) String() string {
	switch m {
	case SYMMETRIC_ACTIVE:
		return "symmetric-active"
	case SYMMETRIC_PASSIVE:
		return "symmetric-passive"
	case CLIENT:
		return "client"
	case SERVER:
		return "server"
	case BROADCAST_SERVER:
		return "broadcast-server"
	case BROADCAST_CLIENT:
		return "broadcast-client"
	default:
		return "reserved"
	}
}
