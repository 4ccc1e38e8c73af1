package ntp

import (
	"bytes"
	"encoding/binary"
	"errors"
)

var ErrShortPacket = errors.New("ntp: packet too short")

type Packet struct {
	Leap    byte /* leap indicator */
	Version byte /* version number */
	Mode    Mode /* mode */
	NtpFieldsEncoded
}

type NtpFieldsEncoded struct {
	Stratum   byte             /* stratum */
	Poll      int8             /* poll interval */
	Precision int8             /* precision */
	Rootdelay ShortEncoded     /* root delay */
	Rootdisp  ShortEncoded     /* root dispersion */
	Refid     ShortEncoded     /* reference ID */
	Reftime   TimestampEncoded /* reference time */
	Org       TimestampEncoded /* origin timestamp */
	Rec       TimestampEncoded /* receive timestamp */
	Xmt       TimestampEncoded /* transmit timestamp */
}

func flagByte(leap, version byte, mode Mode) byte {
	return (leap&0b11)<<6 | (version&0b111)<<3 | byte(mode)&0b111
}

// BuildRequest returns a zeroed request with only the leap/version/mode byte set.
func BuildRequest(leap, version byte, mode Mode) [PacketSize]byte {
	var request [PacketSize]byte
	request[0] = flagByte(leap, version, mode)
	return request
}

// ParseTransmitSeconds reads the integer seconds of the transmit timestamp.
func ParseTransmitSeconds(response []byte) (uint64, error) {
	if len(response) < transmitSecondsEnd {
		return 0, ErrShortPacket
	}

	return uint64(binary.BigEndian.Uint32(response[TransmitSecondsOffset:transmitSecondsEnd])), nil
}

func EncodePacket(packet Packet) []byte {
	var buffer bytes.Buffer
	buffer.Grow(PacketSize)
	buffer.WriteByte(flagByte(packet.Leap, packet.Version, packet.Mode))
	binary.Write(&buffer, binary.BigEndian, &packet.NtpFieldsEncoded)
	return buffer.Bytes()
}

func DecodePacket(encoded []byte) (*Packet, error) {
	if len(encoded) < PacketSize {
		return nil, ErrShortPacket
	}

	reader := bytes.NewReader(encoded[:PacketSize])
	firstByte, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	fieldsEncoded := NtpFieldsEncoded{}
	if err := binary.Read(reader, binary.BigEndian, &fieldsEncoded); err != nil {
		return nil, err
	}

	return &Packet{
		Leap:             firstByte >> 6,
		Version:          (firstByte >> 3) & 0b111,
		Mode:             Mode(firstByte & 0b111),
		NtpFieldsEncoded: fieldsEncoded,
	}, nil
}
