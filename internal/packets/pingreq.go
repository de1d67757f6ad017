package packets

import (
	"io"
)

// PingreqPacket represents an MQTT PINGREQ control packet: fixed header
// only, no variable header or payload.
type PingreqPacket struct{}

// Type returns the packet type.
func (p *PingreqPacket) Type() uint8 {
	return PINGREQ
}

// WriteTo writes the PINGREQ packet to the writer.
func (p *PingreqPacket) WriteTo(w io.Writer) (int64, error) {
	header := &FixedHeader{PacketType: PINGREQ, RemainingLength: 0}
	return header.WriteTo(w)
}

// DecodePingreq decodes a PINGREQ packet (no payload).
func DecodePingreq(buf []byte) (*PingreqPacket, error) {
	return &PingreqPacket{}, nil
}
