package packets

import (
	"io"
)

// DisconnectPacket represents an MQTT DISCONNECT control packet: fixed
// header only, no variable header or payload.
type DisconnectPacket struct{}

// Type returns the packet type.
func (p *DisconnectPacket) Type() uint8 {
	return DISCONNECT
}

// WriteTo writes the DISCONNECT packet to the writer.
func (p *DisconnectPacket) WriteTo(w io.Writer) (int64, error) {
	header := &FixedHeader{PacketType: DISCONNECT, RemainingLength: 0}
	return header.WriteTo(w)
}

// DecodeDisconnect decodes a DISCONNECT packet (no payload).
func DecodeDisconnect(buf []byte) (*DisconnectPacket, error) {
	return &DisconnectPacket{}, nil
}
