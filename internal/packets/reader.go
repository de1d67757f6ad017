package packets

import (
	"fmt"
	"io"
)

// packetDecoders maps a fixed-header packet type to the function that
// decodes its variable header + payload from the already-read remaining
// bytes.
var packetDecoders = map[uint8]func(remaining []byte, header *FixedHeader) (Packet, error){
	CONNECT:     func(remaining []byte, _ *FixedHeader) (Packet, error) { return DecodeConnect(remaining) },
	CONNACK:     func(remaining []byte, _ *FixedHeader) (Packet, error) { return DecodeConnack(remaining) },
	PUBLISH:     func(remaining []byte, header *FixedHeader) (Packet, error) { return DecodePublish(remaining, header) },
	PUBACK:      func(remaining []byte, _ *FixedHeader) (Packet, error) { return DecodePuback(remaining) },
	PUBREC:      func(remaining []byte, _ *FixedHeader) (Packet, error) { return DecodePubrec(remaining) },
	PUBREL:      func(remaining []byte, _ *FixedHeader) (Packet, error) { return DecodePubrel(remaining) },
	PUBCOMP:     func(remaining []byte, _ *FixedHeader) (Packet, error) { return DecodePubcomp(remaining) },
	SUBSCRIBE:   func(remaining []byte, _ *FixedHeader) (Packet, error) { return DecodeSubscribe(remaining) },
	SUBACK:      func(remaining []byte, _ *FixedHeader) (Packet, error) { return DecodeSuback(remaining) },
	UNSUBSCRIBE: func(remaining []byte, _ *FixedHeader) (Packet, error) { return DecodeUnsubscribe(remaining) },
	UNSUBACK:    func(remaining []byte, _ *FixedHeader) (Packet, error) { return DecodeUnsuback(remaining) },
	PINGREQ:     func(remaining []byte, _ *FixedHeader) (Packet, error) { return DecodePingreq(remaining) },
	PINGRESP:    func(remaining []byte, _ *FixedHeader) (Packet, error) { return DecodePingresp(remaining) },
	DISCONNECT:  func(remaining []byte, _ *FixedHeader) (Packet, error) { return DecodeDisconnect(remaining) },
}

// ReadPacket reads one complete framed MQTT packet from r: one byte fixed
// header, the Remaining Length varint, then exactly that many bytes, which
// are then parsed according to the packet type. A short read surfaces the
// underlying io.EOF/io.ErrUnexpectedEOF; a malformed packet surfaces a
// ParseError.
func ReadPacket(r io.Reader) (Packet, error) {
	header, err := DecodeFixedHeader(r)
	if err != nil {
		return nil, err
	}

	if header.RemainingLength > MaxRemainingLength {
		return nil, &ParseError{Detail: fmt.Sprintf("packet size %d exceeds maximum %d", header.RemainingLength, MaxRemainingLength)}
	}

	var remaining []byte
	if header.RemainingLength > 0 {
		remaining = make([]byte, header.RemainingLength)
		if _, err := io.ReadFull(r, remaining); err != nil {
			return nil, err
		}
	}

	decoder, ok := packetDecoders[header.PacketType]
	if !ok {
		return nil, &ParseError{Detail: fmt.Sprintf("unknown packet type: %d", header.PacketType)}
	}

	return decoder(remaining, header)
}
