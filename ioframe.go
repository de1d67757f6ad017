package mq

import (
	"errors"

	"github.com/gonzalop/mqisdp/internal/packets"
)

// transportReader adapts Transport's ReadExact to io.Reader so the wire
// codec's ReadPacket (which reads the fixed header and remaining length
// one byte at a time) can be driven straight off a Transport without the
// core opening its own buffering.
type transportReader struct {
	t Transport
}

func (r transportReader) Read(p []byte) (int, error) {
	b, err := r.t.ReadExact(len(p))
	n := copy(p, b)
	return n, err
}

// recvPacket reads one complete framed packet off t. A codec ParseError
// is returned as this package's *ParseError.
func recvPacket(t Transport) (packets.Packet, error) {
	pkt, err := packets.ReadPacket(transportReader{t: t})
	var pe *packets.ParseError
	if errors.As(err, &pe) {
		return nil, &ParseError{Detail: pe.Detail}
	}
	return pkt, err
}

// sendPacket serializes pkt and writes it to t in one call.
func sendPacket(t Transport, pkt packets.Packet) error {
	var buf writerBuffer
	if _, err := pkt.WriteTo(&buf); err != nil {
		return err
	}
	return t.WriteAll(buf.b)
}

// writerBuffer is a minimal io.Writer sink, avoiding a dependency on
// bytes.Buffer for what is just an append target.
type writerBuffer struct {
	b []byte
}

func (w *writerBuffer) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}
