package mq

import (
	"context"

	"github.com/gonzalop/mqisdp/internal/packets"
)

// Publish sends a PUBLISH for topic carrying payload at the given QoS,
// blocking until the flow completes: AtMostOnce returns as soon as the
// packet is written, AtLeastOnce waits for PUBACK, and ExactlyOnce drives
// the full PUBREC/PUBREL/PUBCOMP handshake.
func (s *Session) Publish(ctx context.Context, qos QoS, retain bool, topic string, payload []byte) error {
	if err := validatePublishTopic(topic); err != nil {
		return err
	}
	if err := validatePayload(payload); err != nil {
		return err
	}

	pkt := &packets.PublishPacket{
		QoS:     uint8(qos),
		Retain:  retain,
		Topic:   topic,
		Payload: payload,
	}

	if qos == AtMostOnce {
		return s.send(pkt)
	}

	id := s.packetIDs.Acquire()
	defer s.packetIDs.Release(id)
	pkt.PacketID = id

	if qos == AtLeastOnce {
		ch, cancel := s.dispatcher.awaitChan(packets.PUBACK, id)
		if err := s.send(pkt); err != nil {
			cancel()
			return err
		}
		_, err := s.dispatcher.wait(ctx, ch, cancel)
		return err
	}

	// ExactlyOnce: wait for PUBREC, then send PUBREL, then wait for
	// PUBCOMP. Each await is registered before the packet that triggers
	// the reply is written, so a reply racing in ahead of the wait call
	// is never dropped.
	pubrecCh, pubrecCancel := s.dispatcher.awaitChan(packets.PUBREC, id)
	if err := s.send(pkt); err != nil {
		pubrecCancel()
		return err
	}
	if _, err := s.dispatcher.wait(ctx, pubrecCh, pubrecCancel); err != nil {
		return err
	}

	pubcompCh, pubcompCancel := s.dispatcher.awaitChan(packets.PUBCOMP, id)
	if err := s.send(&packets.PubrelPacket{PacketID: id}); err != nil {
		pubcompCancel()
		return err
	}
	_, err := s.dispatcher.wait(ctx, pubcompCh, pubcompCancel)
	return err
}
