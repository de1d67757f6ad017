package mq

import (
	"github.com/gonzalop/mqisdp/internal/packets"
)

// receiveLoop owns the read side of the current transport: it decodes one
// packet at a time and hands it to the dispatcher, for a pending AwaitMsg
// and any standing handlers to pick up (CONNACK is handled during the
// handshake, SUBACK/UNSUBACK/PUBACK/PUBREC/PUBCOMP are all
// request/response correlated by packet id, PINGRESP is correlated with
// id 0). Inbound PUBLISH and PUBREL are also answered directly, driving
// the receiver side of the QoS 1/2 flows.
func (s *Session) receiveLoop() error {
	for {
		s.transportMu.Lock()
		for s.transport == nil {
			select {
			case <-s.closed:
				s.transportMu.Unlock()
				return nil
			default:
			}
			s.transportCond.Wait()
		}
		t := s.transport
		s.transportMu.Unlock()

		pkt, err := recvPacket(t)
		if err != nil {
			select {
			case <-s.closed:
				return nil
			default:
			}
			if !s.handleTransportFailure(err) {
				return err
			}
			continue
		}

		s.handleInbound(pkt)
	}
}

func (s *Session) handleInbound(pkt packets.Packet) {
	switch p := pkt.(type) {
	case *packets.PublishPacket:
		s.dispatcher.Dispatch(packets.PUBLISH, p.PacketID, p)
		s.handlePublish(p)
	case *packets.PubackPacket:
		s.dispatcher.Dispatch(packets.PUBACK, p.PacketID, p)
	case *packets.PubrecPacket:
		s.dispatcher.Dispatch(packets.PUBREC, p.PacketID, p)
	case *packets.PubrelPacket:
		s.dispatcher.Dispatch(packets.PUBREL, p.PacketID, p)
		s.handlePubrel(p)
	case *packets.PubcompPacket:
		s.dispatcher.Dispatch(packets.PUBCOMP, p.PacketID, p)
	case *packets.SubackPacket:
		s.dispatcher.Dispatch(packets.SUBACK, p.PacketID, p)
	case *packets.UnsubackPacket:
		s.dispatcher.Dispatch(packets.UNSUBACK, p.PacketID, p)
	case *packets.PingrespPacket:
		s.dispatcher.Dispatch(packets.PINGRESP, 0, p)
	default:
		s.cfg.Logger.Warning("mqisdp: received unexpected packet type ", pkt.Type())
	}
}

// handlePublish runs the inbound QoS flow: AtMostOnce delivers straight
// away, AtLeastOnce delivers and then acknowledges with PUBACK, and
// ExactlyOnce records the packet id, delivers, and answers PUBREC. A QoS 2
// PUBLISH replayed with the same packet id before its PUBREL arrives is
// answered with PUBREC again but not delivered a second time.
func (s *Session) handlePublish(p *packets.PublishPacket) {
	switch QoS(p.QoS) {
	case AtMostOnce:
		s.dispatchToTopicHandlers(p)

	case AtLeastOnce:
		s.dispatchToTopicHandlers(p)
		if err := s.send(&packets.PubackPacket{PacketID: p.PacketID}); err != nil {
			s.cfg.Logger.Warning("mqisdp: sending PUBACK: ", err)
		}

	case ExactlyOnce:
		s.qos2Mu.Lock()
		_, duplicate := s.qos2Pending[p.PacketID]
		if !duplicate {
			s.qos2Pending[p.PacketID] = struct{}{}
		}
		s.qos2Mu.Unlock()

		if !duplicate {
			s.dispatchToTopicHandlers(p)
		}
		if err := s.send(&packets.PubrecPacket{PacketID: p.PacketID}); err != nil {
			s.cfg.Logger.Warning("mqisdp: sending PUBREC: ", err)
		}
	}
}

func (s *Session) handlePubrel(p *packets.PubrelPacket) {
	s.qos2Mu.Lock()
	delete(s.qos2Pending, p.PacketID)
	s.qos2Mu.Unlock()

	if err := s.send(&packets.PubcompPacket{PacketID: p.PacketID}); err != nil {
		s.cfg.Logger.Warning("mqisdp: sending PUBCOMP: ", err)
	}
}

// dispatchToTopicHandlers delivers an inbound PUBLISH to every registered
// handler whose filter matches the packet's topic, each in its own
// goroutine so a slow callback never blocks the receive loop.
func (s *Session) dispatchToTopicHandlers(p *packets.PublishPacket) {
	msg := &Message{
		Topic:     p.Topic,
		Payload:   p.Payload,
		QoS:       QoS(p.QoS),
		Retained:  p.Retain,
		Duplicate: p.Dup,
	}

	s.handlersMu.Lock()
	var matched []func(*Message)
	for filter, fns := range s.topicHandlers {
		if MatchTopic(filter, p.Topic) {
			matched = append(matched, fns...)
		}
	}
	s.handlersMu.Unlock()

	for _, fn := range matched {
		fn := fn
		go fn(msg)
	}
}
