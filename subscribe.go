package mq

import (
	"context"
	"fmt"

	"github.com/gonzalop/mqisdp/internal/packets"
)

// Subscribe sends a SUBSCRIBE for the single topic filter at the given
// QoS, registers handler to receive matching inbound PUBLISH messages,
// and blocks for SUBACK. It returns the QoS the broker actually granted,
// which may be lower than requested, or ErrSubscriptionRefused if the
// broker's return code is the SUBACK failure code 0x80.
func (s *Session) Subscribe(ctx context.Context, filter string, qos QoS, handler func(msg *Message)) (QoS, error) {
	if err := validateSubscribeTopic(filter); err != nil {
		return 0, err
	}

	id := s.packetIDs.Acquire()
	defer s.packetIDs.Release(id)

	pkt := &packets.SubscribePacket{
		PacketID: id,
		Topics:   []string{filter},
		QoS:      []uint8{uint8(qos)},
	}
	ch, cancel := s.dispatcher.awaitChan(packets.SUBACK, id)
	if err := s.send(pkt); err != nil {
		cancel()
		return 0, err
	}

	raw, err := s.dispatcher.wait(ctx, ch, cancel)
	if err != nil {
		return 0, err
	}
	suback := raw.(*packets.SubackPacket)
	if len(suback.ReturnCodes) == 0 {
		return 0, &ParseError{Detail: "SUBACK carries no return codes"}
	}
	code := suback.ReturnCodes[0]
	if code == packets.SubackFailure {
		return 0, ErrSubscriptionRefused
	}

	s.handlersMu.Lock()
	s.topicHandlers[filter] = append(s.topicHandlers[filter], handler)
	s.handlersMu.Unlock()

	grantedQoS := QoS(code)
	s.handlersMu.Lock()
	s.subscriptions[filter] = grantedQoS
	s.handlersMu.Unlock()

	return grantedQoS, nil
}

// Unsubscribe sends UNSUBSCRIBE for filter, blocks for UNSUBACK, and then
// removes every handler previously registered under exactly that filter
// string. It does not attempt prefix or wildcard-aware matching against
// other registered filters: only an identical filter string is removed,
// matching the MQTT semantics of an UNSUBSCRIBE request (MQTT-3.10.4-1).
func (s *Session) Unsubscribe(ctx context.Context, filter string) error {
	id := s.packetIDs.Acquire()
	defer s.packetIDs.Release(id)

	pkt := &packets.UnsubscribePacket{
		PacketID: id,
		Topics:   []string{filter},
	}
	ch, cancel := s.dispatcher.awaitChan(packets.UNSUBACK, id)
	if err := s.send(pkt); err != nil {
		cancel()
		return err
	}
	if _, err := s.dispatcher.wait(ctx, ch, cancel); err != nil {
		return err
	}

	s.handlersMu.Lock()
	delete(s.topicHandlers, filter)
	delete(s.subscriptions, filter)
	s.handlersMu.Unlock()
	return nil
}

// Resubscribe re-sends SUBSCRIBE for every filter this session currently
// holds a granted subscription for, in the QoS it was last granted at.
// Call it after a reconnect (e.g. from an OnReconnect callback) to
// restore subscriptions a clean-session broker has forgotten. Each
// filter's handlers are cleared and then added back one Subscribe call
// at a time (one SUBSCRIBE per handler), so a matching PUBLISH that
// arrives before a handler's SUBACK is not delivered to it. If a
// Subscribe fails, the filter's full handler list is restored and the
// error returned; filters not yet reached are left as they were.
func (s *Session) Resubscribe(ctx context.Context) error {
	s.handlersMu.Lock()
	filters := make(map[string]QoS, len(s.subscriptions))
	for filter, qos := range s.subscriptions {
		filters[filter] = qos
	}
	handlers := make(map[string][]func(*Message), len(s.topicHandlers))
	for filter, fns := range s.topicHandlers {
		handlers[filter] = append([]func(*Message){}, fns...)
	}
	s.handlersMu.Unlock()

	for filter, qos := range filters {
		fns := handlers[filter]

		s.handlersMu.Lock()
		s.topicHandlers[filter] = nil
		s.handlersMu.Unlock()

		for _, fn := range fns {
			if _, err := s.Subscribe(ctx, filter, qos, fn); err != nil {
				s.handlersMu.Lock()
				s.topicHandlers[filter] = fns
				s.handlersMu.Unlock()
				return fmt.Errorf("mqisdp: resubscribing %q: %w", filter, err)
			}
		}
	}
	return nil
}
