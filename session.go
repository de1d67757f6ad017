package mq

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gonzalop/mqisdp/internal/packets"
	"golang.org/x/sync/errgroup"
)

// Session is a connected MQTT 3.1 client. It is safe for concurrent use
// by multiple goroutines: Publish, Subscribe, Unsubscribe and Disconnect
// may all be called concurrently.
type Session struct {
	cfg *Config

	// transportMu/transportCond guard the single writer slot: transport
	// is nil while a reconnect is in progress, and send blocks on
	// transportCond until a new transport is installed.
	transportMu   sync.Mutex
	transportCond *sync.Cond
	transport     Transport

	dispatcher *dispatcher
	packetIDs  *packetIDAllocator

	handlersMu    sync.Mutex
	topicHandlers map[string][]func(*Message)
	subscriptions map[string]QoS // last granted QoS per filter, for Resubscribe

	qos2Mu      sync.Mutex
	qos2Pending map[uint16]struct{} // inbound QoS2 packet ids awaiting PUBREL

	reconnectMu     sync.Mutex
	onReconnect     []func()
	reconnectPeriod atomic.Int64 // nanoseconds; 0 disables automatic reconnect

	group      *errgroup.Group
	groupCtx   context.Context
	cancel     context.CancelFunc

	closeOnce sync.Once
	closed    chan struct{}

	lastActivity chan struct{} // signalled by every successful send, for the keep-alive loop
}

// Connect dials cfg.Dial, performs the CONNECT/CONNACK handshake, and
// starts the session's background receive and keep-alive loops. The
// returned Session is ready for Publish/Subscribe calls.
func Connect(ctx context.Context, cfg *Config) (*Session, error) {
	transport, err := cfg.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("mqisdp: dial: %w", err)
	}

	s := &Session{
		cfg:           cfg,
		dispatcher:    newDispatcher(),
		packetIDs:     newPacketIDAllocator(),
		topicHandlers: make(map[string][]func(*Message)),
		subscriptions: make(map[string]QoS),
		qos2Pending:   make(map[uint16]struct{}),
		closed:        make(chan struct{}),
		lastActivity:  make(chan struct{}, 1),
	}
	s.transportCond = sync.NewCond(&s.transportMu)
	s.transport = transport
	s.reconnectPeriod.Store(int64(cfg.ReconnectPeriod))

	if err := s.handshake(ctx, transport); err != nil {
		transport.Close()
		return nil, err
	}

	groupCtx, cancel := context.WithCancel(context.Background())
	g, groupCtx := errgroup.WithContext(groupCtx)
	s.group = g
	s.groupCtx = groupCtx
	s.cancel = cancel

	g.Go(func() error { return s.receiveLoop() })
	if cfg.KeepAlive > 0 {
		g.Go(func() error { return s.keepAliveLoop() })
	}

	return s, nil
}

// handshake sends CONNECT over transport and waits for CONNACK, failing
// on a non-zero return code.
func (s *Session) handshake(ctx context.Context, transport Transport) error {
	pkt := &packets.ConnectPacket{
		CleanSession: s.cfg.CleanSession,
		ClientID:     s.cfg.ClientID,
		KeepAlive:    uint16(s.cfg.KeepAlive / time.Second),
	}
	if s.cfg.HasUsername {
		pkt.UsernameFlag = true
		pkt.Username = s.cfg.Username
	}
	if s.cfg.HasPassword {
		pkt.PasswordFlag = true
		pkt.Password = s.cfg.Password
	}
	if s.cfg.Will != nil {
		pkt.WillFlag = true
		pkt.WillTopic = s.cfg.Will.Topic
		pkt.WillMessage = s.cfg.Will.Payload
		pkt.WillQoS = uint8(s.cfg.Will.QoS)
		pkt.WillRetain = s.cfg.Will.Retain
	}

	if err := sendPacket(transport, pkt); err != nil {
		return fmt.Errorf("mqisdp: sending CONNECT: %w", err)
	}

	deadline := s.cfg.ConnectTimeout
	if deadline <= 0 {
		deadline = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	type result struct {
		pkt *packets.ConnackPacket
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		raw, err := recvPacket(transport)
		if err != nil {
			resCh <- result{err: err}
			return
		}
		connack, ok := raw.(*packets.ConnackPacket)
		if !ok {
			resCh <- result{err: &ParseError{Detail: fmt.Sprintf("expected CONNACK, got %s", packets.PacketNames[raw.Type()])}}
			return
		}
		resCh <- result{pkt: connack}
	}()

	select {
	case r := <-resCh:
		if r.err != nil {
			return &connectError{Parent: r.err}
		}
		return connackError(r.pkt.ReturnCode)
	case <-connectCtx.Done():
		return &connectError{Parent: connectCtx.Err()}
	}
}

// connackError maps a CONNACK return code to an error, nil on success.
func connackError(code uint8) error {
	switch code {
	case packets.ConnAccepted:
		return nil
	case packets.ConnRefusedUnacceptableProtocol:
		return &connectError{ReturnCode: code, Parent: ErrUnacceptableProtocolVersion}
	case packets.ConnRefusedIdentifierRejected:
		return &connectError{ReturnCode: code, Parent: ErrIdentifierRejected}
	case packets.ConnRefusedServerUnavailable:
		return &connectError{ReturnCode: code, Parent: ErrServerUnavailable}
	case packets.ConnRefusedBadUsernameOrPassword:
		return &connectError{ReturnCode: code, Parent: ErrBadUsernameOrPassword}
	case packets.ConnRefusedNotAuthorized:
		return &connectError{ReturnCode: code, Parent: ErrNotAuthorized}
	default:
		return &connectError{ReturnCode: code}
	}
}

// send writes pkt over the current transport, waiting if a reconnect is
// in progress (transport == nil).
func (s *Session) send(pkt packets.Packet) error {
	s.transportMu.Lock()
	for s.transport == nil {
		select {
		case <-s.closed:
			s.transportMu.Unlock()
			return ErrClientDisconnected
		default:
		}
		s.transportCond.Wait()
	}
	t := s.transport
	s.transportMu.Unlock()

	if err := sendPacket(t, pkt); err != nil {
		return err
	}
	select {
	case s.lastActivity <- struct{}{}:
	default:
	}
	return nil
}

// OnReconnect registers a callback invoked after every successful
// reconnect handshake, in the order registered. Callbacks run on a
// goroutine of their own while the receive loop resumes, so a callback
// may call Resubscribe or any other blocking Session method.
func (s *Session) OnReconnect(fn func()) {
	s.reconnectMu.Lock()
	defer s.reconnectMu.Unlock()
	s.onReconnect = append(s.onReconnect, fn)
}

// Reconnect changes how long the receive loop waits between reconnect
// attempts after a transport failure, taking effect on the next failure.
// A zero period disables automatic reconnection entirely: a transport
// failure then tears the session down instead of retrying.
func (s *Session) Reconnect(period time.Duration) {
	s.reconnectPeriod.Store(int64(period))
}

// Send writes an already-built packet over the session's transport,
// blocking while a reconnect is in progress. It is the low-level
// primitive Publish and Subscribe are built on top of.
func (s *Session) Send(pkt packets.Packet) error {
	return s.send(pkt)
}

// AddHandler registers a standing callback invoked for every inbound
// packet of msgType (an internal/packets control-packet constant such as
// packets.PUBLISH), and returns an id RemoveHandler can use to undo the
// registration. The receive loop dispatches PUBLISH, PUBACK, PUBREC,
// PUBREL, PUBCOMP, SUBACK, UNSUBACK and PINGRESP; each standing handler
// runs on its own goroutine.
func (s *Session) AddHandler(msgType uint8, handler func(pkt interface{})) string {
	return s.dispatcher.AddHandler(msgType, handler)
}

// RemoveHandler undoes a previous AddHandler.
func (s *Session) RemoveHandler(msgType uint8, id string) {
	s.dispatcher.RemoveHandler(msgType, id)
}

// AwaitMsg blocks until a packet of msgType carrying packetID is
// dispatched, ctx is cancelled, or ctx's deadline passes. Publish and
// Subscribe use this same correlation internally to drive the QoS
// handshakes and the SUBACK/UNSUBACK waits.
func (s *Session) AwaitMsg(ctx context.Context, msgType uint8, packetID uint16) (interface{}, error) {
	return s.dispatcher.AwaitMsg(ctx, msgType, packetID)
}

// Disconnect sends DISCONNECT (best-effort), stops the background loops
// and closes the transport. It is safe to call more than once.
func (s *Session) Disconnect(ctx context.Context) error {
	var sendErr error
	s.closeOnce.Do(func() {
		s.transportMu.Lock()
		t := s.transport
		s.transportMu.Unlock()
		if t != nil {
			sendErr = sendPacket(t, &packets.DisconnectPacket{})
		}
		close(s.closed)
		if t != nil {
			t.Close()
		}
		if s.cancel != nil {
			s.cancel()
		}
		s.transportMu.Lock()
		s.transportCond.Broadcast()
		s.transportMu.Unlock()
		if s.group != nil {
			s.group.Wait()
		}
	})
	return sendErr
}
