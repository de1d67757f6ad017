package mq

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// packetHandler receives a fully decoded inbound packet.
type packetHandler func(pkt interface{})

// await is a single-shot correlation entry: Dispatch delivers the first
// packet matching (msgType, packetID) to ch, then removes the entry.
type await struct {
	msgType  uint8
	packetID uint16
	ch       chan interface{}
}

// dispatcher fans inbound packets out to registered handlers and to any
// pending single-shot awaits, keyed by packet type and (where relevant)
// packet id. Handlers are invoked in their own goroutine so a slow
// callback never stalls the receive loop.
type dispatcher struct {
	mu       sync.Mutex
	handlers map[uint8]map[string]packetHandler
	awaits   []*await
}

func newDispatcher() *dispatcher {
	return &dispatcher{handlers: make(map[uint8]map[string]packetHandler)}
}

// AddHandler registers a standing handler for msgType, returning an id
// that can later be passed to RemoveHandler.
func (d *dispatcher) AddHandler(msgType uint8, h packetHandler) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := uuid.NewString()
	if d.handlers[msgType] == nil {
		d.handlers[msgType] = make(map[string]packetHandler)
	}
	d.handlers[msgType][id] = h
	return id
}

func (d *dispatcher) RemoveHandler(msgType uint8, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers[msgType], id)
}

// awaitChan registers a pending await for (msgType, packetID) and returns
// the channel Dispatch will deliver to, plus a cancel func to abandon the
// wait without a matching packet ever arriving.
func (d *dispatcher) awaitChan(msgType uint8, packetID uint16) (<-chan interface{}, func()) {
	a := &await{msgType: msgType, packetID: packetID, ch: make(chan interface{}, 1)}
	d.mu.Lock()
	d.awaits = append(d.awaits, a)
	d.mu.Unlock()

	cancel := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, cur := range d.awaits {
			if cur == a {
				d.awaits = append(d.awaits[:i], d.awaits[i+1:]...)
				break
			}
		}
	}
	return a.ch, cancel
}

// AwaitMsg blocks until a packet of msgType with the given packetID
// arrives, ctx is cancelled, or ctx's deadline passes.
func (d *dispatcher) AwaitMsg(ctx context.Context, msgType uint8, packetID uint16) (interface{}, error) {
	ch, cancel := d.awaitChan(msgType, packetID)
	return d.wait(ctx, ch, cancel)
}

// wait blocks on an await channel already registered by awaitChan. Callers
// that need to avoid a race against a fast reply (register the await,
// write the request, then wait) call awaitChan and wait directly instead
// of going through AwaitMsg, which registers and waits as one step.
func (d *dispatcher) wait(ctx context.Context, ch <-chan interface{}, cancel func()) (interface{}, error) {
	select {
	case pkt := <-ch:
		return pkt, nil
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}
}

// Dispatch delivers pkt to every matching await (removing each as it's
// delivered) and to every standing handler for msgType, each in its own
// goroutine.
func (d *dispatcher) Dispatch(msgType uint8, packetID uint16, pkt interface{}) {
	d.mu.Lock()
	var matched []*await
	remaining := d.awaits[:0]
	for _, a := range d.awaits {
		if a.msgType == msgType && a.packetID == packetID {
			matched = append(matched, a)
		} else {
			remaining = append(remaining, a)
		}
	}
	d.awaits = remaining

	var toRun []packetHandler
	for _, h := range d.handlers[msgType] {
		toRun = append(toRun, h)
	}
	d.mu.Unlock()

	for _, a := range matched {
		a.ch <- pkt
	}
	for _, h := range toRun {
		h := h
		go h(pkt)
	}
}
