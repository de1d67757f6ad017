package mq

import (
	"context"
	"testing"
	"time"

	"github.com/gonzalop/mqisdp/internal/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherAwaitMsgDeliversMatchingPacket(t *testing.T) {
	d := newDispatcher()

	resultCh := make(chan interface{}, 1)
	errCh := make(chan error, 1)
	go func() {
		pkt, err := d.AwaitMsg(context.Background(), packets.PUBACK, 7)
		resultCh <- pkt
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond) // let AwaitMsg register
	want := &packets.PubackPacket{PacketID: 7}
	d.Dispatch(packets.PUBACK, 7, want)

	require.NoError(t, <-errCh)
	assert.Same(t, want, <-resultCh)
}

func TestDispatcherAwaitMsgIgnoresNonMatchingPacketID(t *testing.T) {
	d := newDispatcher()

	resultCh := make(chan interface{}, 1)
	go func() {
		pkt, _ := d.AwaitMsg(context.Background(), packets.PUBACK, 7)
		resultCh <- pkt
	}()

	time.Sleep(10 * time.Millisecond)
	d.Dispatch(packets.PUBACK, 8, &packets.PubackPacket{PacketID: 8})

	select {
	case <-resultCh:
		t.Fatal("AwaitMsg delivered a packet with the wrong packet id")
	case <-time.After(20 * time.Millisecond):
	}

	want := &packets.PubackPacket{PacketID: 7}
	d.Dispatch(packets.PUBACK, 7, want)
	assert.Same(t, want, <-resultCh)
}

func TestDispatcherAwaitMsgContextCancellation(t *testing.T) {
	d := newDispatcher()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := d.AwaitMsg(ctx, packets.PUBACK, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The abandoned await must have been removed, not leaked.
	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Empty(t, d.awaits)
}

func TestDispatcherStandingHandlerRunsForEveryMatchingPacket(t *testing.T) {
	d := newDispatcher()

	received := make(chan interface{}, 2)
	id := d.AddHandler(packets.PINGRESP, func(pkt interface{}) {
		received <- pkt
	})

	d.Dispatch(packets.PINGRESP, 0, &packets.PingrespPacket{})
	d.Dispatch(packets.PINGRESP, 0, &packets.PingrespPacket{})

	<-received
	<-received

	d.RemoveHandler(packets.PINGRESP, id)
	d.mu.Lock()
	assert.Empty(t, d.handlers[packets.PINGRESP])
	d.mu.Unlock()
}
