package mq

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gonzalop/mqisdp/internal/packets"
	"github.com/stretchr/testify/require"
)

func TestReconnectRetriesHandshakeAfterTransportFailure(t *testing.T) {
	var dialCount int32
	brokerCh := make(chan net.Conn, 2)

	dial := func(ctx context.Context) (Transport, error) {
		client, server := net.Pipe()
		brokerCh <- server
		atomic.AddInt32(&dialCount, 1)
		return &netTransport{conn: client}, nil
	}

	done := make(chan struct{})
	var session *Session
	var err error
	go func() {
		cfg := NewConfig(dial,
			WithConnectTimeout(time.Second),
			WithReconnectPeriod(20*time.Millisecond),
		)
		session, err = Connect(context.Background(), cfg)
		close(done)
	}()

	firstBroker := <-brokerCh
	acceptConnect(t, firstBroker, packets.ConnAccepted)
	<-done
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&dialCount))

	reconnected := make(chan struct{}, 1)
	session.OnReconnect(func() {
		select {
		case reconnected <- struct{}{}:
		default:
		}
	})

	// Simulate the broker vanishing: the receive loop's next read fails.
	firstBroker.Close()

	secondBroker := <-brokerCh
	acceptConnect(t, secondBroker, packets.ConnAccepted)

	select {
	case <-reconnected:
	case <-time.After(time.Second):
		t.Fatal("OnReconnect callback never fired after transport failure")
	}
	require.EqualValues(t, 2, atomic.LoadInt32(&dialCount))

	// Turn automatic reconnection off before dropping the second broker,
	// so the receive loop exits instead of dialing a third pipe whose
	// CONNECT write nobody reads.
	session.Reconnect(0)
	secondBroker.Close()
	session.Disconnect(context.Background())
}

func TestNoReconnectWithoutReconnectPeriodEndsSession(t *testing.T) {
	session, broker := dialAndConnect(t)

	done := make(chan struct{})
	go func() {
		session.group.Wait()
		close(done)
	}()

	broker.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session's background goroutines should exit once the transport fails with no reconnect configured")
	}
}
