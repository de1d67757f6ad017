// Package mq implements the core protocol engine of an MQTT 3.1 client:
// wire codec, session state machine, QoS 0/1/2 publish flows, and the
// keep-alive/reconnect liveness layer. It speaks MQTT v3.1 only (protocol
// name "MQIsdp", protocol level 3).
//
// The package does not open sockets itself. Callers supply a Transport —
// a blocking byte-stream capability with ReadExact/WriteAll/Close — via
// the dial function passed to NewConfig (Config.Dial), so the core can be
// driven over TCP, TLS, an in-memory
// pipe, or anything else that looks like a stream.
//
// # Quick start
//
//	cfg := mq.NewConfig(func(ctx context.Context) (mq.Transport, error) {
//	        return mq.DialTCP(ctx, "localhost:1883")
//	    },
//	    mq.WithClientID("sensor-1"),
//	    mq.WithKeepAlive(30*time.Second),
//	)
//	session, err := mq.Connect(context.Background(), cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Disconnect(context.Background())
//
//	session.Subscribe(context.Background(), "sensors/+/temp", mq.AtLeastOnce,
//	    func(msg *mq.Message) {
//	        fmt.Printf("%s: %s\n", msg.Topic, msg.Payload)
//	    })
//
//	session.Publish(context.Background(), mq.AtLeastOnce, false, "sensors/kitchen/temp", []byte("21.5"))
//
// # Reconnection
//
// When WithReconnectPeriod is set, a transport failure observed by the
// receive loop triggers an automatic reconnect: the writer slot is
// emptied (blocking concurrent sends), a new transport is dialed and the
// CONNECT handshake repeated, retrying forever at the configured period.
// Register a callback with OnReconnect to be notified, and call
// Resubscribe afterwards to restore previously granted subscriptions.
package mq
