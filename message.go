package mq

// Message is an inbound PUBLISH delivered to a topic handler's callback.
type Message struct {
	Topic     string
	Payload   []byte
	QoS       QoS
	Retained  bool
	Duplicate bool
}
