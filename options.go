package mq

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid"
)

// Will carries the last-will-and-testament PUBLISH the broker sends on
// this client's behalf if the connection drops ungracefully.
type Will struct {
	Topic   string
	Payload []byte
	QoS     QoS
	Retain  bool
}

// Config holds everything needed to open and maintain a Session. Build
// one with NewConfig and the With* options below.
type Config struct {
	Dial func(context.Context) (Transport, error)

	ClientID        string
	CleanSession    bool
	Username        string
	HasUsername     bool
	Password        string
	HasPassword     bool
	KeepAlive       time.Duration
	ConnectTimeout  time.Duration
	ReconnectPeriod time.Duration
	Will            *Will
	Logger          Logger
}

// Option configures a Config built by NewConfig.
type Option func(*Config)

// WithClientID sets the client identifier sent in CONNECT. If never set,
// NewConfig generates a random one.
func WithClientID(id string) Option {
	return func(c *Config) { c.ClientID = id }
}

// WithCleanSession controls the CONNECT clean-session flag. Defaults to
// true: no prior session state is resumed.
func WithCleanSession(clean bool) Option {
	return func(c *Config) { c.CleanSession = clean }
}

// WithCredentials sets the CONNECT username/password fields.
func WithCredentials(username, password string) Option {
	return func(c *Config) {
		c.Username = username
		c.HasUsername = true
		c.Password = password
		c.HasPassword = true
	}
}

// WithKeepAlive sets the keep-alive interval advertised in CONNECT and
// used to drive the idle-PINGREQ loop. A zero value disables keep-alive.
func WithKeepAlive(d time.Duration) Option {
	return func(c *Config) { c.KeepAlive = d }
}

// WithConnectTimeout bounds how long Connect waits for CONNACK before
// giving up.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Config) { c.ConnectTimeout = d }
}

// WithReconnectPeriod enables automatic reconnection: when the receive
// loop observes a transport failure, it retries Dial and the CONNECT
// handshake every d until one succeeds. A zero value (the default)
// disables automatic reconnection; a transport failure then just tears
// the session down.
func WithReconnectPeriod(d time.Duration) Option {
	return func(c *Config) { c.ReconnectPeriod = d }
}

// WithWill sets the last-will-and-testament message.
func WithWill(w Will) Option {
	return func(c *Config) { c.Will = &w }
}

// WithLogger overrides the default no-op Logger.
func WithLogger(l Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// NewConfig builds a Config from dial and the given options.
func NewConfig(dial func(context.Context) (Transport, error), opts ...Option) *Config {
	c := &Config{
		Dial:           dial,
		ClientID:       shortuuid.New(),
		CleanSession:   true,
		KeepAlive:      30 * time.Second,
		ConnectTimeout: 10 * time.Second,
		Logger:         nopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
