package mq

import (
	"context"
	"net"
	"time"
)

// Transport is the blocking byte-stream capability the session core is
// driven over. The core never opens a socket itself: Config.Dial supplies
// a Transport, so the same session logic runs over TCP, TLS, or an
// in-memory pipe in tests.
type Transport interface {
	// ReadExact blocks until exactly n bytes have been read, or returns
	// the error that prevented it (io.EOF included).
	ReadExact(n int) ([]byte, error)
	// WriteAll blocks until all of b has been written, or returns the
	// error that prevented it.
	WriteAll(b []byte) error
	Close() error
}

// netTransport adapts a net.Conn to Transport.
type netTransport struct {
	conn net.Conn
}

func (t *netTransport) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	read := 0
	for read < n {
		m, err := t.conn.Read(buf[read:])
		read += m
		if err != nil {
			return buf[:read], err
		}
	}
	return buf, nil
}

func (t *netTransport) WriteAll(b []byte) error {
	written := 0
	for written < len(b) {
		n, err := t.conn.Write(b[written:])
		written += n
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *netTransport) Close() error {
	return t.conn.Close()
}

// DialTCP opens a plain TCP connection to addr and wraps it as a
// Transport. NewConfig has no default dial function; wrap DialTCP in one
// (or use DialTCPTimeout) to pass it.
func DialTCP(ctx context.Context, addr string) (Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &netTransport{conn: conn}, nil
}

// DialTCPTimeout returns a Dial func bound to addr, applying timeout as a
// connect deadline on each attempt. Useful as a Config.Dial value.
func DialTCPTimeout(addr string, timeout time.Duration) func(context.Context) (Transport, error) {
	return func(ctx context.Context) (Transport, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return DialTCP(ctx, addr)
	}
}
