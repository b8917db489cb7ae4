package transport

import (
	"crypto/tls"
	"net"
	"time"
)

// Client is the bidirectional byte stream of a single connection. Read-buffering is hidden
// behind it: Read returns whatever is available (possibly a piece of the previous read,
// returned back via Pushback), so the consumer never reads past the boundary it needs.
type Client interface {
	Read() ([]byte, error)
	Pushback([]byte)
	Write([]byte) (int, error)
	Conn() net.Conn
	Remote() net.Addr
	Close() error
}

type client struct {
	conn    net.Conn
	buff    []byte
	pending []byte
	timeout time.Duration
}

func NewClient(conn net.Conn, timeout time.Duration, buff []byte) Client {
	return &client{
		buff:    buff,
		conn:    conn,
		timeout: timeout,
	}
}

// Read reads data into the internal buffer and returns a piece of it back. Timeouts are also
// handled automatically.
func (c *client) Read() ([]byte, error) {
	if len(c.pending) > 0 {
		pending := c.pending
		c.pending = nil

		return pending, nil
	}

	if c.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, err
		}
	}

	n, err := c.conn.Read(c.buff)
	return c.buff[:n], err
}

// Pushback preserves a chunk of data from previous read for the next read.
func (c *client) Pushback(b []byte) {
	c.pending = b
}

// Conn unwraps the underlying net.Conn.
func (c *client) Conn() net.Conn {
	return c.conn
}

// Write writes data into the underlying connection.
func (c *client) Write(b []byte) (int, error) {
	return c.conn.Write(b)
}

// Remote returns the remote address of the connection.
func (c *client) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the connection.
func (c *client) Close() error {
	return c.conn.Close()
}

// Init initializes connection contexts. It must be called exactly once per connection, before
// anything is read. For TLS connections it completes the handshake (and thereby ALPN
// negotiation), for everything else it's a no-op.
func Init(c Client) error {
	conn := c.Conn()
	if conn == nil {
		return nil
	}

	if tlsConn, ok := conn.(*tls.Conn); ok {
		return tlsConn.Handshake()
	}

	return nil
}
