package dummy

import (
	"io"
	"net"

	"github.com/indigo-web/exchange/transport"
)

var _ transport.Client = new(Client)

// Client returns the pieces of data it was initialised with, one per read. Unless looped, it
// returns io.EOF after the last piece. It also tracks all the written data, making it thereby
// a universal mock suitable for most of the tests.
type Client struct {
	closed   bool
	loop     bool
	pointer  int
	tmp      []byte
	written  []byte
	data     [][]byte
	readErr  error
	writeErr error
	writes   int
	conn     net.Conn
}

func NewMockClient(data ...[]byte) *Client {
	return &Client{
		data: data,
	}
}

// NewMockClientString is the same as NewMockClient, but consumes strings.
func NewMockClientString(data ...string) *Client {
	pieces := make([][]byte, len(data))
	for i, piece := range data {
		pieces[i] = []byte(piece)
	}

	return NewMockClient(pieces...)
}

func (c *Client) Read() (data []byte, err error) {
	if c.closed {
		return nil, io.EOF
	}

	if len(c.tmp) > 0 {
		data, c.tmp = c.tmp, nil

		return data, nil
	}

	if c.pointer >= len(c.data) {
		if !c.loop || len(c.data) == 0 {
			return nil, c.endOfData()
		}

		c.pointer = 0
	}

	piece := c.data[c.pointer]
	c.pointer++

	return piece, nil
}

func (c *Client) Pushback(takeback []byte) {
	c.tmp = takeback
}

func (c *Client) Write(p []byte) (int, error) {
	c.writes++
	if c.writeErr != nil {
		return 0, c.writeErr
	}

	c.written = append(c.written, p...)
	return len(p), nil
}

func (c *Client) endOfData() error {
	if c.readErr != nil {
		return c.readErr
	}

	return io.EOF
}

func (c *Client) Conn() net.Conn {
	return c.conn
}

func (*Client) Remote() net.Addr {
	return nil
}

func (c *Client) Close() error {
	c.closed = true
	return nil
}

// Loop makes the client start over after the last piece instead of returning io.EOF.
func (c *Client) Loop() *Client {
	c.loop = true
	return c
}

// FailReads makes the client return the error instead of io.EOF once the data is over.
func (c *Client) FailReads(err error) *Client {
	c.readErr = err
	return c
}

// WithConn sets the connection returned by Conn. The client still reads and writes only
// its own data.
func (c *Client) WithConn(conn net.Conn) *Client {
	c.conn = conn
	return c
}

// FailWrites makes every following write fail with the error.
func (c *Client) FailWrites(err error) *Client {
	c.writeErr = err
	return c
}

// Written returns all the data that was successfully written.
func (c *Client) Written() string {
	return string(c.written)
}

// Writes returns the number of write attempts, including failed ones.
func (c *Client) Writes() int {
	return c.writes
}

func (c *Client) Closed() bool {
	return c.closed
}
