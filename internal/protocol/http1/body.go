package http1

import (
	"io"
	"math"
	"strconv"

	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/exchange/config"
	"github.com/indigo-web/exchange/http"
	"github.com/indigo-web/exchange/http/status"
	"github.com/indigo-web/exchange/internal/strutil"
	"github.com/indigo-web/exchange/transport"
	"github.com/indigo-web/utils/strcomp"
)

var _ http.BodyDecoder = BodyDecoder{}

// BodyDecoder binds request bodies framed either by Content-Length or by the chunked
// transfer coding. Requests carrying neither have no body.
type BodyDecoder struct {
	maxSize uint64
}

func NewBodyDecoder(cfg config.Body) BodyDecoder {
	return BodyDecoder{maxSize: cfg.MaxSize}
}

func (b BodyDecoder) Decode(request *http.Request, client transport.Client) (io.Reader, error) {
	if request.Headers.Has("Transfer-Encoding") {
		codings := request.Headers.Values("Transfer-Encoding")
		if len(codings) != 1 || !strcomp.EqualFold(strutil.StripWS(codings[0]), "chunked") {
			// any other codings, or stacking anything over chunked, isn't supported
			return nil, status.ErrUnsupportedEncoding
		}

		return newChunkedReader(client, b.maxSize), nil
	}

	values := request.Headers.Values("Content-Length")
	if len(values) == 0 {
		return nil, nil
	}

	length, err := parseContentLength(values)
	switch {
	case err != nil:
		return nil, err
	case length > b.maxSize:
		return nil, status.ErrBodyTooLarge
	case length == 0:
		return nil, nil
	}

	return &lengthReader{client: client, left: length}, nil
}

func parseContentLength(values []string) (uint64, error) {
	length, err := strconv.ParseUint(values[0], 10, 64)
	if err != nil {
		return 0, status.ErrBadContentLength
	}

	for _, value := range values[1:] {
		if value != values[0] {
			return 0, status.ErrBadContentLength
		}
	}

	return length, nil
}

type lengthReader struct {
	client transport.Client
	left   uint64
}

func (l *lengthReader) Read(p []byte) (int, error) {
	if l.left == 0 {
		return 0, io.EOF
	}

	for {
		data, err := l.client.Read()
		if len(data) == 0 {
			if err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			} else if err != nil {
				return 0, err
			}

			continue
		}

		take := min(uint64(len(data)), l.left, uint64(len(p)))
		n := copy(p, data[:take])
		if n < len(data) {
			l.client.Pushback(data[n:])
		}

		l.left -= uint64(n)

		return n, nil
	}
}

type chunkedReader struct {
	client            transport.Client
	parser            *chunkedbody.Parser
	pending           []byte
	done              bool
	received, maxSize uint64
}

func newChunkedReader(client transport.Client, maxSize uint64) *chunkedReader {
	return &chunkedReader{
		client:  client,
		parser:  chunkedbody.NewParser(chunkedbody.DefaultSettings()),
		maxSize: maxSize,
	}
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	for len(c.pending) == 0 {
		if c.done {
			return 0, io.EOF
		}

		data, err := c.client.Read()
		if len(data) == 0 {
			if err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			} else if err != nil {
				return 0, err
			}

			continue
		}

		chunk, extra, err := c.parser.Parse(data, false)
		switch err {
		case nil:
		case io.EOF:
			c.done = true
		default:
			return 0, status.ErrBadChunk
		}

		received, overflows := adduint(c.received, uint64(len(chunk)))
		if overflows || received > c.maxSize {
			return 0, status.ErrBodyTooLarge
		}

		c.received = received
		if len(extra) > 0 {
			c.client.Pushback(extra)
		}

		c.pending = chunk
	}

	n := copy(p, c.pending)
	c.pending = c.pending[n:]

	return n, nil
}

func adduint(x, y uint64) (uint64, bool) {
	return x + y, math.MaxUint64-x < y
}
