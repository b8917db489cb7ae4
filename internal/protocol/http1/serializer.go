package http1

import (
	"io"
	"strconv"

	"github.com/indigo-web/exchange/config"
	"github.com/indigo-web/exchange/http"
	httpmethod "github.com/indigo-web/exchange/http/method"
	"github.com/indigo-web/exchange/http/proto"
	"github.com/indigo-web/exchange/http/status"
	"github.com/indigo-web/exchange/internal/response"
	"github.com/indigo-web/exchange/transport"
	"github.com/indigo-web/utils/strcomp"
)

const crlf = "\r\n"

// Serializer renders responses into the per-connection buffer and flushes them into the
// client. Framing headers (Content-Length and Transfer-Encoding) are always derived from
// the body and never taken from the response headers.
type Serializer struct {
	client         transport.Client
	buff           []byte
	maxBuffSize    int
	streamReadBuff []byte
}

func NewSerializer(cfg *config.Config, client transport.Client) *Serializer {
	return &Serializer{
		client:         client,
		buff:           make([]byte, 0, cfg.NET.WriteBufferSize.Default),
		maxBuffSize:    max(cfg.NET.WriteBufferSize.Maximal, cfg.NET.WriteBufferSize.Default),
		streamReadBuff: make([]byte, cfg.NET.WriteBufferSize.Default),
	}
}

// Write serializes the response to the request with the method and protocol. Method and
// protocol may be zero-valued, if the request line wasn't parsed successfully.
func (s *Serializer) Write(method string, protocol proto.Protocol, response *http.Response) (err error) {
	fields := response.Expose()
	defer s.closeStream(fields, &err)

	s.appendProtocol(protocol)
	s.appendStatus(fields)

	for key, value := range fields.Headers.Iter() {
		if isFraming(key) {
			continue
		}

		s.appendHeader(key, value)
	}

	if status.Bodyless(fields.Code) {
		s.crlf()
		return s.flush()
	}

	head := method == httpmethod.HEAD

	switch {
	case fields.Stream == nil:
		s.appendContentLength(int64(len(fields.Body)))
		s.crlf()
		if !head {
			if err = s.write(fields.Body); err != nil {
				return err
			}
		}
	case fields.StreamSize >= 0:
		s.appendContentLength(fields.StreamSize)
		s.crlf()
		if !head {
			if err = s.writeSized(fields.Stream, fields.StreamSize); err != nil {
				return err
			}
		}
	case protocol == proto.HTTP10:
		// no chunked transfer coding for HTTP/1.0, the body is delimited by the connection close
		s.crlf()
		if !head {
			if err = s.writeUntilEOF(identityWriter{s}, fields.Stream); err != nil {
				return err
			}
		}
	default:
		s.appendHeader("Transfer-Encoding", "chunked")
		s.crlf()
		if !head {
			if err = s.writeUntilEOF(chunkedWriter{s}, fields.Stream); err != nil {
				return err
			}

			s.buff = append(s.buff, "0\r\n\r\n"...)
		}
	}

	return s.flush()
}

func (s *Serializer) writeSized(stream io.Reader, size int64) error {
	n, err := io.CopyBuffer(identityWriter{s}, io.LimitReader(stream, size), s.streamReadBuff)
	if err != nil {
		return err
	}

	if n < size {
		// Content-Length was already sent, so there's no way to recover
		return io.ErrUnexpectedEOF
	}

	return nil
}

func (s *Serializer) writeUntilEOF(encoder io.Writer, stream io.Reader) error {
	for {
		n, err := stream.Read(s.streamReadBuff)
		if n > 0 {
			if _, encerr := encoder.Write(s.streamReadBuff[:n]); encerr != nil {
				return encerr
			}
		}

		switch err {
		case nil:
		case io.EOF:
			return nil
		default:
			return err
		}
	}
}

func (s *Serializer) closeStream(fields *response.Fields, err *error) {
	if c, ok := fields.Stream.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && *err == nil {
			*err = cerr
		}
	}
}

// write appends the data into the buffer. The buffer may grow up to the maximal size, so most
// responses leave in a single write. Otherwise it's flushed first, and data bigger than the
// buffer's limit is written directly.
func (s *Serializer) write(data []byte) error {
	if len(s.buff)+len(data) <= s.maxBuffSize {
		s.buff = append(s.buff, data...)
		return nil
	}

	if err := s.flush(); err != nil {
		return err
	}

	if len(data) <= s.maxBuffSize {
		s.buff = append(s.buff, data...)
		return nil
	}

	_, err := s.client.Write(data)
	return err
}

func (s *Serializer) flush() (err error) {
	if len(s.buff) > 0 {
		_, err = s.client.Write(s.buff)
		s.buff = s.buff[:0]
	}

	return err
}

func (s *Serializer) appendProtocol(protocol proto.Protocol) {
	if protocol == proto.Unknown {
		// in case the request line was malformed, the protocol remains unknown
		protocol = proto.HTTP11
	}

	s.buff = append(s.buff, protocol.String()...)
	s.sp()
}

func (s *Serializer) appendStatus(fields *response.Fields) {
	s.buff = strconv.AppendUint(s.buff, uint64(fields.Code), 10)
	s.sp()

	statusText := fields.Status
	if len(statusText) == 0 {
		statusText = status.Text(fields.Code)
	}

	s.buff = append(s.buff, statusText...)
	s.crlf()
}

func (s *Serializer) appendHeader(key, value string) {
	s.buff = append(s.buff, key...)
	s.buff = append(s.buff, ':', ' ')
	s.buff = append(s.buff, value...)
	s.crlf()
}

func (s *Serializer) appendContentLength(value int64) {
	s.buff = append(s.buff, "Content-Length: "...)
	s.buff = strconv.AppendInt(s.buff, value, 10)
	s.crlf()
}

func (s *Serializer) sp() {
	s.buff = append(s.buff, ' ')
}

func (s *Serializer) crlf() {
	s.buff = append(s.buff, crlf...)
}

func isFraming(key string) bool {
	return strcomp.EqualFold(key, "Content-Length") || strcomp.EqualFold(key, "Transfer-Encoding")
}

type identityWriter struct {
	s *Serializer
}

func (i identityWriter) Write(b []byte) (int, error) {
	return len(b), i.s.write(b)
}

type chunkedWriter struct {
	s *Serializer
}

func (c chunkedWriter) Write(b []byte) (int, error) {
	if len(b) == 0 {
		// a zero-length chunk would terminate the body prematurely
		return 0, nil
	}

	c.s.buff = strconv.AppendUint(c.s.buff, uint64(len(b)), 16)
	c.s.crlf()
	if err := c.s.write(b); err != nil {
		return 0, err
	}

	c.s.crlf()

	return len(b), nil
}
