package http1

import (
	"bytes"
	"errors"
	"io"

	"github.com/indigo-web/exchange/config"
	"github.com/indigo-web/exchange/http"
	"github.com/indigo-web/exchange/http/proto"
	"github.com/indigo-web/exchange/http/status"
	"github.com/indigo-web/exchange/internal/strutil"
	"github.com/indigo-web/exchange/kv"
	"github.com/indigo-web/exchange/transport"
	"github.com/indigo-web/utils/uf"
)

// Result is the outcome of reading a single header block.
type Result struct {
	Line    http.StartLine
	Headers *kv.Storage
	// IOStatus is the number of bytes the header block took. Zero means the stream ended
	// cleanly before any byte of a new request arrived, a negative value means the read
	// was interrupted by an I/O error.
	IOStatus int
}

// HeadersReader accumulates and parses the request line and the header fields. It's reused
// across requests of a single connection, so all the strings it produces are valid only
// until the next Reset.
type HeadersReader struct {
	buff       []byte
	maxSize    int
	maxHeaders int
	headers    *kv.Storage
}

func NewHeadersReader(cfg *config.Config) *HeadersReader {
	return &HeadersReader{
		buff:       make([]byte, 0, min(cfg.Headers.InitialBufferSize, cfg.Headers.MaxSize)),
		maxSize:    cfg.Headers.MaxSize,
		maxHeaders: cfg.Headers.Number.Maximal,
		headers:    kv.NewPrealloc(cfg.Headers.Number.Default),
	}
}

// Reset prepares the reader for the next request. The headers storage returned by the
// previous read is cleared as well.
func (h *HeadersReader) Reset() {
	h.buff = h.buff[:0]
	h.headers.Clear()
}

// Read blocks until the whole header block is received and parsed. Bytes following the
// block are pushed back into the client.
func (h *HeadersReader) Read(client transport.Client) (Result, error) {
	h.Reset()

	for {
		data, err := client.Read()
		if len(data) > 0 {
			if result, done, ferr := h.Feed(client, data); done {
				return result, ferr
			}
		}

		if err != nil {
			return h.Interrupted(err), err
		}
	}
}

// Feed consumes the next piece of data. The done flag is set when the block is either completed
// or found malformed. In the first case, the rest of the data is pushed back into the client.
func (h *HeadersReader) Feed(client transport.Client, data []byte) (result Result, done bool, err error) {
	if len(h.buff) == 0 {
		data = skipEmptyLines(data)
		if len(data) == 0 {
			return result, false, nil
		}
	}

	// the terminator might be split between the pieces
	from := max(0, len(h.buff)-len(terminator)+1)
	chunk := data[:min(len(data), h.maxSize-len(h.buff))]
	h.buff = append(h.buff, chunk...)

	boundary := bytes.Index(h.buff[from:], terminator)
	if boundary == -1 {
		if len(h.buff) >= h.maxSize {
			return Result{IOStatus: len(h.buff)}, true, status.ErrHeaderFieldsTooLarge
		}

		return result, false, nil
	}

	end := from + boundary + len(terminator)
	consumed := len(chunk) - (len(h.buff) - end)
	h.buff = h.buff[:end]

	if extra := data[consumed:]; len(extra) > 0 {
		client.Pushback(extra)
	}

	result = Result{
		Headers:  h.headers,
		IOStatus: end,
	}
	result.Line, err = h.parse()

	return result, true, err
}

// Interrupted returns the result of a read, that was terminated by the error.
func (h *HeadersReader) Interrupted(err error) Result {
	if len(h.buff) == 0 && errors.Is(err, io.EOF) {
		return Result{IOStatus: 0}
	}

	return Result{IOStatus: -1}
}

var terminator = []byte("\r\n\r\n")

func (h *HeadersReader) parse() (line http.StartLine, err error) {
	// strip the empty line, but keep the CRLF of the last field line
	block := h.buff[:len(h.buff)-len(crlf)]

	lineEnd := bytes.Index(block, []byte(crlf))
	line, err = parseRequestLine(block[:lineEnd])
	if err != nil {
		return line, err
	}

	for block = block[lineEnd+len(crlf):]; len(block) > 0; {
		fieldEnd := bytes.Index(block, []byte(crlf))
		if err = h.parseField(block[:fieldEnd]); err != nil {
			return line, err
		}

		block = block[fieldEnd+len(crlf):]
	}

	return line, nil
}

func parseRequestLine(line []byte) (http.StartLine, error) {
	methodEnd := bytes.IndexByte(line, ' ')
	if methodEnd <= 0 || !isToken(line[:methodEnd]) {
		return http.StartLine{}, status.ErrBadRequestLine
	}

	method, rest := line[:methodEnd], line[methodEnd+1:]

	pathEnd := bytes.IndexByte(rest, ' ')
	if pathEnd <= 0 || !isTarget(rest[:pathEnd]) {
		return http.StartLine{}, status.ErrBadRequestLine
	}

	path, version := rest[:pathEnd], rest[pathEnd+1:]

	protocol := proto.FromBytes(version)
	if protocol == proto.Unknown {
		if isVersion(version) {
			return http.StartLine{}, status.ErrHTTPVersionNotSupported
		}

		return http.StartLine{}, status.ErrBadRequestLine
	}

	return http.StartLine{
		Method:   uf.B2S(method),
		Path:     uf.B2S(path),
		Protocol: protocol,
	}, nil
}

// isVersion reports whether the token is shaped as HTTP/x.y, regardless of whether the
// version is supported.
func isVersion(token []byte) bool {
	return len(token) == len("HTTP/x.y") &&
		bytes.HasPrefix(token, []byte("HTTP/")) &&
		isDigit(token[5]) && token[6] == '.' && isDigit(token[7])
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func (h *HeadersReader) parseField(field []byte) error {
	colon := bytes.IndexByte(field, ':')
	if colon <= 0 || !isToken(field[:colon]) {
		// also covers obsolete line folding, as whitespace isn't a token char
		return status.ErrBadHeader
	}

	value := field[colon+1:]
	if bytes.ContainsAny(value, "\r\n\x00") {
		return status.ErrBadHeader
	}

	if h.headers.Len() >= h.maxHeaders {
		return status.ErrTooManyHeaders
	}

	h.headers.Add(uf.B2S(field[:colon]), strutil.StripWS(uf.B2S(value)))

	return nil
}

// skipEmptyLines drops CRLFs preceding the request line, as some clients send them
// after a body.
func skipEmptyLines(data []byte) []byte {
	for i, c := range data {
		if c != '\r' && c != '\n' {
			return data[i:]
		}
	}

	return nil
}

var tokenChars = func() (lut [256]bool) {
	for c := '0'; c <= '9'; c++ {
		lut[c] = true
	}

	for c := 'a'; c <= 'z'; c++ {
		lut[c], lut[c-'a'+'A'] = true, true
	}

	for _, c := range "!#$%&'*+-.^_`|~" {
		lut[c] = true
	}

	return lut
}()

func isToken(b []byte) bool {
	for _, c := range b {
		if !tokenChars[c] {
			return false
		}
	}

	return true
}

func isTarget(b []byte) bool {
	for _, c := range b {
		if c <= ' ' || c == 0x7f {
			return false
		}
	}

	return true
}
