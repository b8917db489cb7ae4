package http1

import (
	"bufio"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"
	"syscall"
	"testing"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/exchange/config"
	"github.com/indigo-web/exchange/http"
	"github.com/indigo-web/exchange/http/proto"
	"github.com/indigo-web/exchange/http/status"
	"github.com/indigo-web/exchange/transport/dummy"
	"github.com/stretchr/testify/require"
)

func readResponse(t *testing.T, data, method string) *stdhttp.Response {
	req, err := stdhttp.NewRequest(method, "/", nil)
	require.NoError(t, err)
	resp, err := stdhttp.ReadResponse(bufio.NewReader(strings.NewReader(data)), req)
	require.NoError(t, err)

	return resp
}

func readBody(t *testing.T, resp *stdhttp.Response) string {
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return string(body)
}

type closingReader struct {
	io.Reader
	closed bool
}

func (c *closingReader) Close() error {
	c.closed = true
	return nil
}

func TestSerializer(t *testing.T) {
	write := func(t *testing.T, method string, protocol proto.Protocol, response *http.Response) string {
		client := dummy.NewMockClient()
		require.NoError(t, NewSerializer(config.Default(), client).Write(method, protocol, response))
		return client.Written()
	}

	t.Run("default response", func(t *testing.T) {
		data := write(t, "GET", proto.HTTP11, http.NewResponse())
		require.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n", data)
	})

	t.Run("headers order and duplicates", func(t *testing.T) {
		response := http.NewResponse().
			Header("Hello", "nether").
			Header("Something", "special", "here").
			String("Hello, world!")

		resp := readResponse(t, write(t, "GET", proto.HTTP11, response), "GET")
		require.Equal(t, 200, resp.StatusCode)
		require.Equal(t, []string{"nether"}, resp.Header["Hello"])
		require.Equal(t, []string{"special", "here"}, resp.Header["Something"])
		require.Equal(t, "Hello, world!", readBody(t, resp))
	})

	t.Run("custom status text and unknown code", func(t *testing.T) {
		data := write(t, "GET", proto.HTTP11, http.NewResponse().Code(299))
		require.True(t, strings.HasPrefix(data, "HTTP/1.1 299 Unknown Status Code\r\n"), data)

		data = write(t, "GET", proto.HTTP11, http.NewResponse().Code(status.Teapot).Status("Coffee"))
		require.True(t, strings.HasPrefix(data, "HTTP/1.1 418 Coffee\r\n"), data)
	})

	t.Run("protocol", func(t *testing.T) {
		data := write(t, "GET", proto.HTTP10, http.NewResponse())
		require.True(t, strings.HasPrefix(data, "HTTP/1.0 200 OK\r\n"))

		data = write(t, "", proto.Unknown, http.NewResponse())
		require.True(t, strings.HasPrefix(data, "HTTP/1.1 200 OK\r\n"))
	})

	t.Run("framing headers are derived", func(t *testing.T) {
		response := http.NewResponse().
			Header("Content-Length", "100500").
			Header("Transfer-Encoding", "gzip").
			String("hi")

		data := write(t, "GET", proto.HTTP11, response)
		require.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nhi", data)
	})

	t.Run("HEAD request", func(t *testing.T) {
		const body = "Hello, world!"
		resp := readResponse(t, write(t, "HEAD", proto.HTTP11, http.NewResponse().String(body)), "HEAD")
		require.Equal(t, int64(len(body)), resp.ContentLength)
		require.Empty(t, readBody(t, resp))
	})

	t.Run("bodyless codes", func(t *testing.T) {
		for _, code := range []status.Code{status.NoContent, status.NotModified, status.SwitchingProtocols} {
			data := write(t, "GET", proto.HTTP11, http.NewResponse().Code(code).String("ignored"))
			require.NotContains(t, data, "Content-Length")
			require.NotContains(t, data, "ignored")
			require.True(t, strings.HasSuffix(data, "\r\n\r\n"))
		}
	})

	t.Run("big body", func(t *testing.T) {
		body := uniuri.NewLen(10 * config.Default().NET.WriteBufferSize.Default)
		resp := readResponse(t, write(t, "GET", proto.HTTP11, http.NewResponse().String(body)), "GET")
		require.Equal(t, body, readBody(t, resp))
	})

	t.Run("body within the maximal buffer", func(t *testing.T) {
		cfg := config.Default()
		body := uniuri.NewLen(cfg.NET.WriteBufferSize.Maximal / 2)
		client := dummy.NewMockClient()
		require.NoError(t, NewSerializer(cfg, client).Write("GET", proto.HTTP11, http.NewResponse().String(body)))
		require.Equal(t, 1, client.Writes())
		require.Equal(t, body, readBody(t, readResponse(t, client.Written(), "GET")))
	})

	t.Run("body beyond the maximal buffer", func(t *testing.T) {
		cfg := config.Default()
		body := uniuri.NewLen(2 * cfg.NET.WriteBufferSize.Maximal)
		client := dummy.NewMockClient()
		require.NoError(t, NewSerializer(cfg, client).Write("GET", proto.HTTP11, http.NewResponse().String(body)))
		require.Equal(t, 2, client.Writes())
		require.Equal(t, body, readBody(t, readResponse(t, client.Written(), "GET")))
	})

	t.Run("sized stream", func(t *testing.T) {
		body := uniuri.NewLen(5000)
		stream := &closingReader{Reader: strings.NewReader(body)}
		resp := readResponse(t, write(t, "GET", proto.HTTP11, http.NewResponse().Stream(stream, int64(len(body)))), "GET")
		require.Equal(t, int64(len(body)), resp.ContentLength)
		require.Equal(t, body, readBody(t, resp))
		require.True(t, stream.closed)
	})

	t.Run("sized stream shorter than declared", func(t *testing.T) {
		response := http.NewResponse().Stream(strings.NewReader("short"), 10)
		err := NewSerializer(config.Default(), dummy.NewMockClient()).Write("GET", proto.HTTP11, response)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("unsized stream", func(t *testing.T) {
		body := uniuri.NewLen(5000)
		stream := &closingReader{Reader: strings.NewReader(body)}
		data := write(t, "GET", proto.HTTP11, http.NewResponse().Stream(stream, -1))
		resp := readResponse(t, data, "GET")
		require.Equal(t, []string{"chunked"}, resp.TransferEncoding)
		require.Equal(t, body, readBody(t, resp))
		require.True(t, stream.closed)

		// the same with the parser used by the server itself
		parser := chunkedbody.NewParser(chunkedbody.DefaultSettings())
		raw := []byte(data[strings.Index(data, "\r\n\r\n")+4:])
		var decoded []byte
		for {
			chunk, extra, err := parser.Parse(raw, false)
			decoded = append(decoded, chunk...)
			if err == io.EOF {
				break
			}

			require.NoError(t, err)
			raw = extra
		}

		require.Equal(t, body, string(decoded))
	})

	t.Run("unsized stream to HTTP/1.0", func(t *testing.T) {
		data := write(t, "GET", proto.HTTP10, http.NewResponse().Stream(strings.NewReader("Hello"), -1))
		require.Equal(t, "HTTP/1.0 200 OK\r\n\r\nHello", data)
	})

	t.Run("write failure", func(t *testing.T) {
		client := dummy.NewMockClient().FailWrites(syscall.EPIPE)
		err := NewSerializer(config.Default(), client).Write("GET", proto.HTTP11, http.NewResponse())
		require.True(t, errors.Is(err, syscall.EPIPE))
		require.Empty(t, client.Written())
	})
}
