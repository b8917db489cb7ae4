package transport

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/indigo-web/exchange/config"
	"github.com/stretchr/testify/require"
)

func TestTCP(t *testing.T) {
	tcp := NewTCP()
	require.NoError(t, tcp.Bind("127.0.0.1:0"))
	defer tcp.Close()

	cfg := config.Default().NET
	cfg.AcceptLoopInterruptPeriod = 20 * time.Millisecond
	cfg.ReadTimeout = time.Second

	errCh := make(chan error, 1)
	go func() {
		errCh <- tcp.Listen(cfg, func(conn net.Conn) {
			client := NewClient(conn, cfg.ReadTimeout, make([]byte, 64))
			require.NoError(t, Init(client))
			data, err := client.Read()
			if err == nil {
				_, _ = client.Write(data)
			}
			_ = client.Close()
		})
	}()

	conn, err := net.Dial("tcp", tcp.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)
	echo, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.Equal(t, "ping", string(echo))

	tcp.Stop()
	require.NoError(t, <-errCh)
	tcp.Wait()
}

func TestClientPushback(t *testing.T) {
	server, peer := net.Pipe()
	defer peer.Close()

	client := NewClient(server, 0, make([]byte, 16))
	go func() {
		_, _ = peer.Write([]byte("hello"))
	}()

	data, err := client.Read()
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	client.Pushback(data[2:])
	data, err = client.Read()
	require.NoError(t, err)
	require.Equal(t, "llo", string(data))
}

func TestIsPeerGone(t *testing.T) {
	server, peer := net.Pipe()
	require.NoError(t, peer.Close())
	_, err := server.Write([]byte("anybody?"))
	require.True(t, IsPeerGone(err))
	require.False(t, IsPeerGone(io.EOF))
}
