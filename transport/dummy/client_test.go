package dummy

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockClient(t *testing.T) {
	t.Run("no looping", func(t *testing.T) {
		client := NewMockClientString("Hello", "world!")

		for _, want := range []string{"Hello", "world!"} {
			got, err := client.Read()
			require.NoError(t, err)
			require.Equal(t, want, string(got))
		}

		_, err := client.Read()
		require.EqualError(t, err, io.EOF.Error())
	})

	t.Run("looped slices", func(t *testing.T) {
		client := NewMockClientString("Hello", "world").Loop()

		for _, want := range []string{"Hello", "world", "Hello"} {
			got, err := client.Read()
			require.NoError(t, err)
			require.Equal(t, want, string(got))
		}
	})

	t.Run("pushback", func(t *testing.T) {
		client := NewMockClientString("Hello")
		data, err := client.Read()
		require.NoError(t, err)
		client.Pushback(data[1:])
		data, err = client.Read()
		require.NoError(t, err)
		require.Equal(t, "ello", string(data))
	})

	t.Run("writes", func(t *testing.T) {
		client := NewMockClient()
		_, err := client.Write([]byte("Hello"))
		require.NoError(t, err)
		require.Equal(t, "Hello", client.Written())

		broken := errors.New("broken")
		_, err = client.FailWrites(broken).Write([]byte("world"))
		require.ErrorIs(t, err, broken)
		require.Equal(t, "Hello", client.Written())
		require.Equal(t, 2, client.Writes())
	})
}
