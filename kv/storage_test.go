package kv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorage(t *testing.T) {
	getHeaders := func() *Storage {
		return New().
			Add("Foo", "bar").
			Add("Hello", "World").
			Add("Lorem", "ipsum").
			Add("hello", "Pavlo")
	}

	t.Run("duplicates are preserved in order", func(t *testing.T) {
		kv := getHeaders()
		require.Equal(t, []string{"World", "Pavlo"}, kv.Values("HELLO"))
		require.Equal(t, "World", kv.Value("hello"))
		require.Equal(t, 4, kv.Len())
	})

	t.Run("delete", func(t *testing.T) {
		kv := getHeaders().Delete("HELLO")

		want := []Pair{
			{"Foo", "bar"},
			{"Lorem", "ipsum"},
		}

		require.Equal(t, want, kv.Expose())
		require.False(t, kv.Has("hello"))
	})

	t.Run("set", func(t *testing.T) {
		kv := getHeaders().Set("HELLO", "no more Pavlo")

		want := []Pair{
			{"Foo", "bar"},
			{"Lorem", "ipsum"},
			{"HELLO", "no more Pavlo"},
		}

		require.Equal(t, want, kv.Expose())
	})

	t.Run("set if absent", func(t *testing.T) {
		kv := getHeaders()
		require.False(t, kv.SetIfAbsent("foo", "baz"))
		require.Equal(t, "bar", kv.Value("Foo"))
		require.True(t, kv.SetIfAbsent("Server", "indigo"))
		require.Equal(t, "indigo", kv.Value("server"))
	})

	t.Run("iter", func(t *testing.T) {
		var keys []string
		for key := range getHeaders().Iter() {
			keys = append(keys, key)
		}

		require.Equal(t, []string{"Foo", "Hello", "Lorem", "hello"}, keys)
	})

	t.Run("clone is independent", func(t *testing.T) {
		original := getHeaders()
		clone := original.Clone()
		original.Clear()
		require.True(t, original.Empty())
		require.Equal(t, 4, clone.Len())
	})

	t.Run("nil storage", func(t *testing.T) {
		var kv *Storage
		require.True(t, kv.Empty())
		require.Nil(t, kv.Expose())
	})
}
