package strutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStrip(t *testing.T) {
	require.Equal(t, "hello ", LStripWS(" \thello "))
	require.Equal(t, " hello", RStripWS(" hello\t "))
	require.Equal(t, "hello", StripWS("\t hello \t"))
	require.Empty(t, StripWS(" \t "))
}

func TestHasToken(t *testing.T) {
	require.True(t, HasToken("keep-alive", "keep-alive"))
	require.True(t, HasToken("Keep-Alive, Upgrade", "upgrade"))
	require.True(t, HasToken(" close ", "CLOSE"))
	require.False(t, HasToken("keep-alive-ish", "keep-alive"))
	require.False(t, HasToken("", "close"))
}

func TestLastToken(t *testing.T) {
	require.Equal(t, "chunked", LastToken("gzip, chunked"))
	require.Equal(t, "chunked", LastToken(" chunked"))
	require.Equal(t, "", LastToken(""))
}
