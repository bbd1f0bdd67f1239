package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveDSN(t *testing.T) {
	require.Equal(t, filepath.Join("data", "index.sqlite"), resolveDataPath("data", "index.sqlite"))
	require.Equal(t, "/abs/index.sqlite", resolveDataPath("data", "/abs/index.sqlite"))
	require.Equal(t, "file:x?mode=memory", resolveDataPath("data", "file:x?mode=memory"))
	require.Equal(t, "postgres://farm@db/farm", resolveDataPath("data", "postgres://farm@db/farm"))
	require.Equal(t, "", resolveDataPath("data", " "))
}
