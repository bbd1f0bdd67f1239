package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x00000000000000000000000000000000000000aB")
	require.NoError(t, err)
	require.Equal(t, byte(0xab), addr[19])

	zero, err := ParseAddress("  ")
	require.NoError(t, err)
	require.Equal(t, [20]byte{}, zero)

	_, err = ParseAddress("00000000000000000000000000000000000000ab")
	require.ErrorIs(t, err, ErrInvalidAddress)
	_, err = ParseAddress("0x1234")
	require.ErrorIs(t, err, ErrInvalidAddress)

	require.Equal(t, "0x00000000000000000000000000000000000000AB", FormatAddress(addr))
}
