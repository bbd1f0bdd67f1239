package common

import (
	"errors"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

var ErrInvalidAddress = errors.New("invalid 0x-prefixed 20-byte address")

// ParseAddress decodes a 0x-prefixed hex address. The empty string decodes
// to the zero address.
func ParseAddress(raw string) ([20]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return [20]byte{}, nil
	}
	if !strings.HasPrefix(trimmed, "0x") && !strings.HasPrefix(trimmed, "0X") {
		return [20]byte{}, ErrInvalidAddress
	}
	if !ethcommon.IsHexAddress(trimmed) {
		return [20]byte{}, ErrInvalidAddress
	}
	return [20]byte(ethcommon.HexToAddress(trimmed)), nil
}

// FormatAddress renders addr as EIP-55 checksummed hex.
func FormatAddress(addr [20]byte) string {
	return ethcommon.Address(addr).Hex()
}
