package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWritesStructuredLines(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Options{Service: "farmd", Env: "test", Network: "devnet", Output: &buf})
	logger.Info("hello", "account", "0x01", "token", "abc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "hello", line["message"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "farmd", line["service"])
	require.Equal(t, "devnet", line["network"])
	require.Equal(t, "0x01", line["account"])
	require.Equal(t, RedactedValue, line["token"])
	require.Contains(t, line, "timestamp")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Options{Service: "farmd", Level: "warn", Output: &buf})
	logger.Info("quiet")
	require.Zero(t, buf.Len())
	logger.Warn("loud")
	require.NotZero(t, buf.Len())
}

func TestMaskValue(t *testing.T) {
	require.Equal(t, "", MaskValue(""))
	require.Equal(t, " ", MaskValue(" "))
	require.Equal(t, RedactedValue, MaskValue("x"))
	require.Contains(t, SensitiveKeys(), "authorization")
}
