package otel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" a=1, b = two ,broken,=x,")
	require.Equal(t, map[string]string{"a": "1", "b": "two"}, got)
}

func TestInitDisabled(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	require.Error(t, err)

	shutdown, err := Init(context.Background(), Config{ServiceName: "farmd"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{ServiceName: "farmd", Network: "devnet", Environment: "test"}
	require.Equal(t, defaultEndpoint, cfg.endpoint())
	cfg.Endpoint = " collector:4318 "
	require.Equal(t, "collector:4318", cfg.endpoint())

	require.Contains(t, cfg.sampler().Description(), "AlwaysOnSampler")
	cfg.SampleRatio = 0.25
	require.Contains(t, cfg.sampler().Description(), "TraceIDRatioBased")

	res, err := cfg.resource()
	require.NoError(t, err)
	value, ok := res.Set().Value("farm.network")
	require.True(t, ok)
	require.Equal(t, "devnet", value.AsString())
}

func TestShutdownAllKeepsFirstError(t *testing.T) {
	var order []int
	errA, errB := errors.New("a"), errors.New("b")
	stops := []shutdownFunc{
		func(context.Context) error { order = append(order, 1); return errA },
		func(context.Context) error { order = append(order, 2); return errB },
	}
	require.ErrorIs(t, shutdownAll(context.Background(), stops), errB)
	require.Equal(t, []int{2, 1}, order)
}
