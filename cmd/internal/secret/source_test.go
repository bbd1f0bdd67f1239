package secret

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func testSource(envVar string, terminal bool, typed string) *Source {
	s := NewSource(envVar, "secret: ")
	s.isTerminal = func() bool { return terminal }
	s.readPassword = func() ([]byte, error) { return []byte(typed), nil }
	s.stderr = io.Discard
	return s
}

func TestExplicitValueWins(t *testing.T) {
	t.Setenv("FARM_TEST_SECRET", "from-env")
	v, err := testSource("FARM_TEST_SECRET", false, "").Get(" flag ")
	require.NoError(t, err)
	require.Equal(t, "flag", v)
}

func TestEnvironmentValue(t *testing.T) {
	t.Setenv("FARM_TEST_SECRET", "from-env")
	v, err := testSource("FARM_TEST_SECRET", false, "").Get("")
	require.NoError(t, err)
	require.Equal(t, "from-env", v)

	t.Setenv("FARM_TEST_SECRET", "  ")
	_, err = testSource("FARM_TEST_SECRET", true, "typed").Get("")
	require.Error(t, err)
}

func TestPromptWhenInteractive(t *testing.T) {
	v, err := testSource("FARM_TEST_SECRET_UNSET", true, "typed").Get("")
	require.NoError(t, err)
	require.Equal(t, "typed", v)

	_, err = testSource("FARM_TEST_SECRET_UNSET", false, "typed").Get("")
	require.Error(t, err)

	_, err = testSource("", true, "   ").Get("")
	require.Error(t, err)
}
