package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresRPCAndProgram(t *testing.T) {
	t.Setenv("RPC_URL", "")
	t.Setenv("PROGRAM_ID", "")

	_, err := Load()
	require.ErrorContains(t, err, "RPC_URL")

	t.Setenv("RPC_URL", "http://localhost:8899")
	_, err = Load()
	require.ErrorContains(t, err, "PROGRAM_ID")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RPC_URL", "http://localhost:8899")
	t.Setenv("PROGRAM_ID", "prog")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", c.ListenAddr)
	require.Equal(t, 2*time.Second, c.PollInterval)
	require.Equal(t, 400*time.Millisecond, c.DebounceWindow)
	require.Equal(t, 60*time.Second, c.ConfirmTimeout)
	require.Equal(t, 3*time.Second, c.SettleDelay)
	require.Equal(t, 10*time.Second, c.HealthInterval)
}

func TestDurationParsing(t *testing.T) {
	t.Setenv("RPC_URL", "http://localhost:8899")
	t.Setenv("PROGRAM_ID", "prog")
	t.Setenv("POLL_INTERVAL", "750ms")
	t.Setenv("CONFIRM_TIMEOUT", "90") // bare integer means seconds
	t.Setenv("SETTLE_DELAY", "not-a-duration")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, 750*time.Millisecond, c.PollInterval)
	require.Equal(t, 90*time.Second, c.ConfirmTimeout)
	require.Equal(t, 3*time.Second, c.SettleDelay, "bad values fall back to the default")
}
