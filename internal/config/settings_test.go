package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("log-level", "", "")
	fs.String("log-format", "", "")
	fs.Duration("timeout", 0, "")
	fs.String("transport", "", "")
	fs.Bool("no-color", false, "")
	return fs
}

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings("", nil)
	require.NoError(t, err)

	assert.Equal(t, "warn", s.LogLevel)
	assert.Equal(t, "console", s.LogFormat)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.Equal(t, TransportStd, s.Transport)
	assert.False(t, s.NoColor)
}

func TestLoadSettings_Environment(t *testing.T) {
	t.Setenv("RESTCALL_LOG_LEVEL", "debug")
	t.Setenv("RESTCALL_TIMEOUT", "5s")
	t.Setenv("RESTCALL_TRANSPORT", "Resty")

	s, err := LoadSettings("", nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, 5*time.Second, s.Timeout)
	assert.Equal(t, TransportResty, s.Transport)
}

func TestLoadSettings_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("RESTCALL_LOG_LEVEL", "debug")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--log-level", "error", "--timeout", "2s", "--no-color"}))

	s, err := LoadSettings("", fs)
	require.NoError(t, err)

	assert.Equal(t, "error", s.LogLevel)
	assert.Equal(t, 2*time.Second, s.Timeout)
	assert.True(t, s.NoColor)
	assert.Equal(t, "console", s.LogFormat)
}

func TestLoadSettings_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RESTCALL_LOG_FORMAT=json\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("RESTCALL_LOG_FORMAT") })

	s, err := LoadSettings(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "json", s.LogFormat)

	_, err = LoadSettings(filepath.Join(t.TempDir(), "missing.env"), nil)
	assert.NoError(t, err)
}

func TestLoadSettings_Invalid(t *testing.T) {
	t.Run("transport", func(t *testing.T) {
		t.Setenv("RESTCALL_TRANSPORT", "carrier-pigeon")
		_, err := LoadSettings("", nil)
		assert.ErrorContains(t, err, "invalid transport")
	})

	t.Run("timeout", func(t *testing.T) {
		t.Setenv("RESTCALL_TIMEOUT", "0s")
		_, err := LoadSettings("", nil)
		assert.ErrorContains(t, err, "invalid timeout")
	})
}
