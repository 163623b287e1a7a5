package util

import (
	"strings"
	"testing"

	"github.com/ValentinKolb/msgt/transport/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWrapString tests that no line is longer than Wrap
func TestWrapString(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor ", 20)
	wrapped := WrapString(text)

	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len(line), Wrap)
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(wrapped))
	assert.Equal(t, "", WrapString(""))
}

// TestClientConfigFromFlags tests reading the defaults and flag values through viper
func TestClientConfigFromFlags(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cmd := &cobra.Command{Use: "test"}
	cmd.PersistentFlags().String("log-level", "error", "")
	SetupClientFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--queue-limit", "5", "--transport-read-buffer", "64"}))
	require.NoError(t, BindCommandFlags(cmd))

	conf, err := GetClientConfig()
	require.NoError(t, err)

	assert.Equal(t, 5, conf.Transport.QueueLimit)
	assert.Equal(t, common.DefaultMaxMessageSize, conf.Transport.MaxMessageSize)
	assert.Equal(t, 64*1024, conf.Transport.ReadBufferSize)
	assert.Equal(t, -1, conf.Transport.TCPLingerSec)
	assert.True(t, conf.Transport.TCPNoDelay)
	assert.Equal(t, common.DefaultConnectTimeoutSecond, conf.ConnectTimeoutSecond)
}

// TestTransportConfigFromEnv tests that environment variables override the defaults
func TestTransportConfigFromEnv(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	t.Setenv("MSGT_MAX_MESSAGE_SIZE", "1024")
	InitConfig()

	cmd := &cobra.Command{Use: "test"}
	cmd.PersistentFlags().String("log-level", "error", "")
	SetupTransportFlags(cmd)
	require.NoError(t, cmd.ParseFlags(nil))
	require.NoError(t, BindCommandFlags(cmd))

	conf, err := GetTransportConfig()
	require.NoError(t, err)
	assert.Equal(t, 1024, conf.MaxMessageSize)
}

// TestInvalidConfig tests that invalid values are reported
func TestInvalidConfig(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cmd := &cobra.Command{Use: "test"}
	cmd.PersistentFlags().String("log-level", "error", "")
	SetupTransportFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--queue-limit", "0"}))
	require.NoError(t, BindCommandFlags(cmd))

	_, err := GetTransportConfig()
	assert.Error(t, err)

	// unknown log levels are rejected too
	viper.Set("log-level", "verbose")
	assert.Error(t, BindCommandFlags(cmd))
}
