package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/msgt/transport/common"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

var Logger = logger.GetLogger("cmd")

// envFiles are the env files found by InitConfig
var envFiles []string

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupTransportFlags adds the flags shared by servers and clients to a command
func SetupTransportFlags(cmd *cobra.Command) {
	key := "queue-limit"
	cmd.PersistentFlags().Int(key, common.DefaultQueueLimit, WrapString("Maximum number of queued messages per queue. A connection that reaches the limit is disconnected"))

	key = "max-message-size"
	cmd.PersistentFlags().Int(key, common.DefaultMaxMessageSize, WrapString("Maximum size of a single message in bytes. Larger messages are rejected, larger frames from the peer disconnect it"))

	key = "send-timeout-ms"
	cmd.PersistentFlags().Int(key, common.DefaultSendTimeoutMillisecond, WrapString("Timeout for a single write in milliseconds (0 = no timeout)"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket write buffer (in KB, 0 = OS default)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket read buffer (in KB, 0 = OS default)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval (in seconds, 0 = disabled)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, -1, WrapString("The linger time (in seconds, -1 = OS default)"))
}

// SetupClientFlags adds the flags of commands that connect to a server
func SetupClientFlags(cmd *cobra.Command) {
	SetupTransportFlags(cmd)

	key := "host"
	cmd.PersistentFlags().String(key, "127.0.0.1", WrapString("The host name or IP address of the server"))

	key = "port"
	cmd.PersistentFlags().Int(key, 7777, WrapString("The port of the server"))

	key = "connect-timeout"
	cmd.PersistentFlags().Int(key, common.DefaultConnectTimeoutSecond, WrapString("The connect timeout in seconds (0 = no timeout)"))
}

// InitConfig loads env files and makes viper read MSGT_ environment variables
func InitConfig() {
	// load env files
	envFiles = envFiles[:0]
	for _, file := range []string{".env", ".env.local"} {
		if err := godotenv.Load(file); err == nil {
			envFiles = append(envFiles, file)
		}
	}

	// initialize viper
	viper.SetEnvPrefix("msgt")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper and initializes the loggers
func BindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}

	if len(envFiles) > 0 {
		Logger.Debugf("Loaded env files: %s", strings.Join(envFiles, ", "))
	}
	return nil
}

// GetTransportConfig reads the shared transport configuration from viper
func GetTransportConfig() (common.TransportConfig, error) {
	conf := common.TransportConfig{
		QueueLimit:             viper.GetInt("queue-limit"),
		MaxMessageSize:         viper.GetInt("max-message-size"),
		SendTimeoutMillisecond: viper.GetInt("send-timeout-ms"),
		SocketConf: common.SocketConf{
			WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
			ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
		},
		TCPConf: common.TCPConf{
			TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
			TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
		},
	}

	if err := conf.Validate(); err != nil {
		return conf, fmt.Errorf("invalid transport configuration: %w", err)
	}
	return conf, nil
}

// GetServerConfig reads the server configuration from viper
func GetServerConfig() (common.ServerConfig, error) {
	transportConf, err := GetTransportConfig()
	if err != nil {
		return common.ServerConfig{}, err
	}

	return common.ServerConfig{
		Transport:      transportConf,
		MaxConnections: viper.GetInt("max-connections"),
		LogLevel:       viper.GetString("log-level"),
	}, nil
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() (common.ClientConfig, error) {
	transportConf, err := GetTransportConfig()
	if err != nil {
		return common.ClientConfig{}, err
	}

	return common.ClientConfig{
		Transport:            transportConf,
		ConnectTimeoutSecond: viper.GetInt("connect-timeout"),
	}, nil
}
