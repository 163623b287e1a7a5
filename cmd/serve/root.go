package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/msgt/cmd/util"
	"github.com/ValentinKolb/msgt/transport/common"
	"github.com/ValentinKolb/msgt/transport/tcp"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("server")

var (
	serveCmdConfig = common.DefaultServerConfig()
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start a msgt server",
		Long:    `Start a msgt server with the specified configuration. All events are handled once per tick. In echo mode data is returned to its sender, in broadcast mode it is relayed to all connected clients. The configuration can be set via command line flags or environment variables. The format of the environment variables is MSGT_<flag> (e.g. MSGT_QUEUE_LIMIT=100)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cmdUtil.SetupTransportFlags(ServeCmd)

	// add flags
	key := "port"
	ServeCmd.PersistentFlags().Int(key, 7777, cmdUtil.WrapString("The port on which the server will listen (all IPv4 and IPv6 addresses)"))

	key = "mode"
	ServeCmd.PersistentFlags().String(key, modeEcho, cmdUtil.WrapString("How data is handled: echo (back to the sender) or broadcast (to all clients)"))

	key = "tick-ms"
	ServeCmd.PersistentFlags().Int(key, 10, cmdUtil.WrapString("Interval in milliseconds at which the queued events are processed"))

	key = "max-connections"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Maximum number of simultaneous connections (0 = unlimited). Further clients wait until a slot is free"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address for the Prometheus metrics endpoint (e.g. :9100). Disabled if empty"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	conf, err := cmdUtil.GetServerConfig()
	if err != nil {
		return err
	}
	serveCmdConfig = conf

	switch mode := viper.GetString("mode"); mode {
	case modeEcho, modeBroadcast:
	default:
		return fmt.Errorf("invalid mode %s (expected one of: %s, %s)", mode, modeEcho, modeBroadcast)
	}

	if viper.GetInt("tick-ms") < 1 {
		return fmt.Errorf("tick-ms must be at least 1")
	}

	return nil
}

// run starts the server and processes events until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	Logger.Infof("Configuration:%s", serveCmdConfig.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if endpoint := viper.GetString("metrics-endpoint"); endpoint != "" {
		metricsServer := newMetricsServer(endpoint, serveCmdConfig.LogLevel == "debug")
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil {
				Logger.Infof("Metrics endpoint stopped: %v", err)
			}
		}()
		defer metricsServer.Close()
	}

	server := tcp.NewTCPServerTransport(serveCmdConfig)
	port := viper.GetInt("port")
	if !server.Start(port) {
		return fmt.Errorf("failed to start server on port %d", port)
	}
	defer server.Stop()

	r := newRelay(server, viper.GetString("mode"))

	ticker := time.NewTicker(time.Duration(viper.GetInt("tick-ms")) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			Logger.Infof("Shutting down, %d clients connected", r.clientCount())
			return nil
		case <-ticker.C:
			r.tick()
		}
	}
}
