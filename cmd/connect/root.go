package connect

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/msgt/cmd/util"
	"github.com/ValentinKolb/msgt/transport"
	"github.com/ValentinKolb/msgt/transport/common"
	"github.com/ValentinKolb/msgt/transport/tcp"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("client")

var (
	connectCmdConfig = common.DefaultClientConfig()
	ConnectCmd       = &cobra.Command{
		Use:     "connect",
		Short:   "Connect to a msgt server",
		Long:    `Connect to a msgt server. Every line read from stdin is sent as one message, all events received from the server are printed to stdout. The command ends when the server disconnects, stdin is closed or on SIGINT.`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cmdUtil.SetupClientFlags(ConnectCmd)
}

func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	conf, err := cmdUtil.GetClientConfig()
	if err != nil {
		return err
	}
	connectCmdConfig = conf
	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := tcp.NewTCPClientTransport(connectCmdConfig)
	client.Connect(viper.GetString("host"), viper.GetInt("port"))
	defer client.Disconnect()

	lines := readLines(cmd.InOrStdin())
	return session(ctx, client, lines, cmd.OutOrStdout())
}

// readLines sends every line of r to the returned channel, which is closed at EOF
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			Logger.Errorf("Reading input: %v", err)
		}
	}()
	return lines
}

// session sends the lines and prints the events until the connection ends
func session(ctx context.Context, client transport.IClientTransport, lines <-chan string, out io.Writer) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}
			if !client.Send([]byte(line)) {
				_, _ = fmt.Fprintln(out, "! message not sent")
			}

		case <-ticker.C:
			for {
				msg, ok := client.GetNextMessage()
				if !ok {
					break
				}

				switch msg.EventType {
				case common.Connected:
					_, _ = fmt.Fprintln(out, "* connected")
				case common.Data:
					_, _ = fmt.Fprintf(out, "< %s\n", msg.Data)
				case common.Disconnected:
					_, _ = fmt.Fprintln(out, "* disconnected")
					return nil
				}
			}
		}
	}
}
