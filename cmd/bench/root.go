package bench

import (
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/msgt/cmd/util"
	"github.com/ValentinKolb/msgt/transport/common"
	"github.com/ValentinKolb/msgt/transport/tcp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	BenchCmd = &cobra.Command{
		Use:     "bench",
		Short:   "Performance testing tool for msgt echo servers",
		Long:    `Measures the round-trip latency and the throughput against a server started with 'msgt serve --mode echo'.`,
		RunE:    run,
		PreRunE: processBenchConfig,
	}
	benchClientConfig = common.DefaultClientConfig()
	benchMessages     = 10000
	benchMessageSize  = 64
	benchBurst        = 100
	benchTimeout      = 5 * time.Second
)

func init() {
	util.SetupClientFlags(BenchCmd)

	// add flags
	key := "messages"
	BenchCmd.PersistentFlags().Int(key, benchMessages, util.WrapString("Number of messages to send per test"))
	key = "size"
	BenchCmd.PersistentFlags().Int(key, benchMessageSize, util.WrapString("Size of each message in bytes"))
	key = "burst"
	BenchCmd.PersistentFlags().Int(key, benchBurst, util.WrapString("Number of messages in flight during the throughput test (must stay below the queue limit)"))
	key = "timeout"
	BenchCmd.PersistentFlags().Int(key, 5, util.WrapString("Seconds to wait for an answer before the test fails"))
	key = "csv"
	BenchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	conf, err := util.GetClientConfig()
	if err != nil {
		return err
	}
	benchClientConfig = conf

	// Read the configuration from the command line flags and environment variables
	benchMessages = viper.GetInt("messages")
	benchMessageSize = viper.GetInt("size")
	benchBurst = viper.GetInt("burst")
	benchTimeout = time.Duration(viper.GetInt("timeout")) * time.Second

	if benchMessages < 1 || benchBurst < 1 {
		return errors.New("messages and burst must be at least 1")
	}
	if benchMessageSize < 1 || benchMessageSize > conf.Transport.MaxMessageSize {
		return fmt.Errorf("size must be between 1 and the max message size (%d)", conf.Transport.MaxMessageSize)
	}
	return nil
}

func run(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for msgt echo servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(benchClientConfig.String())
	fmt.Printf("Messages: %d, Size: %d bytes, Burst: %d\n", benchMessages, benchMessageSize, benchBurst)
	fmt.Println()

	client := tcp.NewTCPClientTransport(benchClientConfig)
	client.Connect(viper.GetString("host"), viper.GetInt("port"))
	defer client.Disconnect()

	b := newBenchmark(client, benchMessageSize, benchTimeout)
	if err := b.waitConnected(); err != nil {
		return err
	}

	fmt.Println("staring tests...")

	results := make([]result, 0, 2)

	roundTrip, err := b.roundTrip(benchMessages)
	if err != nil {
		return fmt.Errorf("round trip test failed: %w", err)
	}
	results = append(results, roundTrip)
	printResult(roundTrip)

	throughput, err := b.throughput(benchMessages, benchBurst)
	if err != nil {
		return fmt.Errorf("throughput test failed: %w", err)
	}
	results = append(results, throughput)
	printResult(throughput)

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %w", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}
