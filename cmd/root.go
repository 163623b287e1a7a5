package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/msgt/cmd/bench"
	"github.com/ValentinKolb/msgt/cmd/connect"
	"github.com/ValentinKolb/msgt/cmd/serve"
	"github.com/ValentinKolb/msgt/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "msgt",
		Short: "message transport over TCP",
		Long: fmt.Sprintf(`msgt (v%s)

A message transport written in Go that sends length-prefixed messages over TCP.
Servers and clients deliver Connected, Data and Disconnected events through a
queue that the application polls, e.g. once per tick of a game loop.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of msgt",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("msgt v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(connect.ConnectCmd)
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
