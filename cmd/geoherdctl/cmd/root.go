// Package cmd implements the geoherdctl control CLI tool
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	herdapi "github.com/els0r/geoherd/pkg/api/herd"
	"github.com/els0r/geoherd/pkg/version"
	"github.com/els0r/telemetry/logging"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	serverKey = "server"

	// ServerAddr : the status API endpoint of the queried herd member
	ServerAddr = serverKey + ".addr"
	// RequestTimeout : the request timeout
	RequestTimeout = "timeout"
)

const defaultRequestTimeout = 5 * time.Second

var j = jsoniter.ConfigCompatibleWithStandardLibrary

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "geoherdctl",
	Short:         "geoherd control CLI tool",
	Long:          `geoherdctl inspects a running geoherd server via its status API`,
	SilenceErrors: true,
}

// Execute is the main entrypoint and runs the CLI tool
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		logger, _, logErr := logging.New(logging.LevelError, logging.EncodingPlain,
			logging.WithOutput(os.Stderr),
		)
		if logErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to instantiate CLI logger: %v\n", logErr)
			fmt.Fprintf(os.Stderr, "Error running command: %s\n", err)
			os.Exit(1)
		}
		logger.Fatalf("Error running command: %s", err)
	}
}

func init() {
	cobra.OnInitialize(initLogger)

	rootCmd.PersistentFlags().StringP(ServerAddr, "s", herdapi.DefaultServerAddress, "status API address of the herd member")
	rootCmd.PersistentFlags().DurationP(RequestTimeout, "t", defaultRequestTimeout, "request timeout / deadline for the status API")

	_ = viper.BindPFlags(rootCmd.PersistentFlags())
}

func initLogger() {
	// since this is a command line tool, only warnings and errors should be printed and they
	// shouldn't go to a dedicated file
	_, err := logging.Init(logging.LevelWarn, logging.EncodingLogfmt,
		logging.WithVersion(version.Short()),
		logging.WithOutput(os.Stdout),
		logging.WithErrorOutput(os.Stderr),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
}

type entrypoint func(ctx context.Context, cmd *cobra.Command, args []string) error

// wrapCancellationContext bounds a command by the request timeout and by
// SIGINT/SIGTERM
func wrapCancellationContext(fn entrypoint) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ctx, cancel := context.WithTimeout(ctx, viper.GetDuration(RequestTimeout))
		defer cancel()

		return fn(ctx, cmd, args)
	}
}

// printJSON renders a response for human consumption
func printJSON(val any) error {
	b, err := j.MarshalIndent(val, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
