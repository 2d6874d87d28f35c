package cmd

import (
	"context"
	"fmt"

	"github.com/els0r/geoherd/pkg/api/herd/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:           "info",
	Short:         "Show service info of the queried herd member",
	RunE:          wrapCancellationContext(infoEntrypoint),
	SilenceErrors: true, // Errors are emitted after command completion, avoid duplicate
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func infoEntrypoint(ctx context.Context, _ *cobra.Command, _ []string) error {
	c := client.New(viper.GetString(ServerAddr),
		client.WithRequestTimeout(viper.GetDuration(RequestTimeout)),
	)

	info, err := c.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch service info: %w", err)
	}

	return printJSON(info)
}
