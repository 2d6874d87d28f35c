package cmd

import (
	"context"
	"fmt"

	"github.com/els0r/geoherd/pkg/api/herd/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// topologyCmd represents the topology command
var topologyCmd = &cobra.Command{
	Use:           "topology",
	Short:         "Show the queried herd member's view of the herd",
	RunE:          wrapCancellationContext(topologyEntrypoint),
	SilenceErrors: true, // Errors are emitted after command completion, avoid duplicate
}

func init() {
	rootCmd.AddCommand(topologyCmd)
}

func topologyEntrypoint(ctx context.Context, _ *cobra.Command, _ []string) error {
	c := client.New(viper.GetString(ServerAddr),
		client.WithRequestTimeout(viper.GetDuration(RequestTimeout)),
	)

	topo, err := c.Topology(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch topology: %w", err)
	}

	return printJSON(topo)
}
