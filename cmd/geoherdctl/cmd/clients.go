package cmd

import (
	"context"
	"fmt"

	"github.com/els0r/geoherd/pkg/api/herd/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// clientsCmd represents the clients command
var clientsCmd = &cobra.Command{
	Use:   "clients [CLIENT]",
	Short: "Show tracked client locations",
	Long: `Show tracked client locations

If a client identifier is provided as an argument, only its live record is
shown. Otherwise, the full registry snapshot is printed
`,
	Args:          cobra.MaximumNArgs(1),
	RunE:          wrapCancellationContext(clientsEntrypoint),
	SilenceErrors: true, // Errors are emitted after command completion, avoid duplicate
}

func init() {
	rootCmd.AddCommand(clientsCmd)
}

func clientsEntrypoint(ctx context.Context, _ *cobra.Command, args []string) error {
	c := client.New(viper.GetString(ServerAddr),
		client.WithRequestTimeout(viper.GetDuration(RequestTimeout)),
	)

	if len(args) == 1 {
		rec, err := c.Client(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to fetch location of client %q: %w", args[0], err)
		}
		return printJSON(rec)
	}

	clients, err := c.Clients(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch client locations: %w", err)
	}

	return printJSON(clients)
}
