package cmd

import (
	"fmt"

	"github.com/els0r/geoherd/pkg/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information and exit",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Print(version.Version())
		},
	}
}
