package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"codeberg.org/mutker/smuctl/internal/visa"
)

// NewResourcesCommand creates the resources command.
func NewResourcesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List candidate communication resources",
		Long: `List local serial devices as ASRL resource strings.

Network instruments cannot be discovered passively; address them
directly, e.g. TCPIP0::192.168.1.40::5025::SOCKET.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResources(cmd)
		},
	}
}

func runResources(cmd *cobra.Command) error {
	found := visa.Resources()
	if len(found) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No local serial resources found.")

		return nil
	}

	for _, resource := range found {
		fmt.Fprintln(cmd.OutOrStdout(), resource)
	}

	return nil
}
