package commands

import (
	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command
func NewStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status [platform...]",
		Short: "Show whether platforms are enabled, configured and authenticated",
		RunE: func(cmd *cobra.Command, args []string) error {
			return exit(a.launcher(cmd).PrintStatus(args))
		},
	}
}
