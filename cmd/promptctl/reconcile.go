package main

import (
	"promptstore/application/commands"
	"promptstore/application/commands/bus"

	"github.com/spf13/cobra"
)

func (a *app) reconcileCmd() *cobra.Command {
	var (
		userID   string
		promptID string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Restore exactly one latest document per lineage",
		Long: `reconcile promotes the highest version of a lineage that has no latest
document and demotes the extra ones of a lineage that has several. With --all
it sweeps every lineage; only one sweep runs at a time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var c bus.Command = commands.ReconcileLineageCommand{UserID: userID, PromptID: promptID}
			if all {
				c = commands.ReconcileAllCommand{}
			}
			result, err := a.container.CommandBus.Send(cmd.Context(), c)
			if err != nil {
				return err
			}
			return a.print(cmd, result)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "owner of the prompt lineage")
	cmd.Flags().StringVar(&promptID, "prompt", "", "prompt id within the user's namespace")
	cmd.Flags().BoolVar(&all, "all", false, "sweep every lineage")
	cmd.MarkFlagsRequiredTogether("user", "prompt")
	cmd.MarkFlagsMutuallyExclusive("all", "user")
	cmd.MarkFlagsOneRequired("all", "user")
	return cmd
}
