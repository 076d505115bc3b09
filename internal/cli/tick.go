package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dixieflatline76/spicetaste/pkg/orchestrator"
)

var tickManual bool

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run a single apply-next pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		target := orchestrator.ApplyTarget(a.Config.ApplyTarget)
		if err := a.Orchestrator.ApplyNext(cmd.Context(), tickManual, target); err != nil {
			return fmt.Errorf("tick: %w", err)
		}
		if active, ok := a.History.Active(); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", active.WallpaperID)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "no candidate available")
		}
		return nil
	},
}

func init() {
	tickCmd.Flags().BoolVar(&tickManual, "manual", true, "treat this apply as a user-initiated change (routes the prior wallpaper's dwell time to implicit feedback)")
}
