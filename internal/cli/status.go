package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dixieflatline76/spicetaste/pkg/vector"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print queue depth, cache usage, taste vector norm and recent history",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()

		total, err := a.Cache.TotalBytes()
		if err != nil {
			return fmt.Errorf("status: cache size: %w", err)
		}
		prefs := a.Store.Get()

		fmt.Fprintf(out, "queue depth:        %d\n", a.Queue.Len())
		fmt.Fprintf(out, "cache bytes used:   %d / %d\n", total, a.Config.CacheBudgetBytes)
		fmt.Fprintf(out, "taste vector norm:  %.4f\n", vector.Norm(prefs.TasteVector))
		fmt.Fprintf(out, "feedback count:     %d\n", prefs.FeedbackCount)
		fmt.Fprintln(out, "recent history:")
		for _, entry := range a.History.Recent(5) {
			status := "active"
			if entry.RemovedAt != nil {
				status = "removed " + entry.RemovedAt.Format("2006-01-02T15:04:05")
			}
			fmt.Fprintf(out, "  %s  applied %s  %s\n", entry.WallpaperID, entry.AppliedAt.Format("2006-01-02T15:04:05"), status)
		}
		return nil
	},
}
