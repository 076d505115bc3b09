package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dixieflatline76/spicetaste/pkg/feedback"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record explicit feedback on the currently active wallpaper",
}

var feedbackLikeCmd = &cobra.Command{
	Use:   "like",
	Short: "Record a like for the currently active wallpaper",
	RunE:  runFeedback(feedback.KindLike),
}

var feedbackDislikeCmd = &cobra.Command{
	Use:   "dislike",
	Short: "Record a dislike for the currently active wallpaper",
	RunE:  runFeedback(feedback.KindDislike),
}

func init() {
	feedbackCmd.AddCommand(feedbackLikeCmd, feedbackDislikeCmd)
}

func runFeedback(kind feedback.Kind) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		active, ok := a.History.Active()
		if !ok {
			return fmt.Errorf("feedback: no wallpaper is currently active")
		}
		snap := a.Catalog.Snap()
		wp, ok := snap.Get(active.WallpaperID)
		if !ok {
			return fmt.Errorf("feedback: active wallpaper %s not found in catalog", active.WallpaperID)
		}
		err = a.Feedback.Explicit(kind, feedback.WallpaperContext{
			ID: wp.ID, Embedding: wp.Embedding, Palette: wp.Palette, Category: wp.Category,
		})
		if err != nil {
			return fmt.Errorf("feedback: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "recorded %s feedback for %s\n", kind, wp.ID)
		return nil
	}
}
