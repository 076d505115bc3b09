package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dixieflatline76/spicetaste/internal/obslog"
	"github.com/dixieflatline76/spicetaste/pkg/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler loop until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := a.RefreshCatalog(ctx); err != nil {
			obslog.Warn("initial catalog refresh failed, continuing with empty catalog")
		}

		hour, minute := a.Config.DailyHourMinute()
		go a.Scheduler.RunCatalogRefreshLoop(ctx, func() time.Duration { return scheduler.RefreshCadence(scheduler.EngagementMedium) }, time.Sleep)
		go a.Scheduler.RunIntervalLoop(ctx, a.Config.RotationInterval, a.Scheduler.Rotation)
		go a.Scheduler.RunDailyLoop(ctx, hour, minute, time.Now, a.Scheduler.Cleanup)

		obslog.Info("spicetaste daemon started")
		<-ctx.Done()
		a.Scheduler.Stop()
		obslog.Info("spicetaste daemon stopped")
		return nil
	},
}
