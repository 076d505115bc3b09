// Package cli implements the spicetaste command-line driver: run (daemon
// loop), tick (single apply-next), feedback like|dislike, and status.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dixieflatline76/spicetaste/internal/app"
	"github.com/dixieflatline76/spicetaste/internal/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "spicetaste",
		Short:        "On-device wallpaper personalization engine",
		SilenceUsage: true,
	}
	root.AddCommand(runCmd, tickCmd, feedbackCmd, statusCmd)
	return root
}

// Execute runs the root command. Called once from main.main.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootForTest returns a fresh root command tree for tests that need to
// capture output or assert on exit codes without calling os.Exit.
func NewRootForTest() *cobra.Command {
	return newRootCmd()
}

// buildApp loads configuration and constructs a fully-wired App, the
// common entry point every subcommand starts from.
func buildApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cli: load config: %w", err)
	}
	a, err := app.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("cli: build app: %w", err)
	}
	return a, nil
}
