// Command spicetaste drives the on-device wallpaper personalization
// engine: a daemon loop or one-shot subcommands, grounded on cmd/spice's
// single-instance main but reworked around spf13/cobra (grounded on
// jmylchreest-tinct/cmd/tinct).
package main

import "github.com/dixieflatline76/spicetaste/internal/cli"

func main() {
	cli.Execute()
}
