// Command aircore validates, runs, records and replays aircraft systems
// simulations.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/aircore/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
