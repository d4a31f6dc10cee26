// cmd/scrapping is the CLI entrypoint: doctor, validate, run, plan, and
// capture-fixture, dispatched through spf13/cobra rather than the
// teacher's hand-rolled flag parsing, since this surface carries five
// subcommands with per-command flags instead of the teacher's four bare
// positional ones.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
)

func main() {
	root := &cobra.Command{
		Use:     "scrapping",
		Short:   "Config-driven scraping engine",
		Version: version,
	}

	root.AddCommand(
		newDoctorCmd(),
		newValidateCmd(),
		newRunCmd(),
		newPlanCmd(),
		newCaptureFixtureCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
