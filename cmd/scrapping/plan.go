package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/scrapping/internal/config"
	"github.com/valpere/scrapping/internal/pipeline"
)

func newPlanCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Describe the set of listing URLs a run would fetch, without fetching them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a JSON or YAML source descriptor file")
	cmd.MarkFlagRequired("config")
	return cmd
}

func runPlan(cmd *cobra.Command, configPath string) error {
	descs, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "parse error: %v\n", err)
		os.Exit(2)
	}

	for _, d := range descs {
		urls := pipeline.ExpandEntrypoints(d.Entrypoints)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d listing URL(s)\n", d.SourceID, len(urls))
		for _, u := range urls {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", u)
		}
	}
	return nil
}
