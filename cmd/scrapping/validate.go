package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/scrapping/internal/config"
)

func newValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a source descriptor file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a JSON or YAML source descriptor file")
	cmd.MarkFlagRequired("config")
	return cmd
}

func runValidate(cmd *cobra.Command, configPath string) error {
	descs, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "parse error: %v\n", err)
		os.Exit(2)
	}

	anyInvalid := false
	for _, d := range descs {
		res := config.Validate(&d)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ", d.SourceID)
		if res.OK {
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "invalid")
			anyInvalid = true
		}
		for _, e := range res.Errors {
			fmt.Fprintf(cmd.OutOrStdout(), "  error: %s\n", e.Error())
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(cmd.OutOrStdout(), "  warning: %s\n", w)
		}
	}

	if anyInvalid {
		os.Exit(2)
	}
	return nil
}
