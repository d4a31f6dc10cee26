package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newCaptureFixtureCmd() *cobra.Command {
	var (
		targetURL string
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "capture-fixture",
		Short: "Save a URL's HTML body as a test fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCaptureFixture(targetURL, outPath)
		},
	}
	cmd.Flags().StringVar(&targetURL, "url", "", "URL to fetch")
	cmd.Flags().StringVar(&outPath, "out", "", "path to write the captured HTML")
	cmd.MarkFlagRequired("url")
	cmd.MarkFlagRequired("out")
	return cmd
}

// runCaptureFixture performs a bare, unrated fetch - this is a developer
// tool for seeding test fixtures, not a source run, so it intentionally
// skips the rate limiter, retry policy, and engine selection a real source
// descriptor would apply.
func runCaptureFixture(targetURL, outPath string) error {
	client := &http.Client{Timeout: 30 * time.Second}

	resp, err := client.Get(targetURL)
	if err != nil {
		return fmt.Errorf("capture-fixture: fetch %s: %w", targetURL, err)
	}
	defer resp.Body.Close()

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("capture-fixture: create %s: %w", outPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("capture-fixture: write %s: %w", outPath, err)
	}
	return nil
}
