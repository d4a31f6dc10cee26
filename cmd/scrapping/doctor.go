package main

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"
)

// check is one named environment probe, in the spirit of the teacher's
// HealthCheck/HealthCheckResult pair, trimmed to a single pass/fail run
// (no ticking interval - doctor runs once and exits).
type check struct {
	name string
	run  func() error
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the runtime environment can support a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd)
		},
	}
}

func runDoctor(cmd *cobra.Command) error {
	checks := []check{
		{name: "dns_resolution", run: checkDNS},
		{name: "browser_backend", run: checkBrowserBackend},
		{name: "results_dir_writable", run: checkResultsDirWritable},
	}

	failed := false
	for _, c := range checks {
		err := c.run()
		status := "ok"
		if err != nil {
			status = "FAIL: " + err.Error()
			failed = true
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", c.name, status)
	}

	if failed {
		return fmt.Errorf("doctor: one or more checks failed")
	}
	return nil
}

func checkDNS() error {
	_, err := net.LookupHost("www.google.com")
	return err
}

// checkBrowserBackend looks for a Chrome/Chromium binary on PATH, since
// BrowserEngine (and any hybrid fallback) needs one chromedp can drive.
// Its absence is not fatal to an http-only config, but doctor reports it
// so a hybrid/browser source fails fast instead of mid-run.
func checkBrowserBackend() error {
	candidates := []string{"google-chrome", "chromium", "chromium-browser", "chrome"}
	for _, name := range candidates {
		if _, err := exec.LookPath(name); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no chrome/chromium binary found on PATH (needed for browser/hybrid engines)")
}

func checkResultsDirWritable() error {
	dir := "results"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := dir + "/.doctor_probe"
	if err := os.WriteFile(probe, []byte(time.Now().Format(time.RFC3339)), 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}
