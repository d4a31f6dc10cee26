package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

const fixtureDescriptor = `
source_id: jobs_fixture
engine:
  type: http
  timeout_s: 10
entrypoints:
  - url: "https://fix.test/jobs?page={page}"
    paging: {mode: page, start: 1, pages: 2, step: 1}
discovery:
  link_extract:
    method: regex
    pattern: "https://fix\\.test/jobs/\\d+"
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.yaml")
	if err := os.WriteFile(path, []byte(fixtureDescriptor), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRunPlanListsExpandedEntrypoints(t *testing.T) {
	path := writeFixture(t)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	if err := runPlan(cmd, path); err != nil {
		t.Fatalf("runPlan: %v", err)
	}

	out := buf.String()
	if !bytes.Contains([]byte(out), []byte("jobs_fixture: 2 listing URL(s)")) {
		t.Errorf("expected 2 expanded listing URLs, got: %s", out)
	}
	if !bytes.Contains([]byte(out), []byte("https://fix.test/jobs?page=1")) {
		t.Errorf("expected page=1 URL in plan output, got: %s", out)
	}
}

func TestRunValidateAcceptsValidFixture(t *testing.T) {
	path := writeFixture(t)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	if err := runValidate(cmd, path); err != nil {
		t.Fatalf("runValidate: %v", err)
	}
	if !bytes.Contains([]byte(buf.String()), []byte("jobs_fixture: valid")) {
		t.Errorf("expected valid verdict, got: %s", buf.String())
	}
}
