package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/valpere/scrapping/internal/pipeline"
)

// RunMeta is the top-level run_meta.json: identifies the run independent
// of any one source's report.
type RunMeta struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Sources    []string  `json:"sources"`
}

// WriteJSON marshals v with indentation and writes it to path, used for
// run_meta.json and run_report.json alike.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	return nil
}

// WriteRunReport persists one source's pipeline.RunReport to
// run_report.json, merging multiple sources' reports into a single array
// if the file already exists from a prior source in the same run.
func WriteRunReport(path string, report *pipeline.RunReport) error {
	var reports []*pipeline.RunReport

	if existing, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(existing, &reports)
	}
	reports = append(reports, report)

	return WriteJSON(path, reports)
}
