// Package store owns the on-disk run layout, item writers (jsonl/csv/xlsx),
// run-report persistence, the pluggable cross-run DedupeStore backends, and
// the optional S3 artifact sync.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// RunLayout is the deterministic directory structure for one run:
//
//	results/run_<ts>_<id>/
//	  run.log
//	  run_meta.json
//	  run_report.json
//	  sources/<source_id>/
//	    source.log
//	    raw_pages/...
//	    links/...
//	    items/...
type RunLayout struct {
	Root string
}

// NewRunLayout creates results/run_<ts>_<id> and returns its layout.
func NewRunLayout(resultsDir, timestamp, runID string) (*RunLayout, error) {
	root := filepath.Join(resultsDir, fmt.Sprintf("run_%s_%s", timestamp, runID))
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("store: create run directory: %w", err)
	}
	return &RunLayout{Root: root}, nil
}

func (l *RunLayout) RunLogPath() string    { return filepath.Join(l.Root, "run.log") }
func (l *RunLayout) RunMetaPath() string   { return filepath.Join(l.Root, "run_meta.json") }
func (l *RunLayout) RunReportPath() string { return filepath.Join(l.Root, "run_report.json") }

// SourceDir ensures and returns the per-source subtree, creating
// raw_pages/, links/, and items/ beneath it.
func (l *RunLayout) SourceDir(sourceID string) (*SourceLayout, error) {
	root := filepath.Join(l.Root, "sources", sourceID)
	for _, sub := range []string{"raw_pages", "links", "items"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("store: create source subtree %s: %w", sub, err)
		}
	}
	return &SourceLayout{Root: root}, nil
}

// SourceLayout is the per-source subtree under one run.
type SourceLayout struct {
	Root string
}

func (s *SourceLayout) LogPath() string     { return filepath.Join(s.Root, "source.log") }
func (s *SourceLayout) RawPagesDir() string { return filepath.Join(s.Root, "raw_pages") }
func (s *SourceLayout) LinksDir() string    { return filepath.Join(s.Root, "links") }
func (s *SourceLayout) ItemsDir() string    { return filepath.Join(s.Root, "items") }

// ItemsValidPath is where the configured-format writer persists accepted
// items only - the format a user actually wants to consume downstream.
func (s *SourceLayout) ItemsValidPath(format string) string {
	return filepath.Join(s.ItemsDir(), "items_valid."+format)
}

// ItemsAllPath is items/items.jsonl: every parsed item, valid or dropped.
func (s *SourceLayout) ItemsAllPath() string {
	return filepath.Join(s.ItemsDir(), "items.jsonl")
}

// ItemsDroppedPath is items/items_dropped.jsonl: dropped items only, each
// carrying its _drop_reason and quality/validation issue fields.
func (s *SourceLayout) ItemsDroppedPath() string {
	return filepath.Join(s.ItemsDir(), "items_dropped.jsonl")
}

// LinksPath is links/extracted_links.jsonl.
func (s *SourceLayout) LinksPath() string {
	return filepath.Join(s.LinksDir(), "extracted_links.jsonl")
}
