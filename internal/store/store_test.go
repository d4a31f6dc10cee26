package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/valpere/scrapping/internal/pipeline"
)

func TestRunLayoutCreatesDeterministicTree(t *testing.T) {
	dir := t.TempDir()
	layout, err := NewRunLayout(dir, "20260729T120000Z", "abcd1234")
	if err != nil {
		t.Fatalf("NewRunLayout: %v", err)
	}
	wantRoot := filepath.Join(dir, "run_20260729T120000Z_abcd1234")
	if layout.Root != wantRoot {
		t.Errorf("Root = %q, want %q", layout.Root, wantRoot)
	}

	src, err := layout.SourceDir("jobs_fixture")
	if err != nil {
		t.Fatalf("SourceDir: %v", err)
	}
	for _, dir := range []string{src.RawPagesDir(), src.LinksDir(), src.ItemsDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s to exist", dir)
		}
	}
}

func TestJSONLWriterRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "items.jsonl")

	w, err := NewItemWriter("jsonl", path)
	if err != nil {
		t.Fatalf("NewItemWriter: %v", err)
	}
	item := pipeline.Item{SourceID: "s", URL: "https://x.test/1", Title: "T", Text: "body", FetchedAt: time.Now()}
	if err := w.Persist(context.Background(), item); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty jsonl output")
	}
}

func TestCSVWriterWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "items.csv")

	w, err := NewItemWriter("csv", path)
	if err != nil {
		t.Fatalf("NewItemWriter: %v", err)
	}
	for i := 0; i < 3; i++ {
		item := pipeline.Item{SourceID: "s", URL: "https://x.test/1", Title: "T", Text: "body", FetchedAt: time.Now()}
		if err := w.Persist(context.Background(), item); err != nil {
			t.Fatalf("Persist: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 4 {
		t.Errorf("expected 1 header + 3 rows = 4 lines, got %d", lines)
	}
}

func TestRawPageWriterCreatesOneFilePerKind(t *testing.T) {
	dir := t.TempDir()
	w := NewRawPageWriter(dir)
	defer w.Close()

	if err := w.PersistRawPage(context.Background(), "listing", pipeline.RawPageRecord{URL: "https://x.test/jobs"}); err != nil {
		t.Fatalf("PersistRawPage listing: %v", err)
	}
	if err := w.PersistRawPage(context.Background(), "detail", pipeline.RawPageRecord{URL: "https://x.test/jobs/1"}); err != nil {
		t.Fatalf("PersistRawPage detail: %v", err)
	}

	for _, kind := range []string{"listing", "detail"} {
		path := filepath.Join(dir, kind, "pages.jsonl")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile %s: %v", path, err)
		}
		if len(data) == 0 {
			t.Errorf("expected non-empty %s", path)
		}
	}
}

func TestLinkWriterAppendsExtractedLinkRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extracted_links.jsonl")

	w, err := NewLinkWriter(path)
	if err != nil {
		t.Fatalf("NewLinkWriter: %v", err)
	}
	rec := pipeline.ExtractedLinkRecord{URLRaw: "/jobs/1", URLNormalized: "https://x.test/jobs/1", SourcePageURL: "https://x.test/jobs"}
	if err := w.PersistLink(context.Background(), rec); err != nil {
		t.Fatalf("PersistLink: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty links file")
	}
}

func TestBboltDedupeStoreSeenAndMark(t *testing.T) {
	dir := t.TempDir()
	store, err := NewBboltDedupeStore(filepath.Join(dir, "dedupe.bbolt"))
	if err != nil {
		t.Fatalf("NewBboltDedupeStore: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	seen, err := store.SeenURL(ctx, "s", "https://x.test/1")
	if err != nil || seen {
		t.Fatalf("expected unseen URL, got seen=%v err=%v", seen, err)
	}
	if err := store.MarkURL(ctx, "s", "https://x.test/1"); err != nil {
		t.Fatalf("MarkURL: %v", err)
	}
	seen, err = store.SeenURL(ctx, "s", "https://x.test/1")
	if err != nil || !seen {
		t.Fatalf("expected seen URL after mark, got seen=%v err=%v", seen, err)
	}

	// A different source_id must not share state.
	seen, err = store.SeenURL(ctx, "other", "https://x.test/1")
	if err != nil || seen {
		t.Fatalf("expected dedupe state to be per-source, got seen=%v err=%v", seen, err)
	}
}
