package pipeline

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/valpere/scrapping/internal/config"
	"github.com/valpere/scrapping/internal/engine"
	"github.com/valpere/scrapping/internal/obslog"
)

type fakeEngine struct {
	pages         map[string]string
	blockedDetail string
}

func (f *fakeEngine) Get(ctx context.Context, url string) (*engine.FetchResponse, error) {
	body, ok := f.pages[url]
	if !ok {
		return &engine.FetchResponse{URL: url, FinalURL: url, StatusCode: 404, Body: "", Block: engine.BlockNone}, nil
	}
	block := engine.BlockNone
	if f.blockedDetail != "" && url == f.blockedDetail {
		block = engine.BlockCaptcha
	}
	return &engine.FetchResponse{
		URL: url, FinalURL: url, StatusCode: 200, Body: body,
		Block: block, FetchedAt: time.Now(), Latency: time.Millisecond,
	}, nil
}

func (f *fakeEngine) GetRendered(ctx context.Context, url string, run func(engine.RenderContext) error) (*engine.FetchResponse, error) {
	return f.Get(ctx, url)
}

func (f *fakeEngine) Close() error { return nil }

type fakePersister struct {
	items []Item
}

func (f *fakePersister) Persist(ctx context.Context, item Item) error {
	f.items = append(f.items, item)
	return nil
}

func TestOrchestratorHappyPath(t *testing.T) {
	eng := &fakeEngine{pages: map[string]string{
		"https://fix.test/jobs?page=1": `<html><body><a href="https://fix.test/jobs/1">1</a><a href="https://fix.test/jobs/2">2</a></body></html>`,
		"https://fix.test/jobs/1":      `<html><head><title>Job One</title></head><body><p>A detailed description of job one, long enough to pass quality and validation checks easily.</p></body></html>`,
		"https://fix.test/jobs/2":      `<html><head><title>Job Two</title></head><body><p>A detailed description of job two, long enough to pass quality and validation checks easily.</p></body></html>`,
	}}
	persister := &fakePersister{}

	d := config.Descriptor{
		SourceID:    "jobs_fixture",
		Entrypoints: []config.Entrypoint{{URL: "https://fix.test/jobs?page={page}", Paging: config.PagingConfig{Mode: "page", Start: 1, Pages: 1, Step: 1}}},
		Discovery: config.DiscoveryConfig{
			LinkExtract: config.LinkExtractConfig{Method: "regex", Pattern: `https://fix\.test/jobs/\d+`},
		},
		Validation: config.ValidationConfig{RequireTitle: true, RequireText: true, MinTextLen: 10},
	}

	o := &Orchestrator{
		Descriptor: d,
		Engine:     eng,
		Persister:  persister,
		RC: &RunContext{
			RunID: "test-run", SourceID: d.SourceID,
			Log: obslog.New(io.Discard, obslog.WarnLevel), Dedupe: NewMemoryDedupeStore(),
		},
	}

	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.ItemsPersisted != 2 {
		t.Errorf("expected 2 persisted items, got %d (errors: %v)", report.ItemsPersisted, report.Errors)
	}
	if len(persister.items) != 2 {
		t.Fatalf("persister recorded %d items, want 2", len(persister.items))
	}
}

func TestOrchestratorDedupesAcrossPages(t *testing.T) {
	eng := &fakeEngine{pages: map[string]string{
		"https://fix.test/jobs?page=1": `<a href="https://fix.test/jobs/1">1</a>`,
		"https://fix.test/jobs?page=2": `<a href="https://fix.test/jobs/1">1 again</a>`,
		"https://fix.test/jobs/1":      `<html><head><title>Job One</title></head><body><p>Long enough detail text for job one to pass every check cleanly.</p></body></html>`,
	}}
	persister := &fakePersister{}

	d := config.Descriptor{
		SourceID: "jobs_fixture",
		Entrypoints: []config.Entrypoint{{
			URL:    "https://fix.test/jobs?page={page}",
			Paging: config.PagingConfig{Mode: "page", Start: 1, Pages: 2, Step: 1},
		}},
		Discovery: config.DiscoveryConfig{
			LinkExtract: config.LinkExtractConfig{Method: "regex", Pattern: `https://fix\.test/jobs/\d+`},
		},
	}

	o := &Orchestrator{
		Descriptor: d, Engine: eng, Persister: persister,
		RC: &RunContext{RunID: "r", SourceID: d.SourceID, Log: obslog.New(io.Discard, obslog.WarnLevel), Dedupe: NewMemoryDedupeStore()},
	}

	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.URLsDiscovered != 1 {
		t.Errorf("expected intra-run dedupe to collapse to 1 detail URL, got %d", report.URLsDiscovered)
	}
	if report.ItemsPersisted != 1 {
		t.Errorf("expected 1 persisted item, got %d", report.ItemsPersisted)
	}
}

type fakeRawPageSink struct {
	records []RawPageRecord
	kinds   []string
}

func (f *fakeRawPageSink) PersistRawPage(ctx context.Context, kind string, rec RawPageRecord) error {
	f.kinds = append(f.kinds, kind)
	f.records = append(f.records, rec)
	return nil
}

type fakeLinkSink struct {
	records []ExtractedLinkRecord
}

func (f *fakeLinkSink) PersistLink(ctx context.Context, rec ExtractedLinkRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func TestOrchestratorRoutesBlockPatternMatchToDropBlocked(t *testing.T) {
	eng := &fakeEngine{pages: map[string]string{
		"https://fix.test/jobs?page=1": `<a href="https://fix.test/jobs/1">1</a>`,
		"https://fix.test/jobs/1":      `<html><head><title>T</title></head><body><p>Please verify you are human to continue browsing this site.</p></body></html>`,
	}}
	persister := &fakePersister{}
	dropped := &fakePersister{}

	d := config.Descriptor{
		SourceID:    "jobs_fixture",
		Entrypoints: []config.Entrypoint{{URL: "https://fix.test/jobs?page={page}", Paging: config.PagingConfig{Mode: "page", Start: 1, Pages: 1, Step: 1}}},
		Discovery:   config.DiscoveryConfig{LinkExtract: config.LinkExtractConfig{Method: "regex", Pattern: `https://fix\.test/jobs/\d+`}},
		Quality:     config.QualityConfig{BlockPatterns: []string{"verify you are human"}},
	}

	o := &Orchestrator{
		Descriptor: d, Engine: eng, Persister: persister, Dropped: dropped,
		RC: &RunContext{RunID: "r", SourceID: d.SourceID, Log: obslog.New(io.Discard, obslog.WarnLevel), Dedupe: NewMemoryDedupeStore()},
	}

	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.DroppedByReason[DropBlocked] != 1 {
		t.Errorf("expected 1 item dropped as blocked, got %v", report.DroppedByReason)
	}
	if report.DroppedByReason[DropQuality] != 0 {
		t.Errorf("block_patterns match must not count as DropQuality, got %v", report.DroppedByReason)
	}
	if len(dropped.items) != 1 || dropped.items[0].DropReason != DropBlocked {
		t.Fatalf("expected the dropped sink to record one blocked item, got %+v", dropped.items)
	}
	if len(dropped.items[0].QualityIssues) == 0 {
		t.Error("expected _quality_issues to be populated on the dropped item")
	}
}

func TestOrchestratorRoutesBlockedFetchResponseSeparatelyFromFetchErrors(t *testing.T) {
	eng := &fakeEngine{pages: map[string]string{
		"https://fix.test/jobs?page=1": `<a href="https://fix.test/jobs/1">1</a>`,
		"https://fix.test/jobs/1":      `<html><body><div class="g-recaptcha"></div></body></html>`,
	}}
	eng.blockedDetail = "https://fix.test/jobs/1"
	persister := &fakePersister{}

	d := config.Descriptor{
		SourceID:    "jobs_fixture",
		Entrypoints: []config.Entrypoint{{URL: "https://fix.test/jobs?page={page}", Paging: config.PagingConfig{Mode: "page", Start: 1, Pages: 1, Step: 1}}},
		Discovery:   config.DiscoveryConfig{LinkExtract: config.LinkExtractConfig{Method: "regex", Pattern: `https://fix\.test/jobs/\d+`}},
	}

	o := &Orchestrator{
		Descriptor: d, Engine: eng, Persister: persister,
		RC: &RunContext{RunID: "r", SourceID: d.SourceID, Log: obslog.New(io.Discard, obslog.WarnLevel), Dedupe: NewMemoryDedupeStore()},
	}

	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.DroppedByReason[DropBlocked] != 1 {
		t.Errorf("expected the blocked detail page to count as DropBlocked, got %v", report.DroppedByReason)
	}
	if report.DroppedByReason[DropFetchError] != 0 {
		t.Errorf("a block signal must not be counted as a fetch error, got %v", report.DroppedByReason)
	}
}

func TestOrchestratorWritesRawPagesAndLinkArtifacts(t *testing.T) {
	eng := &fakeEngine{pages: map[string]string{
		"https://fix.test/jobs?page=1": `<a href="https://fix.test/jobs/1">1</a>`,
		"https://fix.test/jobs/1":      `<html><head><title>Job One</title></head><body><p>Long enough detail text for job one to pass every check cleanly.</p></body></html>`,
	}}
	persister := &fakePersister{}
	rawPages := &fakeRawPageSink{}
	links := &fakeLinkSink{}
	allItems := &fakePersister{}

	d := config.Descriptor{
		SourceID:    "jobs_fixture",
		Entrypoints: []config.Entrypoint{{URL: "https://fix.test/jobs?page={page}", Paging: config.PagingConfig{Mode: "page", Start: 1, Pages: 1, Step: 1}}},
		Discovery:   config.DiscoveryConfig{LinkExtract: config.LinkExtractConfig{Method: "regex", Pattern: `https://fix\.test/jobs/\d+`}},
	}

	o := &Orchestrator{
		Descriptor: d, Engine: eng, Persister: persister,
		RawPages: rawPages, Links: links, AllItems: allItems,
		RC: &RunContext{RunID: "r", SourceID: d.SourceID, Log: obslog.New(io.Discard, obslog.WarnLevel), Dedupe: NewMemoryDedupeStore()},
	}

	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(rawPages.records) != 2 {
		t.Errorf("expected 2 raw page records (1 listing + 1 detail), got %d", len(rawPages.records))
	}
	if len(links.records) != 1 {
		t.Errorf("expected 1 extracted link record, got %d", len(links.records))
	}
	if len(allItems.items) != 1 {
		t.Errorf("expected 1 item recorded to items.jsonl, got %d", len(allItems.items))
	}
}

func TestOrchestratorSetsRunReportStatus(t *testing.T) {
	eng := &fakeEngine{pages: map[string]string{
		"https://fix.test/jobs?page=1": `<html><body><a href="https://fix.test/jobs/1">1</a></body></html>`,
		"https://fix.test/jobs/1":      `<html><head><title>Job One</title></head><body><p>A detailed description of job one, long enough to pass quality and validation checks easily.</p></body></html>`,
	}}
	d := config.Descriptor{
		SourceID:    "jobs_fixture",
		Entrypoints: []config.Entrypoint{{URL: "https://fix.test/jobs?page={page}", Paging: config.PagingConfig{Mode: "page", Start: 1, Pages: 1, Step: 1}}},
		Discovery:   config.DiscoveryConfig{LinkExtract: config.LinkExtractConfig{Method: "regex", Pattern: `https://fix\.test/jobs/\d+`}},
	}
	o := &Orchestrator{
		Descriptor: d, Engine: eng, Persister: &fakePersister{},
		RC: &RunContext{RunID: "r", SourceID: d.SourceID, Log: obslog.New(io.Discard, obslog.WarnLevel), Dedupe: NewMemoryDedupeStore()},
	}
	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Status != StatusSuccess {
		t.Errorf("Status = %q, want %q", report.Status, StatusSuccess)
	}
}

func TestOrchestratorDropsItemsBelowMinTextLen(t *testing.T) {
	eng := &fakeEngine{pages: map[string]string{
		"https://fix.test/jobs?page=1": `<a href="https://fix.test/jobs/1">1</a>`,
		"https://fix.test/jobs/1":      `<html><head><title>T</title></head><body><p>short</p></body></html>`,
	}}
	persister := &fakePersister{}

	d := config.Descriptor{
		SourceID:    "jobs_fixture",
		Entrypoints: []config.Entrypoint{{URL: "https://fix.test/jobs?page={page}", Paging: config.PagingConfig{Mode: "page", Start: 1, Pages: 1, Step: 1}}},
		Discovery:   config.DiscoveryConfig{LinkExtract: config.LinkExtractConfig{Method: "regex", Pattern: `https://fix\.test/jobs/\d+`}},
		Quality:     config.QualityConfig{MinTextLen: 1000},
	}

	o := &Orchestrator{
		Descriptor: d, Engine: eng, Persister: persister,
		RC: &RunContext{RunID: "r", SourceID: d.SourceID, Log: obslog.New(io.Discard, obslog.WarnLevel), Dedupe: NewMemoryDedupeStore()},
	}

	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.DroppedByReason[DropQuality] != 1 {
		t.Errorf("expected 1 item dropped for quality, got %v", report.DroppedByReason)
	}
	if report.ItemsPersisted != 0 {
		t.Errorf("expected 0 persisted items, got %d", report.ItemsPersisted)
	}
}
