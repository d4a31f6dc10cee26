package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/valpere/scrapping/internal/action"
	"github.com/valpere/scrapping/internal/config"
	"github.com/valpere/scrapping/internal/engine"
	"github.com/valpere/scrapping/internal/errkind"
	"github.com/valpere/scrapping/internal/extract"
	"github.com/valpere/scrapping/internal/metrics"
	"github.com/valpere/scrapping/internal/resilience"
)

// topKErrors is how many ranked error-kind reasons RunReport.TopErrors
// carries; enough to see the dominant failure modes without dumping the
// whole Errors log twice.
const topKErrors = 5

// Orchestrator runs one source's descriptor through all nine stages:
// expand_entrypoints, fetch_listing, extract_links, fetch_details,
// html_to_structured, quality_filter, validate, dedupe, persist.
//
// Breaker and Metrics are both optional; a nil Breaker never trips, and a
// nil Metrics records nothing. RawPages, Links, AllItems and Dropped are
// all optional artifact sinks; a nil sink just means that artifact isn't
// written (e.g. --dry-run).
type Orchestrator struct {
	Descriptor config.Descriptor
	Engine     engine.Engine
	Persister  Persister
	RC         *RunContext
	Breaker    *resilience.CircuitBreaker
	Metrics    *metrics.Registry

	RawPages RawPageSink
	Links    LinkSink
	AllItems Persister
	Dropped  Persister

	errorKindCounts map[string]int
}

// Run executes the full pipeline for one source and returns its report.
func (o *Orchestrator) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		SourceID:        o.Descriptor.SourceID,
		RunID:           o.RC.RunID,
		StartedAt:       time.Now(),
		DroppedByReason: make(map[DropReason]int),
	}
	o.errorKindCounts = make(map[string]int)

	runCtx, cancel := o.RC.Context(ctx)
	defer cancel()

	// Stage 1: expand_entrypoints
	listingURLs := ExpandEntrypoints(o.Descriptor.Entrypoints)

	actions, err := action.FromConfigAll(o.Descriptor.Actions)
	if err != nil {
		o.recordError(report, err, fmt.Sprintf("orchestrator.actions: %v", err))
		report.FinishedAt = time.Now()
		report.Status = StatusFailed
		report.TopErrors = o.topErrors()
		return report, errkind.New(errkind.ConfigError, "orchestrator.actions", err)
	}

	var detailURLs []string
	seenDetail := make(map[string]bool)
	var latencies []time.Duration

	for _, listingURL := range listingURLs {
		// Stage 2: fetch_listing
		resp, err := o.fetch(runCtx, listingURL, actions)
		if err != nil {
			o.recordError(report, err, fmt.Sprintf("fetch_listing %s: %v", listingURL, err))
			o.RC.Log.Warnf("fetch_listing failed for %s: %v", listingURL, err)
			continue
		}
		latencies = append(latencies, resp.Latency)
		o.writeRawPage(runCtx, "listing", listingURL, resp)
		if resp.Block != engine.BlockNone {
			blockErr := errkind.New(errkind.BlockSignal, "fetch_listing", fmt.Errorf("%s classified as %s", listingURL, resp.Block))
			o.recordError(report, blockErr, blockErr.Error())
			o.RC.Log.Warnf("fetch_listing: %s classified as %s, skipping", listingURL, resp.Block)
			continue
		}

		// Stage 3: extract_links
		links, err := extract.Links(resp.FinalURL, resp.Body, o.Descriptor.Discovery.LinkExtract)
		if err != nil {
			o.recordError(report, err, fmt.Sprintf("extract_links %s: %v", listingURL, err))
			continue
		}
		o.writeLinks(runCtx, listingURL, links)
		for _, l := range links {
			if !seenDetail[l] {
				seenDetail[l] = true
				detailURLs = append(detailURLs, l)
			}
		}
	}
	report.URLsDiscovered = len(detailURLs)

	for _, detailURL := range detailURLs {
		item, dropped, err := o.processDetail(runCtx, detailURL, actions, &latencies)
		if err != nil {
			o.recordError(report, err, fmt.Sprintf("fetch_details %s: %v", detailURL, err))
			report.DroppedByReason[DropFetchError]++
			if o.Metrics != nil {
				o.Metrics.RecordItemDropped(o.Descriptor.SourceID, string(DropFetchError))
			}
			continue
		}
		if item != nil {
			o.writeAllItems(runCtx, *item)
		}
		if dropped != "" {
			report.DroppedByReason[dropped]++
			if o.Metrics != nil {
				o.Metrics.RecordItemDropped(o.Descriptor.SourceID, string(dropped))
			}
			if item != nil {
				o.writeDropped(runCtx, *item)
			}
			continue
		}
		report.ItemsFetched++
		if o.Metrics != nil {
			o.Metrics.RecordItemFetched(o.Descriptor.SourceID)
		}

		if err := o.Persister.Persist(runCtx, *item); err != nil {
			o.recordError(report, err, fmt.Sprintf("persist %s: %v", detailURL, err))
			continue
		}
		report.ItemsPersisted++
		if o.Metrics != nil {
			o.Metrics.RecordItemPersisted(o.Descriptor.SourceID)
		}
	}

	report.LatencyP50Ms, report.LatencyP95Ms = percentiles(latencies)
	report.FinishedAt = time.Now()
	report.TopErrors = o.topErrors()

	switch {
	case len(report.Errors) == 0:
		report.Status = StatusSuccess
	case report.ItemsPersisted == 0 && report.URLsDiscovered > 0:
		report.Status = StatusFailed
	default:
		report.Status = StatusPartial
	}

	if o.Metrics != nil {
		outcome := "ok"
		if report.Status != StatusSuccess {
			outcome = "partial_errors"
		}
		o.Metrics.RecordRun(o.Descriptor.SourceID, outcome, report.FinishedAt.Sub(report.StartedAt))
	}
	return report, nil
}

// recordError appends msg to report.Errors and tallies err's classified
// kind, so the run's top error reasons can be ranked by frequency rather
// than shown as one long undifferentiated log.
func (o *Orchestrator) recordError(report *RunReport, err error, msg string) {
	report.Errors = append(report.Errors, msg)
	o.errorKindCounts[errkind.KindOf(err).String()]++
}

// topErrors ranks the run's error kinds by frequency, most common first,
// capped at topKErrors.
func (o *Orchestrator) topErrors() []string {
	if len(o.errorKindCounts) == 0 {
		return nil
	}
	kinds := make([]string, 0, len(o.errorKindCounts))
	for k := range o.errorKindCounts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if o.errorKindCounts[kinds[i]] != o.errorKindCounts[kinds[j]] {
			return o.errorKindCounts[kinds[i]] > o.errorKindCounts[kinds[j]]
		}
		return kinds[i] < kinds[j]
	})
	if len(kinds) > topKErrors {
		kinds = kinds[:topKErrors]
	}
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = fmt.Sprintf("%s (%d)", k, o.errorKindCounts[k])
	}
	return out
}

// writeRawPage persists resp's envelope to the raw_pages/<kind> artifact,
// if a sink is configured. kind is "listing" or "detail".
func (o *Orchestrator) writeRawPage(ctx context.Context, kind, url string, resp *engine.FetchResponse) {
	if o.RawPages == nil || resp == nil {
		return
	}
	rec := RawPageRecord{
		URL:        url,
		FinalURL:   resp.FinalURL,
		StatusCode: resp.StatusCode,
		Block:      string(resp.Block),
		Rendered:   resp.Rendered,
		FetchedAt:  resp.FetchedAt,
		LatencyMs:  float64(resp.Latency.Milliseconds()),
	}
	if err := o.RawPages.PersistRawPage(ctx, kind, rec); err != nil {
		o.RC.Log.Warnf("persist raw page (%s) for %s: %v", kind, url, err)
	}
}

// writeLinks persists one extracted-link record per discovered link, if a
// sink is configured.
func (o *Orchestrator) writeLinks(ctx context.Context, listingURL string, links []string) {
	if o.Links == nil {
		return
	}
	discoveredAt := time.Now()
	for _, l := range links {
		rec := ExtractedLinkRecord{URLRaw: l, URLNormalized: l, SourcePageURL: listingURL, DiscoveredAt: discoveredAt}
		if err := o.Links.PersistLink(ctx, rec); err != nil {
			o.RC.Log.Warnf("persist extracted link %s: %v", l, err)
		}
	}
}

// writeAllItems records every parsed item - valid or dropped - if a sink
// is configured, satisfying items/items.jsonl.
func (o *Orchestrator) writeAllItems(ctx context.Context, item Item) {
	if o.AllItems == nil {
		return
	}
	if err := o.AllItems.Persist(ctx, item); err != nil {
		o.RC.Log.Warnf("persist item record for %s: %v", item.URL, err)
	}
}

// writeDropped records a dropped item to items/items_dropped.jsonl, if a
// sink is configured.
func (o *Orchestrator) writeDropped(ctx context.Context, item Item) {
	if o.Dropped == nil {
		return
	}
	if err := o.Dropped.Persist(ctx, item); err != nil {
		o.RC.Log.Warnf("persist dropped item record for %s: %v", item.URL, err)
	}
}

// processDetail runs fetch_details through persist-readiness for one
// detail URL: html_to_structured, quality_filter, validate, dedupe. The
// returned Item is non-nil whenever a page was actually parsed, even if
// it was then dropped, so callers can still write it to items.jsonl and
// items_dropped.jsonl; it is nil only when no Item was ever constructed
// (fetch or extraction never produced one).
func (o *Orchestrator) processDetail(ctx context.Context, detailURL string, actions []action.Action, latencies *[]time.Duration) (*Item, DropReason, error) {
	// Stage 4: fetch_details
	resp, err := o.fetch(ctx, detailURL, actions)
	if err != nil {
		return nil, "", err
	}
	*latencies = append(*latencies, resp.Latency)
	o.writeRawPage(ctx, "detail", detailURL, resp)

	if resp.Block != engine.BlockNone {
		blockErr := errkind.New(errkind.BlockSignal, "fetch_details", fmt.Errorf("%s classified as %s", detailURL, resp.Block))
		o.RC.Log.Warnf("%v", blockErr)
		item := &Item{SourceID: o.Descriptor.SourceID, URL: detailURL, FetchedAt: resp.FetchedAt, DropReason: DropBlocked, QualityIssues: []string{string(resp.Block)}}
		return item, DropBlocked, nil
	}

	// Stage 5: html_to_structured
	structured, err := extract.ToStructured(resp.FinalURL, resp.Body, o.Descriptor.Parse)
	if err != nil {
		return nil, "", err
	}
	if structured.Text == "" && structured.Title == "" {
		return nil, "", errkind.New(errkind.ExtractionEmpty, "html_to_structured", fmt.Errorf("no content extracted from %s", detailURL))
	}

	item := &Item{
		SourceID:  o.Descriptor.SourceID,
		URL:       detailURL,
		Title:     structured.Title,
		Text:      structured.Text,
		Method:    structured.Method,
		FetchedAt: resp.FetchedAt,
	}

	// Stage 6: quality_filter
	if drop, issues := o.qualityFilter(item); drop != "" {
		item.QualityIssues = issues
		item.DropReason = drop
		return item, drop, nil
	}

	// Stage 7: validate
	if errs := o.validate(item); len(errs) > 0 {
		item.ValidationErrors = errs
		item.DropReason = DropValidation
		return item, DropValidation, nil
	}

	item.ContentHash = ContentHash(item.Title, item.Text, item.Fields, o.Descriptor.Discovery.Dedupe)

	// Stage 8: dedupe
	seenURL, err := o.RC.Dedupe.SeenURL(ctx, o.Descriptor.SourceID, item.URL)
	if err != nil {
		return nil, "", err
	}
	if seenURL {
		item.DropReason = DropDedupeURL
		return item, DropDedupeURL, nil
	}
	seenHash, err := o.RC.Dedupe.SeenContentHash(ctx, o.Descriptor.SourceID, item.ContentHash)
	if err != nil {
		return nil, "", err
	}
	if seenHash {
		item.DropReason = DropDedupeHash
		return item, DropDedupeHash, nil
	}
	if err := o.RC.Dedupe.MarkURL(ctx, o.Descriptor.SourceID, item.URL); err != nil {
		return nil, "", err
	}
	if err := o.RC.Dedupe.MarkContentHash(ctx, o.Descriptor.SourceID, item.ContentHash); err != nil {
		return nil, "", err
	}

	return item, "", nil
}

// qualityFilter checks a detail item against the quality stage's
// block_patterns and thresholds. A block_patterns match is reported as
// DropBlocked, not DropQuality, since it signals the same kind of
// bot-defense page as a Block != BlockNone fetch response, just detected
// one stage later once the body is available as plain text.
func (o *Orchestrator) qualityFilter(item *Item) (DropReason, []string) {
	q := o.Descriptor.Quality
	for _, p := range q.BlockPatterns {
		if re, err := regexp.Compile(p); err == nil && re.MatchString(item.Text) {
			return DropBlocked, []string{"block_pattern_matched"}
		}
	}

	var issues []string
	if q.MinTextLen > 0 && len(item.Text) < q.MinTextLen {
		issues = append(issues, "below_min_text_len")
	}
	if q.MaxBoilerplateRatio > 0 && extract.BoilerplateRatio(item.Text) > q.MaxBoilerplateRatio {
		issues = append(issues, "boilerplate_ratio_exceeded")
	}
	if len(issues) > 0 {
		return DropQuality, issues
	}
	return "", nil
}

func (o *Orchestrator) validate(item *Item) []string {
	v := o.Descriptor.Validation
	var errs []string
	if v.RequireTitle && item.Title == "" {
		errs = append(errs, "missing_title")
	}
	if v.RequireText && item.Text == "" {
		errs = append(errs, "missing_text")
	}
	if v.MinTextLen > 0 && len(item.Text) < v.MinTextLen {
		errs = append(errs, "text_below_min_len")
	}
	return errs
}

// fetch performs a plain Get when there are no actions to run, and a
// rendered fetch through the action interpreter otherwise. A non-nil
// Breaker gates the call and records the outcome, so a source that keeps
// failing stops burning the retry budget once it trips open.
func (o *Orchestrator) fetch(ctx context.Context, url string, actions []action.Action) (*engine.FetchResponse, error) {
	if o.Breaker != nil && !o.Breaker.Allow() {
		return nil, errkind.New(errkind.CircuitOpen, "orchestrator.fetch", fmt.Errorf("circuit breaker open for source %s", o.Descriptor.SourceID))
	}

	var resp *engine.FetchResponse
	var err error
	if len(actions) == 0 {
		resp, err = o.Engine.Get(ctx, url)
	} else {
		resp, err = o.Engine.GetRendered(ctx, url, func(rc engine.RenderContext) error {
			return action.Run(ctx, rc, actions)
		})
	}

	if o.Breaker != nil {
		if err != nil {
			o.Breaker.RecordFailure()
		} else {
			o.Breaker.RecordSuccess()
		}
	}
	if o.Metrics != nil {
		o.Metrics.SetCircuitBreakerState(o.Descriptor.SourceID, int(o.currentBreakerState()))
		if err != nil {
			o.Metrics.RecordRequestError(o.Descriptor.SourceID, errkind.KindOf(err).String())
		} else {
			o.Metrics.RecordRequest(o.Descriptor.SourceID, o.Descriptor.Engine.Type, resp.StatusCode, resp.Latency)
		}
	}
	return resp, err
}

func (o *Orchestrator) currentBreakerState() resilience.State {
	if o.Breaker == nil {
		return resilience.Closed
	}
	return o.Breaker.State()
}

func percentiles(durations []time.Duration) (p50, p95 float64) {
	if len(durations) == 0 {
		return 0, 0
	}
	sorted := append([]time.Duration(nil), durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	at := func(p float64) float64 {
		idx := int(p * float64(len(sorted)-1))
		return float64(sorted[idx].Milliseconds())
	}
	return at(0.50), at(0.95)
}
