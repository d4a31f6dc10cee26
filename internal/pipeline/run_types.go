package pipeline

import (
	"context"
	"time"

	"github.com/valpere/scrapping/internal/obslog"
)

// Item is one extracted detail page. A successfully persisted item has
// DropReason empty; a dropped one still carries everything extracted so
// far plus DropReason and the issues that caused the drop, since
// items.jsonl (every parsed item) and items_dropped.jsonl both serialize
// this same type.
type Item struct {
	SourceID         string                 `json:"source_id"`
	URL              string                 `json:"url"`
	Title            string                 `json:"title"`
	Text             string                 `json:"text"`
	Method           string                 `json:"extract_method"`
	ContentHash      string                 `json:"content_hash"`
	Fields           map[string]interface{} `json:"fields,omitempty"`
	FetchedAt        time.Time              `json:"fetched_at"`
	DropReason       DropReason             `json:"_drop_reason,omitempty"`
	QualityIssues    []string               `json:"_quality_issues,omitempty"`
	ValidationErrors []string               `json:"_validation_errors,omitempty"`
}

// DropReason records why an item never reached persistence.
type DropReason string

const (
	DropQuality    DropReason = "quality_filter"
	DropBlocked    DropReason = "blocked"
	DropValidation DropReason = "validation_failure"
	DropDedupeURL  DropReason = "dedupe_url"
	DropDedupeHash DropReason = "dedupe_content"
	DropFetchError DropReason = "fetch_error"
)

// RunStatus is the overall outcome of one source's run.
type RunStatus string

const (
	StatusSuccess RunStatus = "success"
	StatusPartial RunStatus = "partial"
	StatusFailed  RunStatus = "failed"
)

// RunReport summarizes one source's run for run_report.json.
type RunReport struct {
	SourceID        string             `json:"source_id"`
	RunID           string             `json:"run_id"`
	Status          RunStatus          `json:"status"`
	StartedAt       time.Time          `json:"started_at"`
	FinishedAt      time.Time          `json:"finished_at"`
	URLsDiscovered  int                `json:"urls_discovered"`
	ItemsFetched    int                `json:"items_fetched"`
	ItemsPersisted  int                `json:"items_persisted"`
	DroppedByReason map[DropReason]int `json:"dropped_by_reason"`
	Errors          []string           `json:"errors,omitempty"`
	TopErrors       []string           `json:"top_errors,omitempty"`
	LatencyP50Ms    float64            `json:"latency_p50_ms"`
	LatencyP95Ms    float64            `json:"latency_p95_ms"`
}

// RawPageRecord is one fetched page's envelope, written to
// raw_pages/listing/*.jsonl and raw_pages/detail/*.jsonl.
type RawPageRecord struct {
	URL        string    `json:"url"`
	FinalURL   string    `json:"final_url"`
	StatusCode int       `json:"status_code"`
	Block      string    `json:"block_signal,omitempty"`
	Rendered   bool      `json:"rendered"`
	FetchedAt  time.Time `json:"fetched_at"`
	LatencyMs  float64   `json:"latency_ms"`
}

// ExtractedLinkRecord is one detail-page link discovered on a listing
// page, written to links/extracted_links.jsonl.
type ExtractedLinkRecord struct {
	URLRaw        string    `json:"url_raw"`
	URLNormalized string    `json:"url_normalized"`
	SourcePageURL string    `json:"source_page_url"`
	DiscoveredAt  time.Time `json:"discovered_at"`
}

// RawPageSink persists one fetched page's envelope. kind is "listing" or
// "detail". Implementations live in internal/store; a nil sink is a
// legal no-op for callers (e.g. --dry-run) that skip this artifact.
type RawPageSink interface {
	PersistRawPage(ctx context.Context, kind string, rec RawPageRecord) error
}

// LinkSink persists one discovered link record.
type LinkSink interface {
	PersistLink(ctx context.Context, rec ExtractedLinkRecord) error
}

// DedupeStore is the pluggable cross-run dedupe backend. Implementations
// exist for in-memory, sqlite, bbolt, postgres, mysql, and mongo (see
// internal/store); the orchestrator only ever depends on this interface.
type DedupeStore interface {
	SeenURL(ctx context.Context, sourceID, url string) (bool, error)
	MarkURL(ctx context.Context, sourceID, url string) error
	SeenContentHash(ctx context.Context, sourceID, hash string) (bool, error)
	MarkContentHash(ctx context.Context, sourceID, hash string) error
}

// Persister writes accepted items to durable storage. internal/store's
// writers satisfy this; the orchestrator depends only on the interface so
// pipeline never imports store (store imports pipeline for Item instead).
type Persister interface {
	Persist(ctx context.Context, item Item) error
}

// RunContext threads the services every stage needs - logging, dedupe
// store, the run's deadline - without any of them living as a package
// singleton. One RunContext is created per source run.
type RunContext struct {
	RunID    string
	SourceID string
	Log      *obslog.Logger
	Dedupe   DedupeStore
	Deadline time.Time
}

// Context derives a context bound to the run's deadline, if any.
func (rc *RunContext) Context(parent context.Context) (context.Context, context.CancelFunc) {
	if rc.Deadline.IsZero() {
		return context.WithCancel(parent)
	}
	return context.WithDeadline(parent, rc.Deadline)
}
