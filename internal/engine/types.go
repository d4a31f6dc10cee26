// Package engine provides the three interchangeable fetch engines (http,
// browser, hybrid) behind one shared contract, plus the block-signal
// classifier they all use to recognize pages that refuse to serve real
// content.
package engine

import (
	"context"
	"time"
)

// BlockSignal classifies a fetched page for signs that the target does not
// want to be scraped. It is detection-only: nothing in this package or its
// callers attempts to defeat or solve what it detects.
type BlockSignal string

const (
	BlockNone          BlockSignal = "none"
	BlockLikely        BlockSignal = "likely_blocked"
	BlockCaptcha       BlockSignal = "captcha_present"
	BlockLoginRequired BlockSignal = "login_required"
	BlockUnknown       BlockSignal = "unknown"
)

// FetchResponse is the contract every engine returns, regardless of which
// transport served the page.
type FetchResponse struct {
	URL         string
	FinalURL    string
	StatusCode  int
	Body        string
	Headers     map[string][]string
	Rendered    bool
	Block       BlockSignal
	FetchedAt   time.Time
	Latency     time.Duration
	Trace       []TraceEntry
}

// TraceEntry records one engine's attempt at serving a URL. HTTPEngine
// appends one entry per retry; HybridEngine appends its HTTP attempt's
// trace followed by the browser attempt's when it falls back, so the
// final FetchResponse shows the whole decision chain, not just the
// engine that ultimately answered.
type TraceEntry struct {
	Engine     string      `json:"engine"` // http | browser
	URL        string      `json:"url"`
	Attempt    int         `json:"attempt"`
	StatusCode int         `json:"status_code"`
	Block      BlockSignal `json:"block_signal,omitempty"`
	Err        string      `json:"error,omitempty"`
	At         time.Time   `json:"at"`
	Latency    time.Duration `json:"latency"`
}

// Engine is implemented by HTTPEngine, BrowserEngine and HybridEngine.
// Get performs a plain fetch; GetRendered performs a fetch plus the action
// sequence (JS execution, scrolling, clicks) that only a real browser
// context can run. An engine that cannot render (HTTPEngine) returns
// ErrRenderUnsupported from GetRendered; HybridEngine sends rendered
// fetches straight to its browser engine.
type Engine interface {
	Get(ctx context.Context, url string) (*FetchResponse, error)
	GetRendered(ctx context.Context, url string, run func(RenderContext) error) (*FetchResponse, error)
	Close() error
}

// RenderContext is the set of primitives the action interpreter drives
// against a live browser tab. It lives in this package, not action's, so
// the dependency runs one way: action imports engine, engine knows
// nothing about action.
type RenderContext interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, selector string) error
	Hover(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string, clear bool) error
	ClosePopup(ctx context.Context, selector string) error
	Scroll(ctx context.Context, minPx, maxPx int) error
	Sleep(ctx context.Context, d time.Duration) error
	MouseDrift(ctx context.Context, preset string) error
}
