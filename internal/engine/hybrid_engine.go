package engine

import (
	"context"
	"fmt"

	"github.com/valpere/scrapping/internal/config"
	"github.com/valpere/scrapping/internal/extract"
	"github.com/valpere/scrapping/internal/obslog"
)

// HybridEngine tries HTTPEngine first and only pays for a browser tab when
// the plain fetch comes back blocked, empty, or the caller needs rendered
// actions. This mirrors the common production pattern of reserving the
// expensive engine for pages that actually need it.
type HybridEngine struct {
	http       *HTTPEngine
	browser    *BrowserEngine
	log        *obslog.Logger
	parse      config.ParseConfig
	minTextLen int
}

// NewHybridEngine composes an already-built HTTPEngine and BrowserEngine.
// parse and minTextLen back the third fallback condition: an HTTP response
// that parses to less extracted text than minTextLen is treated the same
// as a blocked or failed fetch and re-tried against the browser.
func NewHybridEngine(http *HTTPEngine, browser *BrowserEngine, log *obslog.Logger, parse config.ParseConfig, minTextLen int) *HybridEngine {
	return &HybridEngine{http: http, browser: browser, log: log, parse: parse, minTextLen: minTextLen}
}

// Get tries the HTTP engine first and falls back to the browser engine
// when the plain fetch errored, the response was classified as blocked,
// or the extracted text came back shorter than minTextLen - a page that
// renders its real content client-side often still returns 200 with a
// thin shell.
func (e *HybridEngine) Get(ctx context.Context, targetURL string) (*FetchResponse, error) {
	resp, err := e.http.Get(ctx, targetURL)

	var reason string
	switch {
	case err != nil:
		reason = fmt.Sprintf("http fetch failed: %v", err)
	case resp.Block != BlockNone:
		reason = fmt.Sprintf("http fetch classified as %s", resp.Block)
	case e.minTextLen > 0 && e.extractedTextLen(resp) < e.minTextLen:
		reason = "extracted text below min_text_len"
	}
	if reason == "" {
		return resp, nil
	}
	e.log.Warnf("hybrid_engine: falling back to browser for %s: %s", targetURL, reason)

	browserResp, berr := e.browser.Get(ctx, targetURL)
	if berr != nil {
		return browserResp, berr
	}

	var trace []TraceEntry
	if resp != nil {
		trace = append(trace, resp.Trace...)
	}
	trace = append(trace, browserResp.Trace...)
	browserResp.Trace = trace
	return browserResp, nil
}

// extractedTextLen runs the detail-page parser over resp's body to measure
// how much real text an HTTP-only fetch actually yielded. A parse failure
// counts as zero, which itself triggers the fallback.
func (e *HybridEngine) extractedTextLen(resp *FetchResponse) int {
	if resp == nil {
		return 0
	}
	structured, err := extract.ToStructured(resp.FinalURL, resp.Body, e.parse)
	if err != nil {
		return 0
	}
	return len(structured.Text)
}

// GetRendered always uses the browser engine: an action sequence requires
// a live DOM that HTTPEngine cannot provide.
func (e *HybridEngine) GetRendered(ctx context.Context, targetURL string, run func(RenderContext) error) (*FetchResponse, error) {
	return e.browser.GetRendered(ctx, targetURL, run)
}

// Close closes both underlying engines.
func (e *HybridEngine) Close() error {
	err1 := e.http.Close()
	err2 := e.browser.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
