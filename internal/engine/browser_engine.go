package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/valpere/scrapping/internal/config"
	"github.com/valpere/scrapping/internal/errkind"
	"github.com/valpere/scrapping/internal/obslog"
	"github.com/valpere/scrapping/internal/ratelimit"
)

// BrowserEngine fetches pages with a real Chromium tab via chromedp,
// letting it drive the action DSL against a live DOM. One BrowserEngine
// owns one allocator context for its whole run.
type BrowserEngine struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	cfg         config.EngineConfig
	rl          *ratelimit.Registry
	log         *obslog.Logger
	pool        *ContextPool
}

// NewBrowserEngine launches a headless Chromium allocator for the run. Tab
// contexts drawn against that allocator are bounded by a process-wide
// ContextPool, since one allocator process can only render so many pages in
// parallel before memory and CPU contention dominate.
func NewBrowserEngine(cfg config.EngineConfig, rl *ratelimit.Registry, log *obslog.Logger) (*BrowserEngine, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.BlockImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	pool := processWidePool(cfg.MaxConcurrentContexts)
	return &BrowserEngine{allocCtx: allocCtx, allocCancel: cancel, cfg: cfg, rl: rl, log: log, pool: pool}, nil
}

func (e *BrowserEngine) navTimeout() time.Duration {
	if e.cfg.NavTimeoutS > 0 {
		return time.Duration(e.cfg.NavTimeoutS * float64(time.Second))
	}
	return time.Duration(e.cfg.TimeoutS * float64(time.Second))
}

// Get navigates to targetURL and returns the rendered HTML with no action
// sequence applied - equivalent to GetRendered with a no-op run.
func (e *BrowserEngine) Get(ctx context.Context, targetURL string) (*FetchResponse, error) {
	return e.GetRendered(ctx, targetURL, func(RenderContext) error { return nil })
}

// GetRendered navigates to targetURL, runs the caller's action sequence
// against the live tab, then captures the resulting HTML.
func (e *BrowserEngine) GetRendered(ctx context.Context, targetURL string, run func(RenderContext) error) (*FetchResponse, error) {
	if err := e.rl.Acquire(ctx, targetURL); err != nil {
		return nil, errkind.New(errkind.ConfigError, "browser_engine.get", err)
	}

	if err := e.pool.Acquire(ctx); err != nil {
		return nil, errkind.New(errkind.RenderTimeout, "browser_engine.pool_acquire", err)
	}
	defer e.pool.Release()

	tabCtx, tabCancel := chromedp.NewContext(e.allocCtx)
	defer tabCancel()

	timeout := e.navTimeout()
	if timeout > 0 {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithTimeout(tabCtx, timeout)
		defer cancel()
	}

	start := time.Now()
	rc := &chromedpRenderContext{ctx: tabCtx}

	if err := rc.Navigate(tabCtx, targetURL); err != nil {
		return nil, errkind.New(errkind.RenderTimeout, "browser_engine.navigate", err)
	}

	if err := run(rc); err != nil {
		return nil, errkind.New(errkind.ActionFailure, "browser_engine.actions", err)
	}

	html, err := rc.HTML(tabCtx)
	if err != nil {
		return nil, errkind.New(errkind.RenderTimeout, "browser_engine.html", err)
	}

	block := classifyBlock(200, html)
	return &FetchResponse{
		URL:        targetURL,
		FinalURL:   targetURL,
		StatusCode: 200,
		Body:       html,
		Rendered:   true,
		Block:      block,
		FetchedAt:  start,
		Latency:    time.Since(start),
		Trace: []TraceEntry{{
			Engine: "browser", URL: targetURL, Attempt: 1,
			StatusCode: 200, Block: block, At: start, Latency: time.Since(start),
		}},
	}, nil
}

// Close shuts down the browser allocator.
func (e *BrowserEngine) Close() error {
	e.allocCancel()
	return nil
}

// chromedpRenderContext implements RenderContext against one chromedp tab.
type chromedpRenderContext struct {
	ctx context.Context
}

func (c *chromedpRenderContext) Navigate(ctx context.Context, url string) error {
	return chromedp.Run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body"))
}

func (c *chromedpRenderContext) HTML(ctx context.Context) (string, error) {
	var html string
	err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html))
	return html, err
}

func (c *chromedpRenderContext) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return chromedp.Run(runCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (c *chromedpRenderContext) Click(ctx context.Context, selector string) error {
	return chromedp.Run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (c *chromedpRenderContext) Hover(ctx context.Context, selector string) error {
	return chromedp.Run(ctx, chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.MouseClickXY(0, 0, chromedp.Button("none")))
}

func (c *chromedpRenderContext) Type(ctx context.Context, selector, text string, clear bool) error {
	actions := []chromedp.Action{}
	if clear {
		actions = append(actions, chromedp.Clear(selector, chromedp.ByQuery))
	}
	actions = append(actions, chromedp.SendKeys(selector, text, chromedp.ByQuery))
	return chromedp.Run(ctx, actions...)
}

func (c *chromedpRenderContext) ClosePopup(ctx context.Context, selector string) error {
	return chromedp.Run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (c *chromedpRenderContext) Scroll(ctx context.Context, minPx, maxPx int) error {
	px := minPx
	if maxPx > minPx {
		px = minPx + rand.Intn(maxPx-minPx+1)
	}
	return chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", px), nil))
}

func (c *chromedpRenderContext) Sleep(ctx context.Context, d time.Duration) error {
	return chromedp.Run(ctx, chromedp.Sleep(d))
}

func (c *chromedpRenderContext) MouseDrift(ctx context.Context, preset string) error {
	x, y := float64(100+rand.Intn(400)), float64(100+rand.Intn(400))
	return chromedp.Run(ctx, chromedp.MouseClickXY(x, y, chromedp.Button("none")))
}
