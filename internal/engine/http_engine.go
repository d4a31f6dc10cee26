package engine

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/valpere/scrapping/internal/config"
	"github.com/valpere/scrapping/internal/errkind"
	"github.com/valpere/scrapping/internal/obslog"
	"github.com/valpere/scrapping/internal/ratelimit"
)

// ErrRenderUnsupported is returned by HTTPEngine.GetRendered since a plain
// HTTP client cannot execute an action sequence against a live DOM.
var ErrRenderUnsupported = errors.New("engine: render actions require the browser or hybrid engine")

// HTTPEngine fetches pages with net/http, applying the descriptor's
// per-domain rate limit and retry policy around every request.
type HTTPEngine struct {
	client *http.Client
	cfg    config.EngineConfig
	rl     *ratelimit.Registry
	log    *obslog.Logger
}

// NewHTTPEngine builds an HTTPEngine from one descriptor's engine config.
// The cookie jar and transport pooling mirror how a production scraper
// keeps session state across a run while bounding connection reuse.
func NewHTTPEngine(cfg config.EngineConfig, rl *ratelimit.Registry, log *obslog.Logger) (*HTTPEngine, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errkind.New(errkind.EngineConstruction, "http_engine.new", fmt.Errorf("create cookie jar: %w", err))
	}

	verify := true
	if cfg.VerifySSL != nil {
		verify = *cfg.VerifySSL
	}

	poolConns := cfg.PoolConnections
	if poolConns <= 0 {
		poolConns = 100
	}
	poolMax := cfg.PoolMaxSize
	if poolMax <= 0 {
		poolMax = 10
	}

	transport := &http.Transport{
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: !verify},
		MaxIdleConns:        poolConns,
		MaxIdleConnsPerHost: poolMax,
		IdleConnTimeout:     90 * time.Second,
	}

	timeout := time.Duration(cfg.TimeoutS * float64(time.Second))
	client := &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   timeout,
	}

	return &HTTPEngine{client: client, cfg: cfg, rl: rl, log: log}, nil
}

// Get fetches targetURL, retrying per the descriptor's retry policy on the
// configured retryable statuses and on transport-level timeouts.
func (e *HTTPEngine) Get(ctx context.Context, targetURL string) (*FetchResponse, error) {
	maxRetries := e.cfg.MaxRetries
	var lastErr error
	var trace []TraceEntry

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := e.rl.Acquire(ctx, targetURL); err != nil {
			return nil, errkind.New(errkind.ConfigError, "http_engine.get", err)
		}

		resp, err := e.doOnce(ctx, targetURL)
		if err == nil {
			trace = append(trace, TraceEntry{
				Engine: "http", URL: targetURL, Attempt: attempt + 1,
				StatusCode: resp.StatusCode, Block: resp.Block,
				At: resp.FetchedAt, Latency: resp.Latency,
			})
			if !e.cfg.IsRetryableStatus(resp.StatusCode) {
				resp.Trace = trace
				return resp, nil
			}
			if attempt == maxRetries {
				resp.Trace = trace
				return resp, nil
			}
			lastErr = errkind.New(errkind.RetryableStatus, "http_engine.get", fmt.Errorf("status %d", resp.StatusCode))
			e.log.Warnf("http_engine: retryable status %d for %s (attempt %d/%d)", resp.StatusCode, targetURL, attempt+1, maxRetries+1)
		} else {
			lastErr = err
			trace = append(trace, TraceEntry{
				Engine: "http", URL: targetURL, Attempt: attempt + 1,
				Err: err.Error(), At: time.Now(),
			})
			if kind, ok := errkind.As(err); ok && !kind.Retryable() {
				return &FetchResponse{URL: targetURL, FinalURL: targetURL, StatusCode: 0, Trace: trace, FetchedAt: time.Now()}, err
			}
			e.log.Warnf("http_engine: fetch error for %s (attempt %d/%d): %v", targetURL, attempt+1, maxRetries+1, err)
		}

		if attempt == maxRetries {
			break
		}

		d := ratelimit.Backoff(attempt, e.cfg.BackoffMode, e.cfg.BackoffBaseS)
		if d > 0 {
			t := time.NewTimer(d)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return &FetchResponse{URL: targetURL, FinalURL: targetURL, StatusCode: 0, Trace: trace, FetchedAt: time.Now()}, ctx.Err()
			}
		}
	}

	return &FetchResponse{URL: targetURL, FinalURL: targetURL, StatusCode: 0, Trace: trace, FetchedAt: time.Now()}, lastErr
}

func (e *HTTPEngine) doOnce(ctx context.Context, targetURL string) (*FetchResponse, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, errkind.New(errkind.ConfigError, "http_engine.do", err)
	}
	if e.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", e.cfg.UserAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		kind := errkind.TransportTimeoutConnect
		if errors.Is(err, context.DeadlineExceeded) {
			kind = errkind.TransportTimeoutRead
		}
		return nil, errkind.New(kind, "http_engine.do", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errkind.New(errkind.TransportTimeoutRead, "http_engine.do", err)
	}

	finalURL := targetURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	text := string(body)
	return &FetchResponse{
		URL:        targetURL,
		FinalURL:   finalURL,
		StatusCode: resp.StatusCode,
		Body:       text,
		Headers:    resp.Header,
		Rendered:   false,
		Block:      classifyBlock(resp.StatusCode, text),
		FetchedAt:  start,
		Latency:    time.Since(start),
	}, nil
}

// GetRendered always fails for HTTPEngine: plain HTTP has no DOM to drive
// action sequences against. HybridEngine does not call it: its GetRendered
// goes straight to the browser engine.
func (e *HTTPEngine) GetRendered(ctx context.Context, targetURL string, run func(RenderContext) error) (*FetchResponse, error) {
	return nil, ErrRenderUnsupported
}

// Close releases the engine's idle connections.
func (e *HTTPEngine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
