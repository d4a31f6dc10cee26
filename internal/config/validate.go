package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ConfigError is returned by Validate when a hard invariant is broken.
// It is fatal: a run must never start with a ConfigError outstanding.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Message)
}

// Result holds the outcome of validating one descriptor.
type Result struct {
	OK       bool
	Errors   []*ConfigError
	Warnings []string
}

var validEngineTypes = map[string]bool{"http": true, "browser": true, "hybrid": true}
var validBackoffModes = map[string]bool{"exp": true, "fixed": true, "none": true}
var validLinkMethods = map[string]bool{"regex": true, "css": true, "xpath": true}
var validPagingModes = map[string]bool{"page": true, "offset": true}
var validItemsFormats = map[string]bool{"jsonl": true, "csv": true, "parquet": true, "xlsx": true}
var validActionTypes = map[string]bool{
	"wait_for": true, "click": true, "hover": true, "type": true,
	"close_popup": true, "scroll": true, "sleep": true, "mouse_drift": true,
}

// sourceIDPattern enforces "safe for filesystem": letters, digits, -, _.
var sourceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validate checks a descriptor's hard invariants and produces non-fatal
// warnings for risky-but-legal configurations (broad regex, disabled TLS
// verification, a browser engine requested where Playwright/chromedp is
// unavailable is reported by the caller, not here, since availability is a
// runtime concern not a config concern).
func Validate(d *Descriptor) Result {
	var res Result
	res.OK = true

	fail := func(field, format string, args ...interface{}) {
		res.OK = false
		res.Errors = append(res.Errors, &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)})
	}
	warn := func(format string, args ...interface{}) {
		res.Warnings = append(res.Warnings, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(d.SourceID) == "" {
		fail("source_id", "must not be empty")
	} else if !sourceIDPattern.MatchString(d.SourceID) {
		fail("source_id", "must contain only letters, digits, '-', '_' to be safe for filesystem paths, got %q", d.SourceID)
	}

	if !validEngineTypes[d.Engine.Type] {
		fail("engine.type", "must be one of http, browser, hybrid, got %q", d.Engine.Type)
	}
	if d.Engine.TimeoutS <= 0 {
		fail("engine.timeout_s", "must be > 0, got %v", d.Engine.TimeoutS)
	}
	if d.Engine.RPS < 0 {
		fail("engine.rps", "must be >= 0, got %v", d.Engine.RPS)
	}
	if d.Engine.MinDelayS < 0 {
		fail("engine.min_delay_s", "must be >= 0, got %v", d.Engine.MinDelayS)
	}
	if !validBackoffModes[d.Engine.BackoffMode] {
		fail("engine.backoff_mode", "must be one of exp, fixed, none, got %q", d.Engine.BackoffMode)
	}
	if d.Engine.VerifySSL != nil && !*d.Engine.VerifySSL {
		warn("engine.verify_ssl is false: TLS certificate verification is disabled for this source")
	}

	if len(d.Entrypoints) == 0 {
		fail("entrypoints", "must contain at least one entrypoint")
	}
	for i, ep := range d.Entrypoints {
		field := fmt.Sprintf("entrypoints[%d]", i)
		if _, err := url.Parse(strings.ReplaceAll(strings.ReplaceAll(ep.URL, "{page}", "1"), "{offset}", "0")); err != nil || ep.URL == "" {
			fail(field+".url", "must be a well-formed URL template, got %q", ep.URL)
		}
		if !validPagingModes[ep.Paging.Mode] {
			fail(field+".paging.mode", "must be one of page, offset, got %q", ep.Paging.Mode)
		}
		if ep.Paging.Step < 1 {
			fail(field+".paging.step", "must be >= 1, got %d", ep.Paging.Step)
		}
	}

	for i, a := range d.Actions {
		if !validActionTypes[a.Type] {
			fail(fmt.Sprintf("actions[%d].type", i), "unknown action type %q", a.Type)
		}
	}

	if !validLinkMethods[d.Discovery.LinkExtract.Method] {
		fail("discovery.link_extract.method", "must be one of regex, css, xpath, got %q", d.Discovery.LinkExtract.Method)
	} else {
		switch d.Discovery.LinkExtract.Method {
		case "regex":
			if d.Discovery.LinkExtract.Pattern == "" {
				fail("discovery.link_extract.pattern", "is required for method \"regex\"")
			} else if re, err := regexp.Compile(d.Discovery.LinkExtract.Pattern); err != nil {
				fail("discovery.link_extract.pattern", "does not compile: %v", err)
			} else if looksBroad(re) {
				warn("discovery.link_extract.pattern %q has no domain anchor and may match off-domain URLs", d.Discovery.LinkExtract.Pattern)
			}
		case "css", "xpath":
			if d.Discovery.LinkExtract.Selector == "" {
				fail("discovery.link_extract.selector", "is required for method %q", d.Discovery.LinkExtract.Method)
			}
		}
	}

	if d.Validation.MinTextLen < 0 {
		fail("validation.min_text_len", "must be >= 0, got %d", d.Validation.MinTextLen)
	}

	for i, p := range d.Quality.BlockPatterns {
		if _, err := regexp.Compile(p); err != nil {
			fail(fmt.Sprintf("quality.block_patterns[%d]", i), "does not compile: %v", err)
		}
	}
	if d.Quality.MaxBoilerplateRatio < 0 || d.Quality.MaxBoilerplateRatio > 1 {
		fail("quality.max_boilerplate_ratio", "must be between 0 and 1, got %v", d.Quality.MaxBoilerplateRatio)
	}

	if d.Storage.ItemsFormat != "" && !validItemsFormats[d.Storage.ItemsFormat] {
		fail("storage.items_format", "must be one of jsonl, csv, parquet, xlsx, got %q", d.Storage.ItemsFormat)
	}

	if d.Engine.Type == "browser" || d.Engine.Type == "hybrid" {
		warn("engine.type %q requires a working chromedp/Chromium backend; run `scrapping doctor` to verify availability", d.Engine.Type)
	}

	return res
}

// looksBroad flags a regex that contains no literal "://" scheme+host
// prefix, a heuristic for "could match off-domain" per spec.md §4.1.
func looksBroad(re *regexp.Regexp) bool {
	return !strings.Contains(re.String(), "://")
}
