// internal/config/types.go

// Package config parses and validates source descriptors: the single typed
// input that varies between scraping targets. It accepts JSON or YAML,
// applies defaults, validates hard invariants, and migrates legacy
// job-scraper config shapes into the current schema.
package config

// Descriptor is the complete, typed configuration for one scraping source.
type Descriptor struct {
	SourceID    string           `yaml:"source_id" json:"source_id"`
	Engine      EngineConfig     `yaml:"engine" json:"engine"`
	Entrypoints []Entrypoint     `yaml:"entrypoints" json:"entrypoints"`
	Actions     []ActionConfig   `yaml:"actions,omitempty" json:"actions,omitempty"`
	Discovery   DiscoveryConfig  `yaml:"discovery" json:"discovery"`
	Parse       ParseConfig      `yaml:"parse,omitempty" json:"parse,omitempty"`
	Validation  ValidationConfig `yaml:"validation,omitempty" json:"validation,omitempty"`
	Quality     QualityConfig    `yaml:"quality,omitempty" json:"quality,omitempty"`
	Storage     StorageConfig    `yaml:"storage,omitempty" json:"storage,omitempty"`
	Schedule    *ScheduleConfig  `yaml:"schedule,omitempty" json:"schedule,omitempty"`
}

// EngineConfig is the transport, rate-limit, and retry policy for one source.
type EngineConfig struct {
	Type      string  `yaml:"type" json:"type"` // http | browser | hybrid
	TimeoutS  float64 `yaml:"timeout_s" json:"timeout_s"`
	VerifySSL *bool   `yaml:"verify_ssl,omitempty" json:"verify_ssl,omitempty"`
	UserAgent string  `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`

	RPS       float64 `yaml:"rps" json:"rps"`
	Burst     int     `yaml:"burst" json:"burst"`
	MinDelayS float64 `yaml:"min_delay_s" json:"min_delay_s"`
	JitterS   float64 `yaml:"jitter_s" json:"jitter_s"`

	MaxRetries    int     `yaml:"max_retries" json:"max_retries"`
	BackoffMode   string  `yaml:"backoff_mode" json:"backoff_mode"` // exp | fixed | none
	BackoffBaseS  float64 `yaml:"backoff_base_s,omitempty" json:"backoff_base_s,omitempty"`
	RetryOnStatus []int   `yaml:"retry_on_status,omitempty" json:"retry_on_status,omitempty"`

	NavTimeoutS    float64 `yaml:"nav_timeout_s,omitempty" json:"nav_timeout_s,omitempty"`
	RenderTimeoutS float64 `yaml:"render_timeout_s,omitempty" json:"render_timeout_s,omitempty"`

	PoolConnections int `yaml:"pool_connections,omitempty" json:"pool_connections,omitempty"`
	PoolMaxSize     int `yaml:"pool_maxsize,omitempty" json:"pool_maxsize,omitempty"`

	BlockImages bool `yaml:"block_images,omitempty" json:"block_images,omitempty"`
	BlockFonts  bool `yaml:"block_fonts,omitempty" json:"block_fonts,omitempty"`

	// MaxConcurrentContexts caps how many browser tab contexts may run at
	// once across the whole process, not just this source. Zero means the
	// browser engine's own default.
	MaxConcurrentContexts int `yaml:"max_concurrent_contexts,omitempty" json:"max_concurrent_contexts,omitempty"`
}

// IsRetryableStatus reports whether code is in this engine's retry_on_status
// list.
func (c EngineConfig) IsRetryableStatus(code int) bool {
	for _, s := range c.RetryOnStatus {
		if s == code {
			return true
		}
	}
	return false
}

// Entrypoint is one listing starting point plus its paging policy.
type Entrypoint struct {
	URL    string       `yaml:"url" json:"url"`
	Paging PagingConfig `yaml:"paging,omitempty" json:"paging,omitempty"`
}

// PagingConfig describes how a templated entrypoint URL is expanded.
type PagingConfig struct {
	Mode  string `yaml:"mode" json:"mode"` // page | offset
	Start int    `yaml:"start" json:"start"`
	Pages int    `yaml:"pages" json:"pages"`
	Step  int    `yaml:"step" json:"step"`
}

// ActionConfig is one step of the browser action DSL, as parsed from config.
// Field presence is interpreted per action Type; package action holds the
// typed, validated form used at execution time.
type ActionConfig struct {
	Type     string  `yaml:"type" json:"type"`
	Selector string  `yaml:"selector,omitempty" json:"selector,omitempty"`
	TimeoutS float64 `yaml:"timeout_s,omitempty" json:"timeout_s,omitempty"`
	Repeat   int     `yaml:"repeat,omitempty" json:"repeat,omitempty"`
	PauseS   float64 `yaml:"pause_s,omitempty" json:"pause_s,omitempty"`
	Text     string  `yaml:"text,omitempty" json:"text,omitempty"`
	Clear    bool    `yaml:"clear,omitempty" json:"clear,omitempty"`
	MinPx    int     `yaml:"min_px,omitempty" json:"min_px,omitempty"`
	MaxPx    int     `yaml:"max_px,omitempty" json:"max_px,omitempty"`
	Preset   string  `yaml:"preset,omitempty" json:"preset,omitempty"`
	Seconds  float64 `yaml:"seconds,omitempty" json:"seconds,omitempty"`
	Strict   bool    `yaml:"strict,omitempty" json:"strict,omitempty"`
}

// DiscoveryConfig configures link discovery on listing pages.
type DiscoveryConfig struct {
	LinkExtract LinkExtractConfig `yaml:"link_extract" json:"link_extract"`
	Dedupe      DedupeConfig      `yaml:"dedupe,omitempty" json:"dedupe,omitempty"`
}

// LinkExtractConfig describes how detail-page links are discovered on a listing page.
type LinkExtractConfig struct {
	Method     string `yaml:"method" json:"method"` // regex | css | xpath
	Pattern    string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Selector   string `yaml:"selector,omitempty" json:"selector,omitempty"`
	Identifier string `yaml:"identifier,omitempty" json:"identifier,omitempty"`
}

// DedupeConfig configures content-fingerprint dedupe and the pluggable dedupe store.
type DedupeConfig struct {
	ContentFields []string `yaml:"content_fields,omitempty" json:"content_fields,omitempty"`
	TextPrefixLen int      `yaml:"text_prefix_len,omitempty" json:"text_prefix_len,omitempty"`
	Store         string   `yaml:"store,omitempty" json:"store,omitempty"` // memory | sqlite | bbolt | postgres | mysql | mongo
	StoreDSN      string   `yaml:"store_dsn,omitempty" json:"store_dsn,omitempty"`
}

// ParseConfig names the optional explicit selectors for detail-page parsing.
type ParseConfig struct {
	TitleSelector string `yaml:"title_selector,omitempty" json:"title_selector,omitempty"`
	TextSelector  string `yaml:"text_selector,omitempty" json:"text_selector,omitempty"`
	WaitFor       string `yaml:"wait_for,omitempty" json:"wait_for,omitempty"`
}

// ValidationConfig configures the validate stage's required-field checks.
type ValidationConfig struct {
	MinTextLen   int  `yaml:"min_text_len" json:"min_text_len"`
	RequireTitle bool `yaml:"require_title" json:"require_title"`
	RequireText  bool `yaml:"require_text" json:"require_text"`
}

// QualityConfig configures the quality_filter stage.
type QualityConfig struct {
	BlockPatterns       []string `yaml:"block_patterns,omitempty" json:"block_patterns,omitempty"`
	MinTextLen          int      `yaml:"min_text_len" json:"min_text_len"`
	MaxBoilerplateRatio float64  `yaml:"max_boilerplate_ratio" json:"max_boilerplate_ratio"`
}

// StorageConfig configures on-disk artifact format and optional remote sync.
type StorageConfig struct {
	ItemsFormat string `yaml:"items_format" json:"items_format"` // jsonl | csv | xlsx | parquet
	S3Bucket    string `yaml:"s3_bucket,omitempty" json:"s3_bucket,omitempty"`
	S3Prefix    string `yaml:"s3_prefix,omitempty" json:"s3_prefix,omitempty"`
}

// ScheduleConfig is an optional interval/cron hint, informational to the core.
type ScheduleConfig struct {
	Cron     string `yaml:"cron,omitempty" json:"cron,omitempty"`
	Interval string `yaml:"interval,omitempty" json:"interval,omitempty"`
}

// Document is the top-level shape accepted by Load: either a single source
// object, or {"sources": [...]}.
type Document struct {
	Sources []Descriptor `yaml:"sources,omitempty" json:"sources,omitempty"`
}
