// internal/config/config.go
package config

// Legacy represents the old job-scraper configuration shape. It predates
// the descriptor-based schema and is accepted only by Migrate so that
// existing job-scraper configs keep working without hand-editing.
type Legacy struct {
	Name           string            `yaml:"name" json:"name"`
	BaseURL        string            `yaml:"base_url" json:"base_url"`
	Pattern        string            `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	MaxPages       int               `yaml:"max_pages,omitempty" json:"max_pages,omitempty"`
	Unsequential   bool              `yaml:"unsequential,omitempty" json:"unsequential,omitempty"`
	StepPage       int               `yaml:"step_page,omitempty" json:"step_page,omitempty"`
	UserAgent      string            `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	RateLimit      string            `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
	Timeout        string            `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	MaxRetries     int               `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	Headers        map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	ActionScrolling bool             `yaml:"action_scrolling,omitempty" json:"action_scrolling,omitempty"`
	ActionClick     string           `yaml:"action_click,omitempty" json:"action_click,omitempty"`
	TitleSelector   string           `yaml:"title_selector,omitempty" json:"title_selector,omitempty"`
	TextSelector    string           `yaml:"text_selector,omitempty" json:"text_selector,omitempty"`
	OutputFormat    string           `yaml:"output_format,omitempty" json:"output_format,omitempty"`
}

// looksLegacy reports whether a raw document uses job-scraper keys instead
// of the current descriptor schema (presence of base_url/pattern/etc. and
// absence of source_id/engine).
func looksLegacy(raw map[string]interface{}) bool {
	if _, hasSourceID := raw["source_id"]; hasSourceID {
		return false
	}
	if _, hasEngine := raw["engine"]; hasEngine {
		return false
	}
	_, hasBaseURL := raw["base_url"]
	_, hasPattern := raw["pattern"]
	_, hasMaxPages := raw["max_pages"]
	return hasBaseURL || hasPattern || hasMaxPages
}
