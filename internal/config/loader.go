package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// envPattern matches ${VAR} references inside string config fields.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		if v, ok := os.LookupEnv(string(name)); ok {
			return []byte(v)
		}
		return match
	})
}

// Load reads a JSON or YAML document from path and returns the one or more
// descriptors it contains, after env expansion, legacy migration, and
// default injection. It does not validate; call Validate separately so
// callers can distinguish "could not parse" from "parsed but invalid".
func Load(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return LoadBytes(data)
}

// LoadBytes parses a raw document (JSON or YAML; both decode through the
// YAML parser since JSON is a syntactic subset of YAML) into descriptors.
func LoadBytes(data []byte) ([]Descriptor, error) {
	data = expandEnv(data)

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// {"sources": [...]} form.
	if sourcesRaw, ok := raw["sources"]; ok {
		list, ok := sourcesRaw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("parse config: \"sources\" must be a list")
		}
		descs := make([]Descriptor, 0, len(list))
		for i, item := range list {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("parse config: sources[%d] must be an object", i)
			}
			d, err := decodeOne(m)
			if err != nil {
				return nil, fmt.Errorf("sources[%d]: %w", i, err)
			}
			descs = append(descs, d)
		}
		return descs, nil
	}

	d, err := decodeOne(raw)
	if err != nil {
		return nil, err
	}
	return []Descriptor{d}, nil
}

// decodeOne migrates a single raw document if it uses the legacy shape,
// then decodes and defaults it into a Descriptor.
func decodeOne(raw map[string]interface{}) (Descriptor, error) {
	if looksLegacy(raw) {
		migrated, warnings := migrateLegacyRaw(raw)
		for _, w := range warnings {
			_ = w // migration warnings are returned by Migrate for callers that want them
		}
		raw = migrated
	}

	remarshal, err := yaml.Marshal(raw)
	if err != nil {
		return Descriptor{}, fmt.Errorf("re-encode config: %w", err)
	}

	var d Descriptor
	if err := yaml.Unmarshal(remarshal, &d); err != nil {
		return Descriptor{}, fmt.Errorf("decode descriptor: %w", err)
	}

	applyDefaults(&d)
	return d, nil
}

// applyDefaults fills in the defaults spec.md names: retry_on_status,
// backoff_base, items_format, and validation/quality zero-values that are
// meaningful (min_text_len=0 is valid, so only structural defaults are set
// here).
func applyDefaults(d *Descriptor) {
	if len(d.Engine.RetryOnStatus) == 0 {
		d.Engine.RetryOnStatus = []int{429, 500, 502, 503, 504}
	}
	if d.Engine.BackoffMode == "" {
		d.Engine.BackoffMode = "exp"
	}
	if d.Engine.BackoffBaseS == 0 {
		d.Engine.BackoffBaseS = 1.0
	}
	if d.Engine.NavTimeoutS == 0 {
		d.Engine.NavTimeoutS = d.Engine.TimeoutS
	}
	if d.Engine.RenderTimeoutS == 0 {
		d.Engine.RenderTimeoutS = 10
	}
	if d.Engine.PoolConnections == 0 {
		d.Engine.PoolConnections = 10
	}
	if d.Engine.PoolMaxSize == 0 {
		d.Engine.PoolMaxSize = 100
	}
	if d.Storage.ItemsFormat == "" {
		d.Storage.ItemsFormat = "jsonl"
	}
	for i := range d.Entrypoints {
		p := &d.Entrypoints[i].Paging
		if p.Mode == "" {
			p.Mode = "page"
		}
		if p.Pages == 0 {
			p.Pages = 1
		}
		if p.Step == 0 {
			p.Step = 1
		}
	}
	if d.Discovery.Dedupe.TextPrefixLen == 0 {
		d.Discovery.Dedupe.TextPrefixLen = 200
	}
	if len(d.Discovery.Dedupe.ContentFields) == 0 {
		d.Discovery.Dedupe.ContentFields = []string{"title", "text"}
	}
	if d.Discovery.Dedupe.Store == "" {
		d.Discovery.Dedupe.Store = "memory"
	}
}
