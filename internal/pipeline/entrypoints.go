package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/valpere/scrapping/internal/config"
)

// ExpandEntrypoints turns one descriptor entrypoint's URL template and
// paging policy into the concrete sequence of listing-page URLs to fetch.
func ExpandEntrypoints(entrypoints []config.Entrypoint) []string {
	var urls []string
	for _, ep := range entrypoints {
		urls = append(urls, expandOne(ep)...)
	}
	return urls
}

func expandOne(ep config.Entrypoint) []string {
	p := ep.Paging
	pages := p.Pages
	if pages <= 0 {
		pages = 1
	}
	step := p.Step
	if step <= 0 {
		step = 1
	}

	var out []string
	for i := 0; i < pages; i++ {
		var val int
		switch p.Mode {
		case "offset":
			val = p.Start + i*step
		default: // "page"
			val = p.Start + i*step
			if p.Start == 0 && i == 0 && !strings.Contains(ep.URL, "{page}") {
				val = 1
			}
		}
		out = append(out, substitute(ep.URL, p.Mode, val))
	}
	return out
}

func substitute(template, mode string, val int) string {
	placeholder := "{page}"
	if mode == "offset" {
		placeholder = "{offset}"
	}
	if strings.Contains(template, placeholder) {
		return strings.ReplaceAll(template, placeholder, strconv.Itoa(val))
	}
	if strings.Contains(template, "{page}") {
		return strings.ReplaceAll(template, "{page}", strconv.Itoa(val))
	}
	if strings.Contains(template, "{offset}") {
		return strings.ReplaceAll(template, "{offset}", strconv.Itoa(val))
	}
	return template
}

// ContentHash computes the dedupe fingerprint for an item's structured
// content, hashing either the named content_fields or a prefix of the
// extracted text, per the descriptor's discovery.dedupe config.
func ContentHash(title, text string, fields map[string]interface{}, cfg config.DedupeConfig) string {
	var b strings.Builder
	if len(cfg.ContentFields) > 0 {
		for _, f := range cfg.ContentFields {
			switch f {
			case "title":
				b.WriteString(title)
			case "text":
				b.WriteString(text)
			default:
				if v, ok := fields[f]; ok {
					fmt.Fprintf(&b, "%v", v)
				}
			}
			b.WriteByte('\x1f')
		}
	} else {
		prefixLen := cfg.TextPrefixLen
		if prefixLen <= 0 {
			prefixLen = 500
		}
		b.WriteString(title)
		b.WriteByte('\x1f')
		if len(text) > prefixLen {
			b.WriteString(text[:prefixLen])
		} else {
			b.WriteString(text)
		}
	}
	return sha256Hex(b.String())
}
