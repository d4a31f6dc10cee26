package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"

	"github.com/valpere/scrapping/internal/config"
)

// Links discovers detail-page links on a listing page's HTML using the
// method named by cfg (regex, css, xpath), resolving and normalizing
// every candidate against baseURL.
func Links(baseURL, html string, cfg config.LinkExtractConfig) ([]string, error) {
	switch cfg.Method {
	case "regex":
		return linksByRegex(baseURL, html, cfg.Pattern, cfg.Identifier)
	case "css":
		return linksByCSS(baseURL, html, cfg.Selector, cfg.Identifier)
	case "xpath":
		return linksByXPath(baseURL, html, cfg.Selector, cfg.Identifier)
	default:
		return nil, fmt.Errorf("extract: unknown link method %q", cfg.Method)
	}
}

func linksByRegex(baseURL, html, pattern, identifier string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("extract: compile link pattern: %w", err)
	}
	matches := re.FindAllString(html, -1)
	return normalizeAll(baseURL, matches, identifier)
}

func linksByCSS(baseURL, htmlBody, selector, identifier string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html for css link extraction: %w", err)
	}

	var hrefs []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	return normalizeAll(baseURL, hrefs, identifier)
}

func linksByXPath(baseURL, htmlBody, expr, identifier string) ([]string, error) {
	doc, err := htmlquery.Parse(strings.NewReader(htmlBody))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html for xpath link extraction: %w", err)
	}

	nodes, err := htmlquery.QueryAll(doc, expr)
	if err != nil {
		return nil, fmt.Errorf("extract: compile xpath expression %q: %w", expr, err)
	}

	var hrefs []string
	for _, n := range nodes {
		if href := htmlquery.SelectAttr(n, "href"); href != "" {
			hrefs = append(hrefs, href)
		}
	}
	return normalizeAll(baseURL, hrefs, identifier)
}

// normalizeAll resolves each href against baseURL, normalizes it, drops
// any candidate that doesn't contain identifier (when set), and
// deduplicates while preserving first-seen order.
func normalizeAll(baseURL string, hrefs []string, identifier string) ([]string, error) {
	seen := make(map[string]bool, len(hrefs))
	out := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		resolved, err := ResolveURL(baseURL, href)
		if err != nil {
			continue
		}
		if identifier != "" && !strings.Contains(resolved, identifier) {
			continue
		}
		if seen[resolved] {
			continue
		}
		seen[resolved] = true
		out = append(out, resolved)
	}
	return out, nil
}
