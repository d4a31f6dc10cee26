package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/valpere/scrapping/internal/config"
)

// minReadableLength is the minimum TextContent length for a readability
// result to be trusted; below this the algorithm likely failed to locate
// the main content and the plain-text fallback takes over.
const minReadableLength = 50

// Structured is the HTML-to-structured conversion result for one page.
type Structured struct {
	Title  string
	Text   string
	Method string // explicit_selector | readability | plain_text
}

// ToStructured converts rawHTML into a title/text pair, preferring the
// descriptor's explicit selectors, falling back to Mozilla Readability,
// and finally to a flattened plain-text rendering of the whole body.
func ToStructured(pageURL, rawHTML string, cfg config.ParseConfig) (Structured, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return Structured{}, err
	}

	if cfg.TitleSelector != "" || cfg.TextSelector != "" {
		title := firstText(doc, cfg.TitleSelector)
		text := firstText(doc, cfg.TextSelector)
		if title != "" || text != "" {
			return Structured{Title: title, Text: text, Method: "explicit_selector"}, nil
		}
	}

	if parsedURL, err := url.Parse(pageURL); err == nil {
		article, rerr := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
		if rerr == nil && len(strings.TrimSpace(article.TextContent)) >= minReadableLength {
			return Structured{Title: article.Title, Text: article.TextContent, Method: "readability"}, nil
		}
	}

	return Structured{
		Title:  strings.TrimSpace(doc.Find("title").First().Text()),
		Text:   strings.TrimSpace(doc.Find("body").Text()),
		Method: "plain_text",
	}, nil
}

func firstText(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(doc.Find(selector).First().Text())
}
