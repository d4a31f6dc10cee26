package engine

import (
	"testing"

	"github.com/valpere/scrapping/internal/config"
)

func TestHybridEngineExtractedTextLenMeasuresParsedText(t *testing.T) {
	e := &HybridEngine{parse: config.ParseConfig{}}
	resp := &FetchResponse{FinalURL: "https://fix.test/jobs/1", Body: `<html><body><p>hello world, this is the real content of the page</p></body></html>`}
	if got := e.extractedTextLen(resp); got == 0 {
		t.Error("expected non-zero extracted text length")
	}
}

func TestHybridEngineExtractedTextLenZeroOnNilResponse(t *testing.T) {
	e := &HybridEngine{}
	if got := e.extractedTextLen(nil); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}
