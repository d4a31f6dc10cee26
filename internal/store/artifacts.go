package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/valpere/scrapping/internal/pipeline"
)

// RawPageWriter appends pipeline.RawPageRecord entries to
// raw_pages/<kind>/pages.jsonl beneath one source's raw_pages directory,
// opening each kind's file lazily on its first write so a source that
// never renders a browser page (say) doesn't leave an empty detail file
// behind unless it actually fetches one.
type RawPageWriter struct {
	dir   string
	files map[string]*os.File
	encs  map[string]*json.Encoder
}

// NewRawPageWriter builds a RawPageWriter rooted at a source's raw_pages
// directory (SourceLayout.RawPagesDir()).
func NewRawPageWriter(dir string) *RawPageWriter {
	return &RawPageWriter{dir: dir, files: make(map[string]*os.File), encs: make(map[string]*json.Encoder)}
}

// PersistRawPage satisfies pipeline.RawPageSink.
func (w *RawPageWriter) PersistRawPage(_ context.Context, kind string, rec pipeline.RawPageRecord) error {
	enc, err := w.encoderFor(kind)
	if err != nil {
		return err
	}
	return enc.Encode(rec)
}

func (w *RawPageWriter) encoderFor(kind string) (*json.Encoder, error) {
	if enc, ok := w.encs[kind]; ok {
		return enc, nil
	}
	subdir := filepath.Join(w.dir, kind)
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create raw_pages/%s: %w", kind, err)
	}
	f, err := os.OpenFile(filepath.Join(subdir, "pages.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: open raw_pages/%s: %w", kind, err)
	}
	enc := json.NewEncoder(f)
	w.files[kind] = f
	w.encs[kind] = enc
	return enc, nil
}

// Close closes every kind's file that was actually opened.
func (w *RawPageWriter) Close() error {
	var firstErr error
	for _, f := range w.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LinkWriter appends pipeline.ExtractedLinkRecord entries to
// links/extracted_links.jsonl.
type LinkWriter struct {
	f   *os.File
	enc *json.Encoder
}

// NewLinkWriter opens path (SourceLayout.LinksPath()) for append.
func NewLinkWriter(path string) (*LinkWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: open links file: %w", err)
	}
	return &LinkWriter{f: f, enc: json.NewEncoder(f)}, nil
}

// PersistLink satisfies pipeline.LinkSink.
func (w *LinkWriter) PersistLink(_ context.Context, rec pipeline.ExtractedLinkRecord) error {
	return w.enc.Encode(rec)
}

func (w *LinkWriter) Close() error { return w.f.Close() }
