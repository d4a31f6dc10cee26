package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/valpere/scrapping/internal/pipeline"
)

// ItemWriter persists items in one on-disk format, satisfying
// pipeline.Persister so the orchestrator never depends on this package
// directly - only on the interface it defines.
type ItemWriter interface {
	pipeline.Persister
	Close() error
}

// NewItemWriter builds the writer named by format ("jsonl", "csv" or
// "xlsx"). Any other format, "parquet" included, falls back to jsonl with a
// warning logged by the caller, since no pack example wires a pure-Go
// parquet writer.
func NewItemWriter(format, path string) (ItemWriter, error) {
	switch format {
	case "", "jsonl":
		return newJSONLWriter(path)
	case "csv":
		return newCSVWriter(path)
	case "xlsx":
		return newXLSXWriter(path)
	default:
		return newJSONLWriter(path)
	}
}

// jsonlWriter appends one JSON object per line, streaming-friendly and the
// default item format.
type jsonlWriter struct {
	f   *os.File
	enc *json.Encoder
}

func newJSONLWriter(path string) (*jsonlWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: open jsonl file: %w", err)
	}
	return &jsonlWriter{f: f, enc: json.NewEncoder(f)}, nil
}

func (w *jsonlWriter) Persist(_ context.Context, item pipeline.Item) error {
	return w.enc.Encode(item)
}

func (w *jsonlWriter) Close() error { return w.f.Close() }

// csvWriter writes items with a header row inferred from the first item's
// fixed columns plus its dynamic Fields keys, sorted for determinism.
type csvWriter struct {
	f       *os.File
	w       *csv.Writer
	header  []string
	started bool
}

func newCSVWriter(path string) (*csvWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: open csv file: %w", err)
	}
	return &csvWriter{f: f, w: csv.NewWriter(f)}, nil
}

func (w *csvWriter) Persist(_ context.Context, item pipeline.Item) error {
	if !w.started {
		w.header = []string{"source_id", "url", "title", "text", "content_hash", "fetched_at"}
		keys := make([]string, 0, len(item.Fields))
		for k := range item.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		w.header = append(w.header, keys...)
		if err := w.w.Write(w.header); err != nil {
			return err
		}
		w.started = true
	}

	row := []string{item.SourceID, item.URL, item.Title, item.Text, item.ContentHash, item.FetchedAt.Format("2006-01-02T15:04:05Z07:00")}
	for _, k := range w.header[6:] {
		row = append(row, fmt.Sprintf("%v", item.Fields[k]))
	}
	if err := w.w.Write(row); err != nil {
		return err
	}
	w.w.Flush()
	return w.w.Error()
}

func (w *csvWriter) Close() error {
	w.w.Flush()
	return w.f.Close()
}

// xlsxWriter accumulates items in memory and writes one worksheet on
// Close, since excelize builds the whole workbook in memory rather than
// streaming rows to disk incrementally.
type xlsxWriter struct {
	path  string
	f     *excelize.File
	sheet string
	row   int
}

func newXLSXWriter(path string) (*xlsxWriter, error) {
	f := excelize.NewFile()
	sheet := "Items"
	f.SetSheetName(f.GetSheetList()[0], sheet)
	_ = f.SetCellValue(sheet, "A1", "source_id")
	_ = f.SetCellValue(sheet, "B1", "url")
	_ = f.SetCellValue(sheet, "C1", "title")
	_ = f.SetCellValue(sheet, "D1", "text")
	_ = f.SetCellValue(sheet, "E1", "content_hash")
	_ = f.SetCellValue(sheet, "F1", "fetched_at")
	return &xlsxWriter{path: path, f: f, sheet: sheet, row: 1}, nil
}

func (w *xlsxWriter) Persist(_ context.Context, item pipeline.Item) error {
	w.row++
	r := w.row
	_ = w.f.SetCellValue(w.sheet, fmt.Sprintf("A%d", r), item.SourceID)
	_ = w.f.SetCellValue(w.sheet, fmt.Sprintf("B%d", r), item.URL)
	_ = w.f.SetCellValue(w.sheet, fmt.Sprintf("C%d", r), item.Title)
	_ = w.f.SetCellValue(w.sheet, fmt.Sprintf("D%d", r), item.Text)
	_ = w.f.SetCellValue(w.sheet, fmt.Sprintf("E%d", r), item.ContentHash)
	_ = w.f.SetCellValue(w.sheet, fmt.Sprintf("F%d", r), item.FetchedAt.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}

func (w *xlsxWriter) Close() error {
	return w.f.SaveAs(w.path)
}
