package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/valpere/scrapping/internal/config"
	"github.com/valpere/scrapping/internal/controlplane"
	"github.com/valpere/scrapping/internal/engine"
	"github.com/valpere/scrapping/internal/errkind"
	"github.com/valpere/scrapping/internal/metrics"
	"github.com/valpere/scrapping/internal/obslog"
	"github.com/valpere/scrapping/internal/pipeline"
	"github.com/valpere/scrapping/internal/resilience"
	"github.com/valpere/scrapping/internal/store"
)

func newRunCmd() *cobra.Command {
	var (
		configPath   string
		only         string
		dryRun       bool
		itemsFormat  string
		resultsDir   string
		serveAddr    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every source in a descriptor file through the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, runOpts{
				configPath:  configPath,
				only:        only,
				dryRun:      dryRun,
				itemsFormat: itemsFormat,
				resultsDir:  resultsDir,
				serveAddr:   serveAddr,
			})
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a JSON or YAML source descriptor file")
	cmd.Flags().StringVar(&only, "only", "", "run only the named source_id")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "expand and plan the run without persisting items")
	cmd.Flags().StringVar(&itemsFormat, "items-format", "", "override storage.items_format (jsonl|csv|xlsx)")
	cmd.Flags().StringVar(&resultsDir, "results", "results", "root directory for run output")
	cmd.Flags().StringVar(&serveAddr, "serve", "", "optional address to serve GET /status and GET /metrics on, e.g. :8090")
	cmd.MarkFlagRequired("config")
	return cmd
}

type runOpts struct {
	configPath  string
	only        string
	dryRun      bool
	itemsFormat string
	resultsDir  string
	serveAddr   string
}

// runRun drives every source's Orchestrator and aggregates the exit code
// spec.md §6 names: 0 if every source succeeded cleanly, 1 if at least one
// source finished with partial errors, 2 if config failed to load/validate
// or an engine could not be constructed.
func runRun(cmd *cobra.Command, opts runOpts) error {
	descs, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "parse error: %v\n", err)
		os.Exit(2)
	}

	var selected []config.Descriptor
	for _, d := range descs {
		if opts.only != "" && d.SourceID != opts.only {
			continue
		}
		res := config.Validate(&d)
		if !res.OK {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: invalid config\n", d.SourceID)
			for _, e := range res.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "  error: %s\n", e.Error())
			}
			os.Exit(2)
		}
		if opts.itemsFormat != "" {
			d.Storage.ItemsFormat = opts.itemsFormat
		}
		selected = append(selected, d)
	}
	if len(selected) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no sources selected\n")
		os.Exit(2)
	}

	runID := uuid.NewString()[:8]
	timestamp := time.Now().UTC().Format("20060102T150405Z")
	layout, err := store.NewRunLayout(opts.resultsDir, timestamp, runID)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "run layout error: %v\n", err)
		os.Exit(2)
	}

	runLog, err := os.OpenFile(layout.RunLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "run log error: %v\n", err)
		os.Exit(2)
	}
	defer runLog.Close()
	runLogger := obslog.New(runLog, obslog.InfoLevel)

	metricsReg := metrics.New(metrics.Config{})
	board := controlplane.NewStatusBoard(runID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.serveAddr != "" {
		srv := controlplane.NewServer(opts.serveAddr, board, metricsReg)
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				runLogger.Errorf("control plane server: %v", err)
			}
		}()
	}

	anyPartial := false
	anyFatal := false
	meta :=store.RunMeta{RunID: runID, StartedAt: time.Now()}

	for _, d := range selected {
		meta.Sources = append(meta.Sources, d.SourceID)
		board.Start(d.SourceID)

		report, runErr := runOneSource(ctx, d, layout, runID, runLogger, metricsReg, opts.dryRun)
		board.Finish(d.SourceID, report, runErr)

		if runErr != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: fatal: %v\n", d.SourceID, runErr)
			var kerr *errkind.Error
			if errors.As(runErr, &kerr) && kerr.Kind.Fatal() {
				anyFatal = true
			}
			anyPartial = true
			continue
		}
		if report != nil {
			if err := store.WriteRunReport(layout.RunReportPath(), report); err != nil {
				runLogger.Errorf("write run report for %s: %v", d.SourceID, err)
			}
			if report.Status != pipeline.StatusSuccess {
				anyPartial = true
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: status=%s fetched=%d persisted=%d dropped=%v errors=%d\n",
				d.SourceID, report.Status, report.ItemsFetched, report.ItemsPersisted, report.DroppedByReason, len(report.Errors))
		}
	}

	meta.FinishedAt = time.Now()
	if err := store.WriteJSON(layout.RunMetaPath(), meta); err != nil {
		runLogger.Errorf("write run meta: %v", err)
	}

	if anyFatal {
		os.Exit(2)
	}
	if anyPartial {
		os.Exit(1)
	}
	return nil
}

func runOneSource(
	ctx context.Context,
	d config.Descriptor,
	layout *store.RunLayout,
	runID string,
	runLogger *obslog.Logger,
	metricsReg *metrics.Registry,
	dryRun bool,
) (*pipeline.RunReport, error) {
	srcLayout, err := layout.SourceDir(d.SourceID)
	if err != nil {
		return nil, fmt.Errorf("source dir: %w", err)
	}
	srcLog, err := os.OpenFile(srcLayout.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("source log: %w", err)
	}
	defer srcLog.Close()
	logger := obslog.New(srcLog, obslog.InfoLevel)

	eng, err := engine.New(d, logger)
	if err != nil {
		return nil, fmt.Errorf("construct engine: %w", err)
	}
	defer eng.Close()

	dedupe, err := store.NewDedupeStore(ctx, d.Discovery.Dedupe)
	if err != nil {
		return nil, fmt.Errorf("construct dedupe store: %w", err)
	}
	defer closeDedupeStore(ctx, dedupe, logger)

	var persister pipeline.Persister = noopPersister{}
	var allItems, dropped pipeline.Persister = noopPersister{}, noopPersister{}
	var rawPages pipeline.RawPageSink
	var links pipeline.LinkSink
	if !dryRun {
		format := d.Storage.ItemsFormat
		if format == "" {
			format = "jsonl"
		}
		if format != "jsonl" && format != "csv" && format != "xlsx" {
			logger.Warnf("items format %q has no writer; items_valid is written as jsonl", format)
		}
		writer, err := store.NewItemWriter(format, srcLayout.ItemsValidPath(format))
		if err != nil {
			return nil, fmt.Errorf("construct item writer: %w", err)
		}
		defer writer.Close()
		persister = writer

		allItemsWriter, err := store.NewItemWriter("jsonl", srcLayout.ItemsAllPath())
		if err != nil {
			return nil, fmt.Errorf("construct items.jsonl writer: %w", err)
		}
		defer allItemsWriter.Close()
		allItems = allItemsWriter

		droppedWriter, err := store.NewItemWriter("jsonl", srcLayout.ItemsDroppedPath())
		if err != nil {
			return nil, fmt.Errorf("construct items_dropped.jsonl writer: %w", err)
		}
		defer droppedWriter.Close()
		dropped = droppedWriter

		rawPageWriter := store.NewRawPageWriter(srcLayout.RawPagesDir())
		defer rawPageWriter.Close()
		rawPages = rawPageWriter

		linkWriter, err := store.NewLinkWriter(srcLayout.LinksPath())
		if err != nil {
			return nil, fmt.Errorf("construct links writer: %w", err)
		}
		defer linkWriter.Close()
		links = linkWriter
	}

	o := &pipeline.Orchestrator{
		Descriptor: d,
		Engine:     eng,
		Persister:  persister,
		RC: &pipeline.RunContext{
			RunID:    runID,
			SourceID: d.SourceID,
			Log:      logger,
			Dedupe:   dedupe,
		},
		Breaker:  resilience.New(d.SourceID, resilience.DefaultConfig()),
		Metrics:  metricsReg,
		RawPages: rawPages,
		Links:    links,
		AllItems: allItems,
		Dropped:  dropped,
	}

	return o.Run(ctx)
}

// noopPersister backs --dry-run: every pipeline stage runs, but no item,
// raw page or link artifact is written; the run's logs, run_report.json and
// run_meta.json are still written.
type noopPersister struct{}

func (noopPersister) Persist(ctx context.Context, item pipeline.Item) error { return nil }

// closeDedupeStore releases a dedupe store's underlying connection, if it
// has one. pipeline.DedupeStore itself carries no Close method (the
// in-memory store needs none); the SQL/bbolt backends close synchronously,
// mongo's takes a context, so both shapes are handled here rather than
// widening the shared interface for one backend's need.
func closeDedupeStore(ctx context.Context, d pipeline.DedupeStore, logger *obslog.Logger) {
	switch c := d.(type) {
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			logger.Warnf("close dedupe store: %v", err)
		}
	case interface{ Close(context.Context) error }:
		if err := c.Close(ctx); err != nil {
			logger.Warnf("close dedupe store: %v", err)
		}
	}
}
