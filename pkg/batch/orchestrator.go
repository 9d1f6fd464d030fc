// Package batch drives the annotation pipeline over sample files and
// aggregates per-file and per-run statistics.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/wouteroostervld/annotator/pkg/extract"
	"github.com/wouteroostervld/annotator/pkg/llm"
)

// Options configures an Orchestrator
type Options struct {
	Sink        Sink       // Receives every record, NopSink when nil
	Writer      Writer     // Optional, called once per fully processed file
	Provenance  Provenance // Attached to every record sent to the sink
	Concurrency int        // Units processed in parallel per file (default 1)
}

// Orchestrator runs extract -> build -> send -> evaluate for every unit
type Orchestrator struct {
	gen         Generator
	sink        Sink
	writer      Writer
	prov        Provenance
	concurrency int
}

// New creates an orchestrator around gen
func New(gen Generator, opts *Options) *Orchestrator {
	if opts == nil {
		opts = &Options{}
	}
	o := &Orchestrator{
		gen:         gen,
		sink:        opts.Sink,
		writer:      opts.Writer,
		prov:        opts.Provenance,
		concurrency: opts.Concurrency,
	}
	if o.sink == nil {
		o.sink = NopSink{}
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	return o
}

// RunBatch processes files in order and aggregates the run.
// Per-unit and per-file failures are recorded, never returned. On
// cancellation the summaries completed so far are returned with ctx.Err().
// A Writer error aborts the run.
func (o *Orchestrator) RunBatch(ctx context.Context, files []string) (*RunSummary, []*FileSummary, error) {
	var summaries []*FileSummary
	for i, path := range files {
		if ctx.Err() != nil {
			break
		}
		slog.Info("Processing file", "file", path, "index", i+1, "total", len(files))

		summary, err := o.ProcessFile(ctx, path)
		summaries = append(summaries, summary)
		if err != nil {
			return Aggregate(summaries), summaries, err
		}
	}

	run := Aggregate(summaries)
	slog.Info("Batch complete", "files", run.Files, "functions", run.TotalFunctions, "success", run.TotalSuccess, "errors", run.TotalErrors)
	return run, summaries, ctx.Err()
}

// ProcessFile extracts and annotates every unit of one file.
// A malformed file gets a summary with ExtractionError set and no records.
// The returned error is only ever a Writer failure.
func (o *Orchestrator) ProcessFile(ctx context.Context, path string) (*FileSummary, error) {
	name := filepath.Base(path)

	seq, err := extract.ExtractFile(ctx, path)
	if err != nil {
		slog.Warn("Skipping file", "file", path, "error", err)
		summary := Summarize(name, nil)
		summary.Path = path
		summary.ExtractionError = err.Error()
		return summary, nil
	}

	units := extract.Collect(seq)
	slog.Debug("Extracted functions", "file", path, "count", len(units))

	records := o.processUnits(ctx, name, units)
	summary := Summarize(name, records)
	summary.Path = path

	if ctx.Err() != nil {
		slog.Warn("File interrupted", "file", path, "completed", len(records), "total", len(units))
		return summary, nil
	}

	if o.writer != nil {
		if err := o.writer.Write(ctx, summary); err != nil {
			return summary, fmt.Errorf("failed to write output for %s: %w", name, err)
		}
	}
	return summary, nil
}

// processUnits returns one record per completed unit, in file order
func (o *Orchestrator) processUnits(ctx context.Context, fileName string, units []extract.FunctionUnit) []FunctionRecord {
	slots := make([]*FunctionRecord, len(units))

	if o.concurrency == 1 {
		for i, unit := range units {
			if ctx.Err() != nil {
				break
			}
			slots[i] = o.processUnit(ctx, fileName, unit)
		}
	} else {
		g := new(errgroup.Group)
		g.SetLimit(o.concurrency)
		for i, unit := range units {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				slots[i] = o.processUnit(ctx, fileName, unit)
				return nil
			})
		}
		_ = g.Wait()
	}

	records := make([]FunctionRecord, 0, len(units))
	for _, rec := range slots {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records
}

// processUnit returns nil when the unit was interrupted by cancellation
func (o *Orchestrator) processUnit(ctx context.Context, fileName string, unit extract.FunctionUnit) *FunctionRecord {
	if ctx.Err() != nil {
		return nil
	}

	res := o.gen.Annotate(ctx, unit)
	if !res.OK() && ctx.Err() != nil {
		return nil
	}

	rec := NewRecord(fileName, unit, res)
	if rec.Success {
		slog.Info("Annotated function", "file", fileName, "function", unit.Name, "line", unit.StartLine, "latency", rec.Result.LatencySeconds)
	} else {
		slog.Warn("Function failed", "file", fileName, "function", unit.Name, "line", unit.StartLine, "error", rec.Failure.Detail())
	}

	if err := o.sink.Record(context.WithoutCancel(ctx), rec, o.prov); err != nil {
		slog.Error("Failed to record run", "function", unit.Name, "error", err)
	}
	return &rec
}

// NewRecord converts the result for unit into a record
func NewRecord(fileName string, unit extract.FunctionUnit, res llm.Result) FunctionRecord {
	rec := FunctionRecord{
		FileName:     fileName,
		FunctionName: unit.Name,
		StartLine:    unit.StartLine,
		Source:       unit.Source,
		InputLength:  utf8.RuneCountInString(strings.TrimSpace(unit.Source)),
		Success:      res.OK(),
	}
	if res.OK() {
		rec.Result = res.Annotation
	} else {
		rec.Failure = res.Failure
		rec.Error = res.Message()
	}
	return rec
}
