package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/wouteroostervld/annotator/pkg/batch"
	"github.com/wouteroostervld/annotator/pkg/config"
	"github.com/wouteroostervld/annotator/pkg/filter"
	"github.com/wouteroostervld/annotator/pkg/tracking"
	"github.com/wouteroostervld/annotator/pkg/watcher"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "annotate":
		handleAnnotate()
	case "batch":
		handleBatch()
	case "watch":
		handleWatch()
	case "runs":
		handleRuns()
	case "version":
		fmt.Printf("annotator version %s\n", version)
	case "help", "-h":
		printUsage()
	default:
		fmt.Println("Unknown command:", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("annotator - Python function annotation generator")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  annotator annotate                   Annotate one function read from stdin")
	fmt.Println("  annotator batch [-dir D] [-pattern P] Annotate every sample file")
	fmt.Println("  annotator watch [-dir D] [-pattern P] Batch once, then re-annotate changed samples")
	fmt.Println("  annotator runs [-limit N]            List tracked runs")
	fmt.Println("  annotator version")
	fmt.Println()
	fmt.Println("Common flags:")
	fmt.Println("  -config PATH    Config file (default: ~/.annotator/config.yaml)")
	fmt.Println("  -debug          Enable debug logging")
	fmt.Println("  -loglevel LEVEL Set log level: debug, info, warn, error (default: info)")
}

// commonFlags are accepted by every subcommand
type commonFlags struct {
	configPath string
	debug      bool
	logLevel   string
}

func newFlagSet(name string) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	cf := &commonFlags{}
	fs.StringVar(&cf.configPath, "config", "", "Config file path")
	fs.BoolVar(&cf.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&cf.logLevel, "loglevel", "info", "Log level (debug, info, warn, error)")
	return fs, cf
}

func parseLogLevel(debug bool, level string) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogging(cf *commonFlags) {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cf.debug, cf.logLevel)}
	handler := slog.NewTextHandler(os.Stderr, opts)
	slog.SetDefault(slog.New(handler))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func handleAnnotate() {
	fs, cf := newFlagSet("annotate")
	fs.Parse(os.Args[2:])
	setupLogging(cf)

	settings, err := loadSettings(cf.configPath)
	if err != nil {
		fatal(err)
	}
	p, err := newPipeline(settings)
	if err != nil {
		fatal(err)
	}
	defer p.Close()

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Println("=== Function Comment Generator ===")
	fmt.Println("1. Paste your Python function code (empty lines allowed)")
	fmt.Println("2. Type 'END' on a new line and press Enter to finish input")
	fmt.Println()

	source, err := readFunction(os.Stdin)
	if err != nil {
		fatal(fmt.Errorf("failed to read input: %w", err))
	}

	unit := batch.SourceUnit(source)
	res := p.annotator.Annotate(ctx, unit)

	rec := batch.NewRecord("<stdin>", unit, res)
	if err := p.sink.Record(context.WithoutCancel(ctx), rec, p.annotator.Provenance()); err != nil {
		slog.Warn("Failed to record run", "error", err)
	}

	fmt.Println()
	fmt.Println("Generated comment:")
	fmt.Println(res.Message())
}

func handleBatch() {
	fs, cf := newFlagSet("batch")
	dir := fs.String("dir", "", "Samples directory (overrides config)")
	pattern := fs.String("pattern", "", "Sample file glob (overrides config)")
	fs.Parse(os.Args[2:])
	setupLogging(cf)

	settings, err := loadSettings(cf.configPath)
	if err != nil {
		fatal(err)
	}
	applyOverrides(settings, *dir, *pattern)

	p, err := newPipeline(settings)
	if err != nil {
		fatal(err)
	}
	defer p.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := runBatch(ctx, p); err != nil && !errors.Is(err, context.Canceled) {
		fatal(err)
	}
}

// runBatch discovers the samples of p and processes them once
func runBatch(ctx context.Context, p *pipeline) error {
	s := p.settings
	files, err := filter.Discover(s.SamplesDir, s.SamplePattern, p.rules)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no sample files found in %s", s.SamplesDir)
	}

	fmt.Println("============================================================")
	fmt.Println("Batch function annotation")
	fmt.Println("============================================================")
	fmt.Printf("Found %d sample files\n", len(files))

	run, summaries, err := p.orchestrator().RunBatch(ctx, files)
	for _, summary := range summaries {
		printFileSummary(p, summary)
	}
	printRunSummary(s, run)
	return err
}

func printFileSummary(p *pipeline, summary *batch.FileSummary) {
	fmt.Printf("\n[FILE] %s\n", summary.FileName)
	if summary.ExtractionError != "" {
		fmt.Printf("   [SKIPPED] %s\n", summary.ExtractionError)
		return
	}
	for _, rec := range summary.Records {
		if rec.Success {
			fmt.Printf("   [SUCCESS] %s (line %d)\n", rec.FunctionName, rec.StartLine)
		} else {
			fmt.Printf("   [FAILED]  %s (line %d): %s\n", rec.FunctionName, rec.StartLine, rec.Error)
		}
	}
	fmt.Printf("   Success: %d  Failed: %d  Completeness: %.4f  Density: %.4f  Latency: %.4fs\n",
		summary.SuccessCount, summary.ErrorCount, summary.AvgCompleteness, summary.AvgDensity, summary.AvgLatency)
	fmt.Printf("   Output: %s\n", p.writer.PathFor(summary.FileName))
}

func printRunSummary(s *config.Settings, run *batch.RunSummary) {
	fmt.Println()
	fmt.Println("============================================================")
	fmt.Println("Batch complete")
	fmt.Printf("Files:          %d\n", run.Files)
	fmt.Printf("Functions:      %d\n", run.TotalFunctions)
	fmt.Printf("Success:        %d\n", run.TotalSuccess)
	fmt.Printf("Failed:         %d\n", run.TotalErrors)
	fmt.Printf("Success rate:   %.2f%%\n", run.SuccessRate*100)
	fmt.Printf("Completeness:   %.4f\n", run.AvgCompleteness)
	fmt.Printf("Density:        %.4f\n", run.AvgDensity)
	fmt.Printf("Avg latency:    %.4fs\n", run.AvgLatency)
	fmt.Printf("Output dir:     %s\n", s.OutputDir)
	fmt.Println("============================================================")
}

func handleWatch() {
	fs, cf := newFlagSet("watch")
	dir := fs.String("dir", "", "Samples directory (overrides config)")
	pattern := fs.String("pattern", "", "Sample file glob (overrides config)")
	fs.Parse(os.Args[2:])
	setupLogging(cf)

	loader := config.NewDefaultLoader()
	configPath, err := resolveConfigPath(loader, cf.configPath)
	if err != nil {
		fatal(err)
	}
	settings, err := loader.Load(configPath)
	if err != nil {
		fatal(err)
	}
	applyOverrides(settings, *dir, *pattern)

	p, err := newPipeline(settings)
	if err != nil {
		fatal(err)
	}
	defer p.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := runBatch(ctx, p); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.Warn("Initial batch failed", "error", err)
	}

	var current atomic.Pointer[pipeline]
	current.Store(p)

	fw, err := watcher.New(&watcher.Config{
		Match: func(path string) bool {
			cur := current.Load()
			return filter.MatchesPattern(path, cur.settings.SamplePattern) && cur.rules.Allow(path)
		},
		OnChange: func(ctx context.Context, path string) {
			cur := current.Load()
			summary, err := cur.orchestrator().ProcessFile(ctx, path)
			if err != nil {
				slog.Error("Failed to process changed file", "file", path, "error", err)
				return
			}
			printFileSummary(cur, summary)
		},
	})
	if err != nil {
		fatal(err)
	}
	defer fw.Close()

	if err := fw.Watch(settings.SamplesDir); err != nil {
		fatal(err)
	}

	// The tracking store stays open across reloads; other settings apply
	// to the next change
	if _, err := os.Stat(configPath); err == nil {
		reloader, err := config.NewReloader(loader, configPath, func(next *config.Settings) {
			applyOverrides(next, *dir, *pattern)
			np, err := p.rebuild(next)
			if err != nil {
				slog.Warn("Failed to apply reloaded config", "error", err)
				return
			}
			if err := moveWatch(fw, current.Load().settings.SamplesDir, next.SamplesDir); err != nil {
				slog.Warn("Failed to apply reloaded config", "error", err)
				return
			}
			current.Store(np)
		})
		if err != nil {
			slog.Warn("Config watcher disabled", "error", err)
		} else {
			go reloader.Run(ctx)
		}
	}

	fmt.Printf("Watching %s for %s (Ctrl+C to stop)\n", filepath.Clean(settings.SamplesDir), settings.SamplePattern)
	if err := fw.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fatal(err)
	}
	fmt.Println("Stopped")
}

func handleRuns() {
	fs, cf := newFlagSet("runs")
	limit := fs.Int("limit", 20, "Number of runs to list (0 = all)")
	model := fs.String("model", "", "Only list runs of this model")
	fs.Parse(os.Args[2:])
	setupLogging(cf)

	settings, err := loadSettings(cf.configPath)
	if err != nil {
		fatal(err)
	}
	if !settings.TrackingEnabled {
		fatal(errors.New("tracking is disabled in the active profile"))
	}

	store, err := tracking.Open(tracking.Config{Path: settings.TrackingDBPath})
	if err != nil {
		fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	runs, err := store.ListRuns(ctx, tracking.ListOptions{Limit: *limit, Model: *model})
	if err != nil {
		fatal(err)
	}
	stats, err := store.RunStats(ctx)
	if err != nil {
		fatal(err)
	}

	fmt.Println("Tracked Runs")
	fmt.Println("============")
	fmt.Printf("Database:       %s\n", store.Path())
	fmt.Printf("Total:          %d\n", stats.Total)
	fmt.Printf("Success:        %d\n", stats.Success)
	fmt.Printf("Completeness:   %.4f\n", stats.AvgCompleteness)
	fmt.Printf("Density:        %.4f\n", stats.AvgDensity)
	fmt.Printf("Avg latency:    %.4fs\n", stats.AvgLatency)
	fmt.Println()

	for _, r := range runs {
		status := "ok"
		if !r.Success {
			status = "error"
		}
		fmt.Printf("%s  %-40s %-6s %-20s latency=%.4f completeness=%.4f density=%.4f\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Name, status, r.FileName,
			r.Latency, r.Completeness, r.Density)
		if r.Error != "" {
			fmt.Printf("    %s\n", r.Error)
		}
	}
}

// dirWatcher is the part of watcher.FileWatcher moveWatch needs
type dirWatcher interface {
	Watch(path string) error
	Unwatch(path string) error
}

// moveWatch switches w from the samples directory from to to. The old
// directory stays watched when the new one cannot be.
func moveWatch(w dirWatcher, from, to string) error {
	if filepath.Clean(from) == filepath.Clean(to) {
		return nil
	}
	if err := w.Watch(to); err != nil {
		return err
	}
	if err := w.Unwatch(from); err != nil {
		slog.Warn("Failed to stop watching old samples directory", "path", from, "error", err)
	}
	slog.Info("Samples directory changed", "from", from, "to", to)
	return nil
}

func applyOverrides(s *config.Settings, dir, pattern string) {
	if dir != "" {
		s.SamplesDir = dir
	}
	if pattern != "" {
		s.SamplePattern = pattern
	}
}
