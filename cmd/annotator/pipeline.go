package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/wouteroostervld/annotator/pkg/batch"
	"github.com/wouteroostervld/annotator/pkg/config"
	"github.com/wouteroostervld/annotator/pkg/filter"
	"github.com/wouteroostervld/annotator/pkg/llm"
	"github.com/wouteroostervld/annotator/pkg/output"
	"github.com/wouteroostervld/annotator/pkg/prompt"
	"github.com/wouteroostervld/annotator/pkg/tracking"
)

// endMarker terminates interactive input
const endMarker = "END"

// pipeline is everything built from one set of settings
type pipeline struct {
	settings  *config.Settings
	templates *prompt.TemplateCache
	annotator *batch.Annotator
	rules     *filter.Rules
	writer    *output.Writer
	sink      batch.Sink
	store     *tracking.Store // nil when tracking is disabled or shared
	orch      *batch.Orchestrator
}

func resolveConfigPath(loader *config.Loader, path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return loader.DefaultPath()
}

func loadSettings(path string) (*config.Settings, error) {
	loader := config.NewDefaultLoader()
	path, err := resolveConfigPath(loader, path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	settings, err := loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if settings.ConfigPath == "" {
		slog.Debug("Config not found, using defaults and environment", "path", path)
	} else {
		slog.Debug("Config loaded", "path", settings.ConfigPath, "profile", settings.ProfileName)
	}
	return settings, nil
}

// newPipeline wires the annotator, sink and writer for s
func newPipeline(s *config.Settings) (*pipeline, error) {
	p := &pipeline{
		templates: prompt.NewTemplateCache(&config.RealFileSystem{}),
		sink:      batch.NopSink{},
	}

	if s.TrackingEnabled {
		store, err := tracking.Open(tracking.Config{Path: s.TrackingDBPath})
		if err != nil {
			return nil, fmt.Errorf("failed to open tracking database: %w", err)
		}
		p.store = store
		p.sink = store
		slog.Debug("Tracking enabled", "db", store.Path())
	}

	if err := p.apply(s); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// rebuild returns a pipeline for s that shares the sink and template
// cache of p
func (p *pipeline) rebuild(s *config.Settings) (*pipeline, error) {
	p.templates.Invalidate(s.TemplatePath)
	np := &pipeline{
		templates: p.templates,
		sink:      p.sink,
	}
	if err := np.apply(s); err != nil {
		return nil, err
	}
	return np, nil
}

func (p *pipeline) apply(s *config.Settings) error {
	tmpl, err := p.templates.Get(s.TemplatePath)
	if err != nil {
		return fmt.Errorf("failed to load prompt template: %w", err)
	}

	rules, err := filter.Compile(s.Blacklist, s.Whitelist)
	if err != nil {
		return err
	}
	// Annotated outputs may share the samples directory
	rules.ExcludeSuffix(output.Suffix)

	writer, err := output.New(s.OutputDir)
	if err != nil {
		return err
	}

	clientCfg := &llm.Config{}
	if s.RateLimit > 0 {
		clientCfg.Limiter = rate.NewLimiter(rate.Limit(s.RateLimit), s.RateBurst)
	}
	annotator := batch.NewAnnotator(tmpl, s.Model, llm.NewClient(clientCfg))

	p.settings = s
	p.annotator = annotator
	p.rules = rules
	p.writer = writer
	p.orch = batch.New(annotator, &batch.Options{
		Sink:        p.sink,
		Writer:      writer,
		Provenance:  annotator.Provenance(),
		Concurrency: s.Concurrency,
	})
	return nil
}

func (p *pipeline) orchestrator() *batch.Orchestrator {
	return p.orch
}

// Close releases the tracking store owned by p
func (p *pipeline) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}

// readFunction reads lines from r until a line reading END (any case,
// surrounding blanks ignored) or EOF, and joins them with newlines.
func readFunction(r io.Reader) (string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.EqualFold(strings.TrimSpace(line), endMarker) {
			break
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}
