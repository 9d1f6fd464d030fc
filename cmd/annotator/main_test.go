package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wouteroostervld/annotator/pkg/config"
	"github.com/wouteroostervld/annotator/pkg/filter"
	"github.com/wouteroostervld/annotator/pkg/llm"
	"github.com/wouteroostervld/annotator/pkg/watcher"
)

func TestReadFunction(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "stops at END", input: "def f():\n    return 1\nEND\nignored\n", want: "def f():\n    return 1"},
		{name: "marker is case-insensitive and trimmed", input: "def f():\n\n    pass\n  end  \n", want: "def f():\n\n    pass"},
		{name: "EOF without marker", input: "def f(): pass", want: "def f(): pass"},
		{name: "END inside a line is kept", input: "def f():\n    return 'END'\nEND\n", want: "def f():\n    return 'END'"},
		{name: "empty", input: "END\n", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readFunction(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel(true, "error"))
	assert.Equal(t, slog.LevelDebug, parseLogLevel(false, "debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel(false, "warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel(false, "error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel(false, "bogus"))
}

func TestApplyOverrides(t *testing.T) {
	s := &config.Settings{SamplesDir: "feedings", SamplePattern: "function_sample*.py"}
	applyOverrides(s, "", "")
	assert.Equal(t, "feedings", s.SamplesDir)

	applyOverrides(s, "other", "*.py")
	assert.Equal(t, "other", s.SamplesDir)
	assert.Equal(t, "*.py", s.SamplePattern)
}

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	dir := t.TempDir()
	return &config.Settings{
		Model:          llm.ModelConfig{APIURL: "http://127.0.0.1:1", ModelName: "glm-4", Temperature: 0.3},
		SamplesDir:     dir,
		SamplePattern:  "function_sample*.py",
		OutputDir:      filepath.Join(dir, "outputs"),
		TrackingDBPath: filepath.Join(dir, "runs.db"),
		Concurrency:    1,
	}
}

func TestNewPipeline(t *testing.T) {
	s := testSettings(t)
	s.TrackingEnabled = true

	p, err := newPipeline(s)
	require.NoError(t, err)
	defer p.Close()

	require.NotNil(t, p.store)
	assert.Same(t, p.store, p.sink)
	assert.DirExists(t, s.OutputDir)
	assert.Equal(t, "glm-4", p.annotator.Provenance().Model)
	assert.Equal(t, filepath.Join(s.OutputDir, "function_sample1_annotated.py"), p.writer.PathFor("function_sample1.py"))
}

func TestNewPipeline_BadTemplate(t *testing.T) {
	s := testSettings(t)
	s.TemplatePath = filepath.Join(s.SamplesDir, "prompt.txt")
	require.NoError(t, os.WriteFile(s.TemplatePath, []byte("no placeholder here"), 0o644))

	_, err := newPipeline(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt template")
}

func TestPipelineRebuild(t *testing.T) {
	s := testSettings(t)
	s.TemplatePath = filepath.Join(s.SamplesDir, "prompt.txt")
	require.NoError(t, os.WriteFile(s.TemplatePath, []byte("v1 {function_code}"), 0o644))

	p, err := newPipeline(s)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, os.WriteFile(s.TemplatePath, []byte("v2 {function_code}"), 0o644))
	next := *s
	next.Model.ModelName = "qwen-turbo"

	np, err := p.rebuild(&next)
	require.NoError(t, err)
	assert.Nil(t, np.store)
	assert.Equal(t, "qwen-turbo", np.annotator.Provenance().Model)

	tmpl, err := np.templates.Get(s.TemplatePath)
	require.NoError(t, err)
	assert.Equal(t, "v2 {function_code}", tmpl)
}

func TestMoveWatch(t *testing.T) {
	oldDir, newDir := t.TempDir(), t.TempDir()

	fw, err := watcher.New(nil)
	require.NoError(t, err)
	defer fw.Close()
	require.NoError(t, fw.Watch(oldDir))

	require.NoError(t, moveWatch(fw, oldDir, oldDir+string(filepath.Separator)))
	assert.Equal(t, []string{oldDir}, fw.Watched())

	require.NoError(t, moveWatch(fw, oldDir, newDir))
	assert.Equal(t, []string{newDir}, fw.Watched())

	// A directory that cannot be watched leaves the current one in place
	err = moveWatch(fw, newDir, filepath.Join(newDir, "missing"))
	require.Error(t, err)
	assert.Equal(t, []string{newDir}, fw.Watched())
}

func TestPipelineRules_SkipOutputsInSamplesDir(t *testing.T) {
	s := testSettings(t)
	s.OutputDir = s.SamplesDir

	p, err := newPipeline(s)
	require.NoError(t, err)
	defer p.Close()

	sample := filepath.Join(s.SamplesDir, "function_sample1.py")
	require.NoError(t, os.WriteFile(sample, []byte("def f(): pass\n"), 0o644))
	require.NoError(t, os.WriteFile(p.writer.PathFor("function_sample1.py"), []byte("def f(): pass\n"), 0o644))

	files, err := filter.Discover(s.SamplesDir, s.SamplePattern, p.rules)
	require.NoError(t, err)
	assert.Equal(t, []string{sample}, files)
}
