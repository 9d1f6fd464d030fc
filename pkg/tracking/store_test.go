package tracking

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wouteroostervld/annotator/pkg/batch"
	"github.com/wouteroostervld/annotator/pkg/llm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "tracking", "runs.db")})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func successRecord(name string) batch.FunctionRecord {
	return batch.FunctionRecord{
		FileName:     "function_sample1.py",
		FunctionName: name,
		Source:       "def " + name + "():\n    pass",
		InputLength:  14,
		Success:      true,
		Result: &llm.AnnotationResult{
			Text:           "\"\"\"\nOutput: nothing\n\"\"\"",
			Content:        "Output: nothing",
			LatencySeconds: 0.5,
			OutputLength:   15,
			Completeness:   1.0 / 3,
			Density:        1.2,
		},
	}
}

func TestOpen_NewDatabase(t *testing.T) {
	s := openTestStore(t)

	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatalf("Failed to stat database file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected permissions 0600, got %o", info.Mode().Perm())
	}

	if err := s.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil || !strings.Contains(err.Error(), "cannot be empty") {
		t.Errorf("Expected empty path error, got %v", err)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	if err := s.Record(context.Background(), successRecord("a"), batch.Provenance{Model: "glm-4"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	s.Close()

	s, err = Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer s.Close()

	n, err := s.CountRuns(context.Background())
	if err != nil {
		t.Fatalf("CountRuns failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 run after reopen, got %d", n)
	}
}

func TestRecord_Success(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, successRecord("add"), batch.Provenance{Model: "glm-4", Temperature: 0.3}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	runs, err := s.ListRuns(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(runs))
	}

	r := runs[0]
	if r.Name != "glm-4_add" {
		t.Errorf("Name = %q, want glm-4_add", r.Name)
	}
	if !r.Success || r.OutputLength != 15 || r.Latency != 0.5 || r.Temperature != 0.3 {
		t.Errorf("Unexpected run values: %+v", r)
	}
	if len(r.ID) != 36 {
		t.Errorf("Expected uuid id, got %q", r.ID)
	}

	arts, err := s.Artifacts(ctx, r.ID)
	if err != nil {
		t.Fatalf("Artifacts failed: %v", err)
	}
	if arts[ArtifactAnnotation] != "\"\"\"\nOutput: nothing\n\"\"\"" {
		t.Errorf("annotation artifact = %q", arts[ArtifactAnnotation])
	}
	if arts[ArtifactInput] != "def add():\n    pass" {
		t.Errorf("input artifact = %q", arts[ArtifactInput])
	}
}

func TestRecord_Failure(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := batch.FunctionRecord{
		FileName:     "f.py",
		FunctionName: "slow",
		Source:       "def slow(): pass",
		InputLength:  16,
		Error:        llm.MsgConnection,
	}
	if err := s.Record(ctx, rec, batch.Provenance{Model: "qwen-turbo"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	runs, _ := s.ListRuns(ctx, ListOptions{})
	if len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(runs))
	}
	r := runs[0]
	if r.Name != "qwen-turbo_slow_error" {
		t.Errorf("Name = %q, want qwen-turbo_slow_error", r.Name)
	}
	if r.Success || r.Error != llm.MsgConnection || r.InputLength != 16 {
		t.Errorf("Unexpected run values: %+v", r)
	}

	arts, _ := s.Artifacts(ctx, r.ID)
	if _, ok := arts[ArtifactAnnotation]; ok {
		t.Error("Failed run should not store an annotation artifact")
	}
}

func TestListRuns_OrderAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for _, name := range []string{"first", "second", "third"} {
		model := "glm-4"
		if name == "second" {
			model = "gpt-4o"
		}
		if err := s.Record(ctx, successRecord(name), batch.Provenance{Model: model}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	runs, err := s.ListRuns(ctx, ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].FunctionName != "third" || runs[1].FunctionName != "second" {
		t.Errorf("Unexpected order: %v", names(runs))
	}
	if !runs[0].CreatedAt.Equal(base.Add(3 * time.Second)) {
		t.Errorf("CreatedAt = %v", runs[0].CreatedAt)
	}

	runs, _ = s.ListRuns(ctx, ListOptions{Model: "glm-4"})
	if len(runs) != 2 {
		t.Errorf("Expected 2 glm-4 runs, got %v", names(runs))
	}
}

func TestRunStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	st, err := s.RunStats(ctx)
	if err != nil {
		t.Fatalf("RunStats on empty store failed: %v", err)
	}
	if st.Total != 0 || st.AvgLatency != 0 {
		t.Errorf("Expected zero stats, got %+v", st)
	}

	a := successRecord("a")
	b := successRecord("b")
	b.Result.LatencySeconds = 1.5
	b.Result.Completeness = 1
	fail := batch.FunctionRecord{FunctionName: "c", Error: llm.MsgResponseParse}
	for _, rec := range []batch.FunctionRecord{a, b, fail} {
		if err := s.Record(ctx, rec, batch.Provenance{Model: "m"}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	st, err = s.RunStats(ctx)
	if err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if st.Total != 3 || st.Success != 2 {
		t.Errorf("Expected 3 total / 2 success, got %+v", st)
	}
	if st.AvgLatency != 1.0 {
		t.Errorf("AvgLatency = %v, want 1.0", st.AvgLatency)
	}
	if d := st.AvgCompleteness - 2.0/3; d > 1e-9 || d < -1e-9 {
		t.Errorf("AvgCompleteness = %v, want 2/3", st.AvgCompleteness)
	}
}

func TestStore_AsBatchSink(t *testing.T) {
	s := openTestStore(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "s.py")
	if err := os.WriteFile(path, []byte("def a():\n    pass\n\n\ndef b():\n    pass\n"), 0644); err != nil {
		t.Fatal(err)
	}

	gen := fakeGenerator{}
	orch := batch.New(gen, &batch.Options{Sink: s, Provenance: batch.Provenance{Model: "glm-4"}, Concurrency: 2})
	run, _, err := orch.RunBatch(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}

	n, _ := s.CountRuns(context.Background())
	if n != run.TotalFunctions {
		t.Errorf("Tracked %d runs, want %d", n, run.TotalFunctions)
	}
}

func names(runs []*Run) []string {
	var out []string
	for _, r := range runs {
		out = append(out, r.FunctionName)
	}
	return out
}
