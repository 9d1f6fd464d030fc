package batch

import (
	"context"

	"github.com/wouteroostervld/annotator/pkg/extract"
	"github.com/wouteroostervld/annotator/pkg/llm"
)

// FunctionRecord is the outcome for one function unit
type FunctionRecord struct {
	FileName     string                 `json:"file_name"`
	FunctionName string                 `json:"function_name"`
	StartLine    int                    `json:"start_line"`
	Source       string                 `json:"source"`
	InputLength  int                    `json:"input_length"` // Runes in the trimmed source
	Success      bool                   `json:"success"`
	Result       *llm.AnnotationResult  `json:"result,omitempty"`
	Failure      *llm.AnnotationFailure `json:"-"`
	Error        string                 `json:"error,omitempty"`
}

// FileSummary aggregates the records of one source file
type FileSummary struct {
	FileName            string           `json:"file_name"`
	Path                string           `json:"path"`
	SuccessCount        int              `json:"success_count"`
	ErrorCount          int              `json:"error_count"`
	AvgCompleteness     float64          `json:"avg_completeness"`
	AvgDensity          float64          `json:"avg_density"`
	AvgLatency          float64          `json:"avg_latency"`
	TotalSuccessLatency float64          `json:"total_success_latency"`
	Records             []FunctionRecord `json:"records"`
	ExtractionError     string           `json:"extraction_error,omitempty"`
}

// RunSummary aggregates every file of a batch run
type RunSummary struct {
	Files           int     `json:"files"`
	TotalFunctions  int     `json:"total_functions"`
	TotalSuccess    int     `json:"total_success"`
	TotalErrors     int     `json:"total_errors"`
	AvgCompleteness float64 `json:"avg_completeness"`
	AvgDensity      float64 `json:"avg_density"`
	AvgLatency      float64 `json:"avg_latency"`
	SuccessRate     float64 `json:"success_rate"`
}

// Provenance describes the model settings a record was produced with
type Provenance struct {
	Model       string
	Temperature float64
}

// Generator produces an annotation result for a unit
type Generator interface {
	Annotate(ctx context.Context, unit extract.FunctionUnit) llm.Result
}

// Sink receives every record as it is produced.
// A sink error is logged and never changes the batch outcome.
type Sink interface {
	Record(ctx context.Context, rec FunctionRecord, prov Provenance) error
}

// Writer persists a finished file summary
type Writer interface {
	Write(ctx context.Context, summary *FileSummary) error
}

// NopSink discards records
type NopSink struct{}

func (NopSink) Record(context.Context, FunctionRecord, Provenance) error { return nil }

// Ensure interfaces are satisfied
var (
	_ Sink      = NopSink{}
	_ Generator = (*Annotator)(nil)
)
