package batch

import (
	"github.com/wouteroostervld/annotator/pkg/llm"
)

// Summarize aggregates the records of one file.
// Averages are over successful records only and are 0 when there are none.
func Summarize(fileName string, records []FunctionRecord) *FileSummary {
	s := &FileSummary{
		FileName: fileName,
		Records:  records,
	}

	var completeness, density float64
	for _, rec := range records {
		if !rec.Success || rec.Result == nil {
			s.ErrorCount++
			continue
		}
		s.SuccessCount++
		completeness += rec.Result.Completeness
		density += rec.Result.Density
		s.TotalSuccessLatency += rec.Result.LatencySeconds
	}

	if s.SuccessCount > 0 {
		n := float64(s.SuccessCount)
		s.AvgCompleteness = completeness / n
		s.AvgDensity = density / n
		s.AvgLatency = s.TotalSuccessLatency / n
	}
	return s
}

// Aggregate combines file summaries into run totals.
// Completeness and density are weighted by each file's success count.
func Aggregate(files []*FileSummary) *RunSummary {
	run := &RunSummary{Files: len(files)}

	var completeness, density, latency float64
	for _, f := range files {
		run.TotalSuccess += f.SuccessCount
		run.TotalErrors += f.ErrorCount
		w := float64(f.SuccessCount)
		completeness += f.AvgCompleteness * w
		density += f.AvgDensity * w
		latency += f.TotalSuccessLatency
	}
	run.TotalFunctions = run.TotalSuccess + run.TotalErrors

	if run.TotalSuccess > 0 {
		n := float64(run.TotalSuccess)
		run.AvgCompleteness = completeness / n
		run.AvgDensity = density / n
		run.AvgLatency = llm.RoundTo(latency/n, 4)
	}
	if run.TotalFunctions > 0 {
		run.SuccessRate = float64(run.TotalSuccess) / float64(run.TotalFunctions)
	}
	return run
}
