package tracking

import (
	"context"

	"github.com/wouteroostervld/annotator/pkg/batch"
)

// Tracker is the observability backend used by the CLI
type Tracker interface {
	batch.Sink

	ListRuns(ctx context.Context, opts ListOptions) ([]*Run, error)
	CountRuns(ctx context.Context) (int, error)
	RunStats(ctx context.Context) (*Stats, error)
	Artifacts(ctx context.Context, runID string) (map[string]string, error)
	Close() error
}

// Ensure Store implements Tracker
var _ Tracker = (*Store)(nil)
