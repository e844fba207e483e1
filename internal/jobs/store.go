package jobs

import "context"

// Store persists runs so history survives a restart.
type Store interface {
	LoadRuns(ctx context.Context) ([]*Run, error)
	UpsertRun(ctx context.Context, run *Run) error
	DeleteRun(ctx context.Context, runID string) error
}
