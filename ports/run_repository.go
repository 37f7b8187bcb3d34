package ports

import (
	"context"

	"pdlens/domain/core"
	"pdlens/domain/run"
)

// RunRepository persists finished interpretation runs.
type RunRepository interface {
	SaveRun(ctx context.Context, rec *run.Record) error
	GetRun(ctx context.Context, id core.RunID) (*run.Record, error)
	ListRuns(ctx context.Context, limit int) ([]*run.Record, error)
}
