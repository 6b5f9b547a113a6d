// Package store persists run history locally and publishes consolidated
// cases to Postgres for the downstream search service.
package store

import (
	"context"

	"github.com/meridian-legal/casebook-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	State  model.RunState `json:"state,omitempty"`
	Limit  int            `json:"limit,omitempty"`
	Offset int            `json:"offset,omitempty"`
}

// Store records pipeline runs and their per-unit errors. The pipeline
// itself never depends on it: a store that fails to open degrades to a
// logged warning and the run proceeds without history.
type Store interface {
	CreateRun(ctx context.Context, source string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	RecordUnitErrors(ctx context.Context, runID string, errs []model.UnitError) error
	ListUnitErrors(ctx context.Context, runID string) ([]model.UnitError, error)

	Migrate(ctx context.Context) error
	Close() error
}
