package matrix

import (
	"context"
	"fmt"

	"github.com/vk/shipline/internal/ctxlog"
)

// Stage is one unit of work inside a cell's stage sequence.
type Stage struct {
	Name string
	Run  func(ctx context.Context, cell *Cell) error
}

// StageOutcome records the result of a single stage within a cell.
type StageOutcome struct {
	Name string
	Err  error
}

// CellResult is the outcome of running a cell's full stage sequence.
// FailedStage names the first stage that failed; stages after it were
// never attempted.
type CellResult struct {
	Cell        *Cell
	Stages      []StageOutcome
	FailedStage string
}

// Err returns the error of the failing stage, or nil if every stage succeeded.
func (r CellResult) Err() error {
	for _, s := range r.Stages {
		if s.Err != nil {
			return fmt.Errorf("cell %s: stage %s: %w", r.Cell.ID(), s.Name, s.Err)
		}
	}
	return nil
}

// Succeeded reports whether every stage of the cell completed without error.
func (r CellResult) Succeeded() bool { return r.FailedStage == "" }

// RunCell executes the stage sequence for a single cell, strictly in order.
// A failure at any stage aborts the remaining stages of this cell only;
// sibling cells are scheduled independently and keep running.
func RunCell(ctx context.Context, cell *Cell, stages []Stage) CellResult {
	logger := ctxlog.FromContext(ctx).With("cell", cell.ID())
	result := CellResult{Cell: cell}

	for _, stage := range stages {
		logger.Info("▶️ Starting cell stage", "stage", stage.Name)
		err := stage.Run(ctx, cell)
		result.Stages = append(result.Stages, StageOutcome{Name: stage.Name, Err: err})
		if err != nil {
			logger.Error("Cell stage failed, aborting remaining stages.", "stage", stage.Name, "error", err)
			result.FailedStage = stage.Name
			break
		}
		logger.Info("✅ Finished cell stage", "stage", stage.Name)
	}
	return result
}
