package usecase

import (
	"context"

	"go.uber.org/zap"
)

type compensationStep struct {
	name string
	undo func(ctx context.Context) error
}

// Compensations is an ordered list of undo actions. Callers register one as
// each remote side effect succeeds; on a later failure in the same operation
// Run executes them in reverse. An undo that fails is logged and skipped;
// the webhook reconciler is the backstop for whatever it left behind.
type Compensations struct {
	steps []compensationStep
}

// Add registers an undo action for a side effect that just succeeded.
func (c *Compensations) Add(name string, undo func(ctx context.Context) error) {
	c.steps = append(c.steps, compensationStep{name: name, undo: undo})
}

// Run executes registered undos in reverse order. Errors are logged, never
// escalated.
func (c *Compensations) Run(ctx context.Context, logger *zap.Logger) {
	for i := len(c.steps) - 1; i >= 0; i-- {
		step := c.steps[i]
		if err := step.undo(ctx); err != nil {
			logger.Error("compensation failed",
				zap.String("step", step.name),
				zap.Error(err))
		} else {
			logger.Info("compensation applied", zap.String("step", step.name))
		}
	}
	c.steps = nil
}
