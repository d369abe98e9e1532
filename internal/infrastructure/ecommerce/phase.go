package ecommerce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/backoffice/backend/internal/domain/integration"
)

// SyncFunc is one unit of work inside a phase: a named, independently
// retryable entity synchronizer.
type SyncFunc struct {
	// Name is the reported function name, e.g. "sync_products".
	Name string
	// Entity labels the target table in phase reports.
	Entity integration.EntityType
	// Run performs the sync and returns the number of records processed.
	Run func(ctx context.Context) (int, error)
}

// RunPhase executes every function of a phase concurrently and folds the
// outcomes into a PhaseResult. One function's failure never cancels its
// siblings: entity types grouped into a phase are mutually independent, so
// capturing the error and letting the rest finish maximizes forward progress
// per run. Panics are captured as errors for the same reason.
func RunPhase(ctx context.Context, logger *zap.Logger, name string, funcs []SyncFunc) integration.PhaseResult {
	logger.Info("starting sync phase", zap.String("phase", name), zap.Int("functions", len(funcs)))

	result := integration.PhaseResult{
		Phase:     name,
		StartTime: time.Now(),
		Functions: make([]integration.FunctionResult, len(funcs)),
	}

	var wg sync.WaitGroup
	for i, fn := range funcs {
		wg.Add(1)
		go func(i int, fn SyncFunc) {
			defer wg.Done()
			result.Functions[i] = runOne(ctx, fn)
		}(i, fn)
	}
	wg.Wait()

	for _, fr := range result.Functions {
		result.TotalProcessed += fr.Processed
		result.TotalErrors += fr.Errors
	}
	result.EndTime = time.Now()

	logger.Info("completed sync phase",
		zap.String("phase", name),
		zap.Int("total_processed", result.TotalProcessed),
		zap.Int("total_errors", result.TotalErrors),
	)
	return result
}

// runOne executes a single sync function, converting any failure or panic
// into a structured error entry.
func runOne(ctx context.Context, fn SyncFunc) (fr integration.FunctionResult) {
	fr = integration.FunctionResult{
		Function:   fn.Name,
		TableLabel: fn.Entity.TableLabel(),
		Status:     integration.FunctionStatusSuccess,
	}

	defer func() {
		if r := recover(); r != nil {
			fr.Status = integration.FunctionStatusError
			fr.Processed = 0
			fr.Errors = 1
			fr.ErrorDetails = []string{fmt.Sprintf("panic: %v", r)}
		}
	}()

	processed, err := fn.Run(ctx)
	if err != nil {
		fr.Status = integration.FunctionStatusError
		fr.Processed = 0
		fr.Errors = 1
		fr.ErrorDetails = []string{err.Error()}
		return fr
	}
	fr.Processed = processed
	return fr
}
