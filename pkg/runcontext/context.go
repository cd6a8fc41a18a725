package runcontext

import (
	"context"
	"time"
)

type contextKey string

var (
	keyRunID      contextKey = "run_id"
	keyGeneration contextKey = "run_generation"
	keyStage      contextKey = "run_stage"
	keyStageStart contextKey = "stage_start_time"
)

// StageMetadata holds metadata for one pipeline stage execution.
type StageMetadata struct {
	RunID      string
	Generation uint64
	Stage      string
	StartTime  time.Time
}

// StageBegin derives a context for one outbound pipeline stage: bounded by
// the stage timeout and tagged with run metadata for logging. A
// non-positive timeout leaves the stage unbounded.
func StageBegin(parent context.Context, runID string, generation uint64, stage string, timeout time.Duration) (context.Context, context.CancelFunc) {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	ctx = context.WithValue(ctx, keyRunID, runID)
	ctx = context.WithValue(ctx, keyGeneration, generation)
	ctx = context.WithValue(ctx, keyStage, stage)
	ctx = context.WithValue(ctx, keyStageStart, time.Now())
	return ctx, cancel
}

// RunID extracts the run id from a stage context.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(keyRunID).(string)
	return id
}

// Generation extracts the run generation from a stage context.
func Generation(ctx context.Context) uint64 {
	gen, _ := ctx.Value(keyGeneration).(uint64)
	return gen
}

// Stage extracts the stage label from a stage context.
func Stage(ctx context.Context) string {
	stage, _ := ctx.Value(keyStage).(string)
	return stage
}

// Elapsed reports how long the stage has been running, zero when the context
// carries no stage metadata.
func Elapsed(ctx context.Context) time.Duration {
	start, ok := ctx.Value(keyStageStart).(time.Time)
	if !ok {
		return 0
	}
	return time.Since(start)
}

// Metadata extracts all stage metadata from a context.
func Metadata(ctx context.Context) StageMetadata {
	start, _ := ctx.Value(keyStageStart).(time.Time)
	return StageMetadata{
		RunID:      RunID(ctx),
		Generation: Generation(ctx),
		Stage:      Stage(ctx),
		StartTime:  start,
	}
}
