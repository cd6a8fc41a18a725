package runcontext

import (
	"context"
	"testing"
	"time"
)

func TestStageBeginCarriesMetadata(t *testing.T) {
	ctx, cancel := StageBegin(context.Background(), "run-1", 3, "transcribe", time.Minute)
	defer cancel()

	if RunID(ctx) != "run-1" {
		t.Errorf("run id lost, got %q", RunID(ctx))
	}
	if Generation(ctx) != 3 {
		t.Errorf("generation lost, got %d", Generation(ctx))
	}
	if Stage(ctx) != "transcribe" {
		t.Errorf("stage lost, got %q", Stage(ctx))
	}
	if _, ok := ctx.Deadline(); !ok {
		t.Errorf("expected a deadline")
	}

	meta := Metadata(ctx)
	if meta.RunID != "run-1" || meta.Stage != "transcribe" || meta.StartTime.IsZero() {
		t.Errorf("unexpected metadata %+v", meta)
	}
}

func TestStageBeginZeroTimeoutIsUnbounded(t *testing.T) {
	ctx, cancel := StageBegin(context.Background(), "run-1", 1, "sync", 0)
	defer cancel()

	if _, ok := ctx.Deadline(); ok {
		t.Errorf("zero timeout must not set a deadline")
	}
	if ctx.Err() != nil {
		t.Errorf("context must be live, got %v", ctx.Err())
	}
}

func TestMetadataOnPlainContext(t *testing.T) {
	ctx := context.Background()
	if RunID(ctx) != "" || Generation(ctx) != 0 || Stage(ctx) != "" {
		t.Errorf("plain context must read as empty metadata")
	}
	if Elapsed(ctx) != 0 {
		t.Errorf("plain context must report zero elapsed")
	}
}
