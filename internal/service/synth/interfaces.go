package synth

import (
	"context"
	"time"
)

// Recorder receives per-stage generation measurements
type Recorder interface {
	RecordStage(ctx context.Context, stage string, rows int, elapsed time.Duration)
	RecordViolations(ctx context.Context, n int)
	RecordDNCSize(ctx context.Context, n int)
}

type nopRecorder struct{}

func (nopRecorder) RecordStage(context.Context, string, int, time.Duration) {}
func (nopRecorder) RecordViolations(context.Context, int)                    {}
func (nopRecorder) RecordDNCSize(context.Context, int)                       {}
