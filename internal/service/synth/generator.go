package synth

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/fixture"
)

// Generator runs the lead, attempt, conversion and DNC stages against one Source
type Generator struct {
	logger   *zap.Logger
	params   Params
	recorder Recorder
	tracer   trace.Tracer
}

// Option customizes a Generator
type Option func(*Generator)

// WithRecorder reports stage measurements to r
func WithRecorder(r Recorder) Option {
	return func(g *Generator) {
		if r != nil {
			g.recorder = r
		}
	}
}

// WithTracer overrides the global otel tracer
func WithTracer(t trace.Tracer) Option {
	return func(g *Generator) {
		if t != nil {
			g.tracer = t
		}
	}
}

// NewGenerator validates params and returns a Generator
func NewGenerator(logger *zap.Logger, params Params, opts ...Option) (*Generator, error) {
	if logger == nil {
		return nil, errors.NewValidationError("INVALID_LOGGER", "logger cannot be nil")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	params.Anchor = params.Anchor.UTC().Truncate(time.Second)

	g := &Generator{
		logger:   logger,
		params:   params,
		recorder: nopRecorder{},
		tracer:   otel.Tracer("synth.generator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Params returns the normalized parameters the generator runs with
func (g *Generator) Params() Params {
	return g.params
}

// Generate produces a complete dataset. The stages consume a fresh Source seeded
// from the parameters, strictly in lead, attempt, conversion, DNC order.
func (g *Generator) Generate(ctx context.Context) (*Dataset, error) {
	runID := RunIDFor(g.params)
	ctx, span := g.tracer.Start(ctx, "Generator.Generate",
		trace.WithAttributes(
			attribute.String("run.id", runID.String()),
			attribute.Int64("run.seed", int64(g.params.Seed)),
			attribute.Int("run.leads", g.params.Leads),
		),
	)
	defer span.End()

	logger := g.logger.With(zap.String("run_id", runID.String()))
	logger.Info("Starting fixture generation",
		zap.Uint64("seed", g.params.Seed),
		zap.Int("leads", g.params.Leads),
		zap.Int("max_attempts", g.params.MaxAttempts),
		zap.Time("anchor", g.params.Anchor),
	)

	src := NewSource(g.params.Seed)

	var leads []fixture.Lead
	if err := g.stage(ctx, errors.StageLeads, func() int {
		leads = GenerateLeads(src, g.params)
		return len(leads)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var attempts []fixture.ContactAttempt
	var violations int
	if err := g.stage(ctx, errors.StageAttempts, func() int {
		attempts, violations = GenerateAttempts(src, g.params, leads)
		return len(attempts)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	g.recorder.RecordViolations(ctx, violations)

	var conversions []fixture.Conversion
	if err := g.stage(ctx, errors.StageConversions, func() int {
		conversions = GenerateConversions(src, g.params, leads)
		return len(conversions)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var dnc []fixture.DncEntry
	if err := g.stage(ctx, errors.StageDNC, func() int {
		dnc = SampleDNC(src, g.params.FDNC, leads)
		return len(dnc)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	g.recorder.RecordDNCSize(ctx, len(dnc))

	stats := summarize(leads, attempts, conversions, dnc, violations)
	logger.Info("Fixture generation complete",
		zap.Int("leads", stats.Leads),
		zap.Int("contact_attempts", stats.Attempts),
		zap.Int("conversions", stats.Conversions),
		zap.Int("dnc", stats.DNCEntries),
		zap.Int("violations", stats.Violations),
		zap.String("total_revenue", stats.TotalRevenue.String()),
	)

	return &Dataset{
		RunID:       runID,
		Params:      g.params,
		Leads:       leads,
		Attempts:    attempts,
		Conversions: conversions,
		DNC:         dnc,
		Stats:       stats,
	}, nil
}

// stage runs fn in its own span once ctx is still live, and records its row count
func (g *Generator) stage(ctx context.Context, name string, fn func() int) error {
	if err := ctx.Err(); err != nil {
		return errors.NewInternalError(name, "generation cancelled").WithCause(err)
	}

	ctx, span := g.tracer.Start(ctx, "Generator."+name)
	defer span.End()

	start := time.Now()
	rows := fn()
	elapsed := time.Since(start)

	span.SetAttributes(attribute.Int("rows", rows))
	g.recorder.RecordStage(ctx, name, rows, elapsed)
	g.logger.Debug("Stage finished",
		zap.String("stage", name),
		zap.Int("rows", rows),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}
