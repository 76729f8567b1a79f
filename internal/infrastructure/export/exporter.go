package export

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/values"
	"github.com/davidleathers/dce-fixture-synth/internal/service/synth"
)

// Config selects where and how a dataset is written
type Config struct {
	Dir                string
	Formats            []values.ExportFormat
	ParquetCompression string
}

// FileRecorder receives one call per committed file
type FileRecorder interface {
	RecordFile(ctx context.Context, format string, rows int, bytes int64)
}

// Result is what an export committed
type Result struct {
	Dir      string
	Manifest *Manifest
	// Files lists data files followed by the manifest itself
	Files []FileInfo
}

// Exporter writes a dataset in every configured format and commits all files at once
type Exporter struct {
	logger   *zap.Logger
	dir      string
	writers  []Writer
	recorder FileRecorder
	tracer   trace.Tracer
}

// NewExporter validates cfg and builds one writer per format
func NewExporter(logger *zap.Logger, cfg Config, recorder FileRecorder) (*Exporter, error) {
	if logger == nil {
		return nil, errors.NewValidationError("INVALID_LOGGER", "logger cannot be nil")
	}
	if cfg.Dir == "" {
		return nil, errors.NewConfigurationError("INVALID_OUTPUT_DIR", "output directory is required")
	}
	formats := cfg.Formats
	if len(formats) == 0 {
		formats = []values.ExportFormat{values.CSVFormat()}
	}

	writers := make([]Writer, 0, len(formats))
	seen := make(map[string]bool, len(formats))
	for _, f := range formats {
		if seen[f.String()] {
			continue
		}
		seen[f.String()] = true
		w, err := NewWriter(f, cfg.ParquetCompression)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}

	return &Exporter{
		logger:   logger,
		dir:      cfg.Dir,
		writers:  writers,
		recorder: recorder,
		tracer:   otel.Tracer("export.exporter"),
	}, nil
}

// Export stages every file, writes the manifest, then renames everything into place.
// On any failure no new file appears under its final name.
func (e *Exporter) Export(ctx context.Context, ds *synth.Dataset) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "Exporter.Export",
		trace.WithAttributes(
			attribute.String("run.id", ds.RunID.String()),
			attribute.String("output.dir", e.dir),
		),
	)
	defer span.End()

	result, err := e.export(ctx, ds)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

func (e *Exporter) export(ctx context.Context, ds *synth.Dataset) (*Result, error) {
	tables, err := DatasetTables(ds)
	if err != nil {
		return nil, errors.NewInternalError(errors.StageExport, "cannot build tables").WithCause(err)
	}

	staging, err := NewStaging(e.dir)
	if err != nil {
		return nil, err
	}

	for _, w := range e.writers {
		if err := e.runWriter(ctx, w, staging, tables); err != nil {
			staging.Abort()
			return nil, err
		}
	}

	manifest := newManifest(ds, staging.Files())
	data, err := manifest.encode()
	if err != nil {
		staging.Abort()
		return nil, errors.NewSinkError(ManifestName, "cannot encode manifest").WithCause(err)
	}
	mf, err := staging.Create(ManifestName, "json", 0)
	if err != nil {
		staging.Abort()
		return nil, err
	}
	if _, err := mf.Write(data); err != nil {
		staging.Abort()
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		staging.Abort()
		return nil, errors.NewSinkError(e.dir, "export cancelled").WithCause(err)
	}

	files, err := staging.Commit()
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		if e.recorder != nil {
			e.recorder.RecordFile(ctx, f.Format, f.Rows, f.Bytes)
		}
		e.logger.Info("Wrote fixture file",
			zap.String("file", f.Path),
			zap.String("format", f.Format),
			zap.Int("rows", f.Rows),
			zap.Int64("bytes", f.Bytes),
		)
	}

	return &Result{Dir: e.dir, Manifest: manifest, Files: files}, nil
}

func (e *Exporter) runWriter(ctx context.Context, w Writer, staging *Staging, tables []Table) error {
	format := w.Format().String()
	ctx, span := e.tracer.Start(ctx, "Exporter.write."+format)
	defer span.End()

	start := time.Now()
	if err := w.Write(ctx, staging, tables); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.StageOf(err) == "" {
			return errors.NewSinkError(format, "write failed").WithCause(err)
		}
		return err
	}
	e.logger.Debug("Format staged",
		zap.String("format", format),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
