package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/values"
	"github.com/davidleathers/dce-fixture-synth/internal/infrastructure/export"
	"github.com/davidleathers/dce-fixture-synth/internal/infrastructure/telemetry"
)

// Uploader is the subset of the S3 transfer manager the publisher needs
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Config locates the bucket a fixture set is published to
type Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string // MinIO or LocalStack
	UsePathStyle bool
	PartSize     int64
	Concurrency  int
}

// NewS3Uploader builds a transfer manager from the default AWS credential chain
func NewS3Uploader(ctx context.Context, cfg Config) (Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, errors.NewExternalError(errors.StagePublish, "s3", "failed to load AWS config").WithCause(err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return manager.NewUploader(client, func(u *manager.Uploader) {
		if cfg.PartSize > 0 {
			u.PartSize = cfg.PartSize
		}
		if cfg.Concurrency > 0 {
			u.Concurrency = cfg.Concurrency
		}
	}), nil
}

// Publisher copies a committed fixture set to object storage under
// <prefix>/<run id>/<file name>, manifest last.
type Publisher struct {
	uploader Uploader
	config   Config
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewPublisher creates a publisher for cfg.Bucket
func NewPublisher(logger *zap.Logger, uploader Uploader, cfg Config) (*Publisher, error) {
	if logger == nil {
		return nil, errors.NewValidationError("INVALID_LOGGER", "logger cannot be nil")
	}
	if uploader == nil {
		return nil, errors.NewValidationError("INVALID_UPLOADER", "uploader cannot be nil")
	}
	if cfg.Bucket == "" {
		return nil, errors.NewConfigurationError("INVALID_BUCKET", "archive bucket is required")
	}
	return &Publisher{
		uploader: uploader,
		config:   cfg,
		logger:   logger,
		tracer:   otel.Tracer("archive.publisher"),
	}, nil
}

// Publish uploads every file in result and returns the object keys written
func (p *Publisher) Publish(ctx context.Context, result *export.Result) ([]string, error) {
	ctx, span := p.tracer.Start(ctx, "Publisher.Publish",
		trace.WithAttributes(
			attribute.String("s3.bucket", p.config.Bucket),
			attribute.String("run.id", result.Manifest.RunID),
		),
	)
	defer span.End()

	keys := make([]string, 0, len(result.Files))
	for _, f := range result.Files {
		key := p.objectKey(result.Manifest.RunID, f.Name)
		if err := p.upload(ctx, key, f, result.Manifest); err != nil {
			telemetry.RecordError(span, err)
			return keys, err
		}
		keys = append(keys, key)
	}

	telemetry.WithTrace(ctx, p.logger).Info("Published fixture set",
		zap.String("bucket", p.config.Bucket),
		zap.String("run_id", result.Manifest.RunID),
		zap.Int("objects", len(keys)),
	)
	return keys, nil
}

func (p *Publisher) objectKey(runID, name string) string {
	return path.Join(p.config.Prefix, runID, name)
}

func (p *Publisher) upload(ctx context.Context, key string, f export.FileInfo, m *export.Manifest) error {
	body, err := os.Open(f.Path)
	if err != nil {
		return errors.NewSinkError(f.Name, "cannot open file for upload").WithCause(err)
	}
	defer body.Close()

	_, err = p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.config.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType(f.Name)),
		Metadata: map[string]string{
			"run-id": m.RunID,
			"seed":   strconv.FormatUint(m.Seed, 10),
			"rows":   strconv.Itoa(f.Rows),
			"sha256": f.SHA256,
		},
	})
	if err != nil {
		return errors.NewExternalError(errors.StagePublish, "s3",
			fmt.Sprintf("upload of %s failed", key)).WithCause(err)
	}

	p.logger.Debug("Uploaded object", zap.String("key", key), zap.Int64("bytes", f.Bytes))
	return nil
}

func contentType(name string) string {
	if name == export.ManifestName {
		return "application/json"
	}
	if format, err := values.NewExportFormatFromFilename(name); err == nil {
		return format.MimeType()
	}
	return "application/octet-stream"
}
