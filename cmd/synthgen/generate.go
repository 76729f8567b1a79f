package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davidleathers/dce-fixture-synth/internal/infrastructure/archive"
	"github.com/davidleathers/dce-fixture-synth/internal/infrastructure/cache"
	"github.com/davidleathers/dce-fixture-synth/internal/infrastructure/config"
	"github.com/davidleathers/dce-fixture-synth/internal/infrastructure/database"
	"github.com/davidleathers/dce-fixture-synth/internal/infrastructure/export"
	"github.com/davidleathers/dce-fixture-synth/internal/infrastructure/telemetry"
	"github.com/davidleathers/dce-fixture-synth/internal/metrics"
	"github.com/davidleathers/dce-fixture-synth/internal/service/synth"
)

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a fixture set and write it to the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runGenerate(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	addGenerationFlags(cmd.Flags())
	addOutputFlags(cmd.Flags())
	return cmd
}

func runGenerate(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.Telemetry.ServiceName)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	params, err := cfg.Generation.Params(time.Now())
	if err != nil {
		return err
	}

	provider, err := telemetry.InitializeOpenTelemetry(ctx, &telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Environment,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SamplingRate,
		RunID:          synth.RunIDFor(params).String(),
		Seed:           params.Seed,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	registry, err := metrics.NewRegistry("synthgen")
	if err != nil {
		return err
	}

	gen, err := synth.NewGenerator(logger, params,
		synth.WithRecorder(registry),
		synth.WithTracer(provider.TracerProvider.Tracer("synthgen")),
	)
	if err != nil {
		return err
	}
	ds, err := gen.Generate(ctx)
	if err != nil {
		return err
	}

	formats, err := cfg.Output.ExportFormats()
	if err != nil {
		return err
	}
	exporter, err := export.NewExporter(logger, export.Config{
		Dir:                cfg.Output.Dir,
		Formats:            formats,
		ParquetCompression: cfg.Output.ParquetCompression,
	}, registry)
	if err != nil {
		return err
	}
	result, err := exporter.Export(ctx, ds)
	if err != nil {
		return err
	}

	if err := runSinks(ctx, cfg, logger, registry, ds, result); err != nil {
		return err
	}

	registry.MarkRunComplete(time.Now())
	if cfg.Metrics.PushgatewayURL != "" {
		if err := registry.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job,
			map[string]string{"run_id": ds.RunID.String()}); err != nil {
			return err
		}
	}

	printResult(out, ds, result)
	return nil
}

// runSinks delivers committed output to the optional downstream stores, in order.
// The first failure aborts the run.
func runSinks(ctx context.Context, cfg *config.Config, logger *zap.Logger, registry *metrics.Registry, ds *synth.Dataset, result *export.Result) error {
	if cfg.Archive.Enabled {
		err := publish(ctx, cfg.Archive, logger, result)
		registry.RecordSink(ctx, "s3", err)
		if err != nil {
			return err
		}
	}
	if cfg.Database.Enabled {
		err := load(ctx, cfg.Database, logger, ds)
		registry.RecordSink(ctx, "postgres", err)
		if err != nil {
			return err
		}
	}
	if cfg.Redis.Enabled {
		err := seed(ctx, cfg.Redis, logger, ds)
		registry.RecordSink(ctx, "redis", err)
		if err != nil {
			return err
		}
	}
	return nil
}

func publish(ctx context.Context, cfg config.ArchiveConfig, logger *zap.Logger, result *export.Result) error {
	acfg := archive.Config{
		Bucket:       cfg.Bucket,
		Prefix:       cfg.Prefix,
		Region:       cfg.Region,
		Endpoint:     cfg.Endpoint,
		UsePathStyle: cfg.UsePathStyle,
	}
	uploader, err := archive.NewS3Uploader(ctx, acfg)
	if err != nil {
		return err
	}
	publisher, err := archive.NewPublisher(logger, uploader, acfg)
	if err != nil {
		return err
	}
	_, err = publisher.Publish(ctx, result)
	return err
}

func load(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger, ds *synth.Dataset) error {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if cfg.Migrate {
		if err := database.Migrate(ctx, cfg.URL, logger); err != nil {
			return err
		}
	}
	pool, err := database.NewPool(ctx, cfg.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	_, err = database.NewLoader(pool, logger).Load(ctx, ds)
	return err
}

func seed(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger, ds *synth.Dataset) error {
	client, err := cache.NewRedisClient(ctx, cfg.URL)
	if err != nil {
		return err
	}
	defer client.Close()

	seeder, err := cache.NewDNCSeeder(client, cache.SeederConfig{
		Key:       cfg.Key,
		TTL:       cfg.TTL,
		BatchSize: cfg.BatchSize,
	}, logger)
	if err != nil {
		return err
	}
	_, err = seeder.Seed(ctx, ds.DNC)
	return err
}

func printResult(out io.Writer, ds *synth.Dataset, result *export.Result) {
	fmt.Fprintf(out, "run %s (seed %d, anchor %s)\n", ds.RunID, ds.Params.Seed, ds.Params.Anchor.Format(time.RFC3339))
	for _, f := range result.Files {
		fmt.Fprintf(out, "  wrote %s (%d rows, %d bytes)\n", filepath.Join(result.Dir, f.Name), f.Rows, f.Bytes)
	}
	s := ds.Stats
	fmt.Fprintf(out, "leads=%d attempts=%d conversions=%d dnc=%d violations=%d revenue=%s\n",
		s.Leads, s.Attempts, s.Conversions, s.DNCEntries, s.Violations, s.TotalRevenue)
}
