package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/fixture"
	"github.com/davidleathers/dce-fixture-synth/internal/infrastructure/telemetry"
)

const stagingSuffix = ":loading"

// SeederConfig controls where and how the DNC set is written
type SeederConfig struct {
	Key       string
	TTL       time.Duration
	BatchSize int
}

// DNCSeeder publishes the DNC registry as a Redis set of phone hashes so
// suppression lookups can be exercised against the fixture data.
type DNCSeeder struct {
	client redis.UniversalClient
	config SeederConfig
	logger *zap.Logger
	tracer trace.Tracer
}

// NewRedisClient accepts a redis:// URL or a bare host:port address
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.NewExternalError(errors.StageSeed, "redis", "connection failed").WithCause(err)
	}
	return client, nil
}

// NewDNCSeeder creates a seeder over client
func NewDNCSeeder(client redis.UniversalClient, cfg SeederConfig, logger *zap.Logger) (*DNCSeeder, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.Key == "" {
		return nil, errors.NewConfigurationError("MISSING_REDIS_KEY", "redis.key is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &DNCSeeder{
		client: client,
		config: cfg,
		logger: logger,
		tracer: otel.Tracer("cache.dnc_seeder"),
	}, nil
}

// Seed replaces the configured set with the given entries. Members are staged
// under a side key and renamed into place so readers never see a partial set.
func (s *DNCSeeder) Seed(ctx context.Context, entries []fixture.DncEntry) (int, error) {
	ctx, span := s.tracer.Start(ctx, "DNCSeeder.Seed",
		trace.WithAttributes(
			attribute.String("redis.key", s.config.Key),
			attribute.Int("dnc.entries", len(entries)),
		),
	)
	defer span.End()

	staging := s.config.Key + stagingSuffix
	if err := s.client.Del(ctx, staging).Err(); err != nil {
		return 0, s.fail(span, "clearing staging key failed", err)
	}

	if len(entries) == 0 {
		if err := s.client.Del(ctx, s.config.Key).Err(); err != nil {
			return 0, s.fail(span, "clearing key failed", err)
		}
		return 0, nil
	}

	for i := 0; i < len(entries); i += s.config.BatchSize {
		end := min(i+s.config.BatchSize, len(entries))
		if err := s.addBatch(ctx, staging, entries[i:end]); err != nil {
			return 0, s.fail(span, "bulk add failed", err)
		}
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Rename(ctx, staging, s.config.Key)
		if s.config.TTL > 0 {
			pipe.Expire(ctx, s.config.Key, s.config.TTL)
		}
		return nil
	})
	if err != nil {
		return 0, s.fail(span, "swapping set failed", err)
	}

	size, err := s.client.SCard(ctx, s.config.Key).Result()
	if err != nil {
		return 0, s.fail(span, "reading set size failed", err)
	}

	telemetry.WithTrace(ctx, s.logger).Info("Seeded DNC set",
		zap.String("key", s.config.Key),
		zap.Int64("members", size),
		zap.Duration("ttl", s.config.TTL),
	)
	return int(size), nil
}

func (s *DNCSeeder) addBatch(ctx context.Context, key string, batch []fixture.DncEntry) error {
	members := make([]interface{}, len(batch))
	for i, e := range batch {
		members[i] = e.PhoneHash.String()
	}
	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, key, members...)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *DNCSeeder) fail(span trace.Span, msg string, err error) error {
	telemetry.RecordError(span, err)
	return errors.NewExternalError(errors.StageSeed, "redis", msg).WithCause(err)
}
