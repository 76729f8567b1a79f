package database

import (
	"context"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/fixture"
	"github.com/davidleathers/dce-fixture-synth/internal/infrastructure/telemetry"
	"github.com/davidleathers/dce-fixture-synth/internal/service/synth"
)

// TxBeginner is satisfied by *pgxpool.Pool and *pgx.Conn
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// LoadResult counts rows copied per table
type LoadResult struct {
	Leads       int64
	Attempts    int64
	Conversions int64
	DNCEntries  int64
}

// Loader replaces the fixture tables with a dataset in one transaction
type Loader struct {
	db     TxBeginner
	logger *zap.Logger
	tracer trace.Tracer
}

// NewLoader creates a loader over db
func NewLoader(db TxBeginner, logger *zap.Logger) *Loader {
	return &Loader{
		db:     db,
		logger: logger,
		tracer: otel.Tracer("database.loader"),
	}
}

const truncateFixtures = `TRUNCATE TABLE dnc_entries, conversions, contact_attempts, leads`

const upsertRun = `
	INSERT INTO fixture_runs (run_id, seed, anchor, leads, attempts, conversions, dnc_entries, violations)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (run_id) DO UPDATE SET loaded_at = NOW()`

// Load truncates the fixture tables and bulk-copies ds into them. Readers see either
// the previous fixture set or the new one, never a mix.
func (l *Loader) Load(ctx context.Context, ds *synth.Dataset) (result LoadResult, err error) {
	ctx, span := l.tracer.Start(ctx, "Loader.Load",
		trace.WithAttributes(attribute.String("run.id", ds.RunID.String())),
	)
	defer span.End()

	tx, err := l.db.Begin(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return result, loadError("cannot begin transaction", err)
	}
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, truncateFixtures); err != nil {
		return result, loadError("truncate failed", err)
	}

	if result.Leads, err = tx.CopyFrom(ctx, pgx.Identifier{"leads"}, fixture.LeadHeader,
		pgx.CopyFromSlice(len(ds.Leads), func(i int) ([]any, error) {
			lead := ds.Leads[i]
			return []any{
				lead.LeadID,
				lead.PhoneHash.String(),
				string(lead.State),
				string(lead.Timezone),
				string(lead.Source),
				lead.CreatedAt,
				lead.ConsentFlag,
				lead.OptOutAt,
			}, nil
		})); err != nil {
		return result, loadError("copy into leads failed", err)
	}

	if result.Attempts, err = tx.CopyFrom(ctx, pgx.Identifier{"contact_attempts"}, fixture.AttemptHeader,
		pgx.CopyFromSlice(len(ds.Attempts), func(i int) ([]any, error) {
			a := ds.Attempts[i]
			return []any{
				a.AttemptID,
				a.LeadID,
				string(a.Channel),
				a.AttemptTS,
				string(a.Outcome),
				a.CampaignID,
			}, nil
		})); err != nil {
		return result, loadError("copy into contact_attempts failed", err)
	}

	if result.Conversions, err = tx.CopyFrom(ctx, pgx.Identifier{"conversions"}, fixture.ConversionHeader,
		pgx.CopyFromSlice(len(ds.Conversions), func(i int) ([]any, error) {
			c := ds.Conversions[i]
			return []any{
				c.ConversionID,
				c.LeadID,
				c.ConversionTS,
				string(c.ConversionType),
				pgtype.Numeric{Int: big.NewInt(c.Revenue.ToCents()), Exp: -2, Valid: true},
			}, nil
		})); err != nil {
		return result, loadError("copy into conversions failed", err)
	}

	if result.DNCEntries, err = tx.CopyFrom(ctx, pgx.Identifier{"dnc_entries"}, fixture.DncHeader,
		pgx.CopyFromSlice(len(ds.DNC), func(i int) ([]any, error) {
			return []any{ds.DNC[i].PhoneHash.String()}, nil
		})); err != nil {
		return result, loadError("copy into dnc_entries failed", err)
	}

	p := ds.Params
	if _, err = tx.Exec(ctx, upsertRun,
		ds.RunID,
		pgtype.Numeric{Int: new(big.Int).SetUint64(p.Seed), Valid: true},
		p.Anchor,
		ds.Stats.Leads,
		ds.Stats.Attempts,
		ds.Stats.Conversions,
		ds.Stats.DNCEntries,
		ds.Stats.Violations,
	); err != nil {
		return result, loadError("recording run failed", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return result, loadError("commit failed", err)
	}

	telemetry.WithTrace(ctx, l.logger).Info("Loaded fixture tables",
		zap.String("run_id", ds.RunID.String()),
		zap.Int64("leads", result.Leads),
		zap.Int64("contact_attempts", result.Attempts),
		zap.Int64("conversions", result.Conversions),
		zap.Int64("dnc", result.DNCEntries),
	)
	return result, nil
}

func loadError(msg string, cause error) error {
	return errors.NewExternalError(errors.StageLoad, "postgres", msg).WithCause(cause)
}
