package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/fixture"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/values"
	"github.com/davidleathers/dce-fixture-synth/internal/infrastructure/config"
	"github.com/davidleathers/dce-fixture-synth/internal/infrastructure/export"
	"github.com/davidleathers/dce-fixture-synth/internal/infrastructure/telemetry"
	"github.com/davidleathers/dce-fixture-synth/internal/service/synth"
)

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Regenerate with the same configuration and compare against existing CSV output",
		Long: "verify rebuilds the dataset from the seed, anchor and parameters recorded in the output " +
			"directory's manifest and reports any difference from the CSV files on disk.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runVerify(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	addGenerationFlags(cmd.Flags())
	return cmd
}

// runVerify regenerates the dataset described by the manifest in cfg.Output.Dir.
// Without a manifest the configured generation parameters are used as is.
func runVerify(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.Telemetry.ServiceName)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	dir := cfg.Output.Dir
	manifest, err := export.ReadManifest(dir)
	if err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return err
	}

	params, err := cfg.Generation.Params(time.Now())
	if err != nil {
		return err
	}
	if manifest != nil {
		if err := requireCSV(manifest, dir); err != nil {
			return err
		}
		if params, err = paramsFromManifest(manifest); err != nil {
			return err
		}
	}

	gen, err := synth.NewGenerator(logger, params)
	if err != nil {
		return err
	}
	ds, err := gen.Generate(ctx)
	if err != nil {
		return err
	}
	tables, err := export.DatasetTables(ds)
	if err != nil {
		return err
	}

	var checksums map[string]string
	if manifest != nil {
		checksums = make(map[string]string, len(manifest.Files))
		for _, f := range manifest.Files {
			checksums[f.Name] = f.SHA256
		}
		if manifest.RunID != ds.RunID.String() {
			fmt.Fprintf(out, "manifest run id %s differs from regenerated %s\n", manifest.RunID, ds.RunID)
		}
	}

	dmp := diffmatchpatch.New()
	mismatches := 0
	for _, t := range tables {
		name := values.CSVFormat().FileName(t.Name())
		expected, err := export.EncodeCSV(t)
		if err != nil {
			return err
		}
		actual, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return errors.NewSinkError(name, "cannot read existing output").WithCause(err)
		}

		if sum, ok := checksums[name]; ok && sum != sha256Hex(expected) {
			fmt.Fprintf(out, "%s: manifest checksum does not match regenerated content\n", name)
		}
		if string(actual) == string(expected) {
			fmt.Fprintf(out, "%s: ok (%d rows)\n", name, t.Len())
			continue
		}

		mismatches++
		diffs := dmp.DiffMain(string(actual), string(expected), false)
		patch := dmp.PatchToText(dmp.PatchMake(string(actual), diffs))
		fmt.Fprintf(out, "%s: differs\n%s", name, patch)
		logger.Warn("Output differs from regenerated dataset",
			zap.String("file", name),
			zap.Int("edits", len(diffs)),
		)
	}

	if mismatches > 0 {
		return errors.NewValidationError("OUTPUT_MISMATCH",
			fmt.Sprintf("%d of %d files differ from seed %d", mismatches, len(tables), params.Seed))
	}
	fmt.Fprintf(out, "verified run %s\n", ds.RunID)
	return nil
}

// requireCSV rejects runs that wrote no CSV tables; verify compares CSV bytes only.
func requireCSV(m *export.Manifest, dir string) error {
	written := make([]string, 0, len(m.Files))
	for _, f := range m.Files {
		if f.Format == values.FormatCSV {
			return nil
		}
		if !slices.Contains(written, f.Format) {
			written = append(written, f.Format)
		}
	}
	return errors.NewConfigurationError("VERIFY_REQUIRES_CSV",
		fmt.Sprintf("verify compares CSV output, but run %s in %s wrote only [%s]; regenerate with --format csv",
			m.RunID, dir, strings.Join(written, ", ")))
}

// paramsFromManifest rebuilds the generation parameters recorded by a previous run.
func paramsFromManifest(m *export.Manifest) (synth.Params, error) {
	anchor, err := fixture.ParseTimestamp(m.Anchor)
	if err != nil {
		return synth.Params{}, errors.NewValidationError("INVALID_MANIFEST", "manifest anchor is not a valid timestamp").WithCause(err)
	}
	p := m.Params
	return synth.Params{
		Seed:                 m.Seed,
		Leads:                p.Leads,
		MaxAttempts:          p.MaxAttempts,
		PConsent:             p.PConsent,
		POptOut:              p.POptOut,
		PViolation:           p.PViolation,
		PConvert:             p.PConvert,
		FDNC:                 p.FDNC,
		Anchor:               anchor,
		LookbackDays:         p.LookbackDays,
		AttemptWindowDays:    p.AttemptWindowDays,
		ConversionWindowDays: p.ConversionWindowDays,
		OptOutWindowDays:     p.OptOutWindowDays,
		RevenueMin:           p.RevenueMin,
		RevenueMax:           p.RevenueMax,
	}, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
