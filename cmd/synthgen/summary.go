package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/spf13/cobra"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/values"
	"github.com/davidleathers/dce-fixture-synth/internal/infrastructure/export"
)

// categorical columns broken down by count in the summary
var breakdowns = map[string]string{
	export.TableLeads:       "source",
	export.TableAttempts:    "outcome",
	export.TableConversions: "conversion_type",
}

// identifiers and timestamps are kept as strings so type detection cannot mangle them
var stringColumns = map[string]series.Type{
	"phone_hash":    series.String,
	"created_at":    series.String,
	"opt_out_at":    series.String,
	"attempt_ts":    series.String,
	"conversion_ts": series.String,
	"campaign_id":   series.String,
}

func newSummaryCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Describe the CSV files in an output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSummary(dir, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&dir, "out", "o", "data", "Output directory to summarize")
	return cmd
}

func runSummary(dir string, out io.Writer) error {
	for _, name := range []string{export.TableLeads, export.TableAttempts, export.TableConversions, export.TableDNC} {
		file := values.CSVFormat().FileName(name)
		records, err := readRecords(filepath.Join(dir, file))
		if err != nil {
			return errors.NewSinkError(file, "cannot read csv").WithCause(err)
		}
		if len(records) <= 1 {
			fmt.Fprintf(out, "%s: 0 rows\n\n", name)
			continue
		}

		df := dataframe.LoadRecords(records, dataframe.WithTypes(stringColumns))
		if df.Err != nil {
			return errors.NewValidationError("INVALID_CSV", fmt.Sprintf("%s: cannot load dataframe", file)).WithCause(df.Err)
		}
		fmt.Fprintf(out, "%s: %d rows x %d columns\n", name, df.Nrow(), df.Ncol())
		fmt.Fprintln(out, df.Describe())

		if col, ok := breakdowns[name]; ok {
			counts := df.GroupBy(col).
				Aggregation([]dataframe.AggregationType{dataframe.Aggregation_COUNT}, []string{col}).
				Arrange(dataframe.Sort(col))
			if counts.Err != nil {
				return errors.NewValidationError("INVALID_CSV", fmt.Sprintf("%s: cannot group by %s", file, col)).WithCause(counts.Err)
			}
			fmt.Fprintln(out, counts)
		}
	}
	return nil
}

func readRecords(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csv.NewReader(f).ReadAll()
}
