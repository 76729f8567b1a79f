package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/values"
)

// Writer renders tables in one format into a Staging area
type Writer interface {
	Format() values.ExportFormat
	Write(ctx context.Context, staging *Staging, tables []Table) error
}

// NewWriter returns the writer for format
func NewWriter(format values.ExportFormat, parquetCompression string) (Writer, error) {
	switch format.String() {
	case values.FormatCSV:
		return CSVWriter{}, nil
	case values.FormatParquet:
		return NewParquetWriter(parquetCompression)
	case values.FormatExcel:
		return XLSXWriter{}, nil
	default:
		return nil, errors.NewConfigurationError("UNSUPPORTED_FORMAT",
			fmt.Sprintf("no writer for export format '%s' (supported: %s)",
				format.String(), strings.Join(values.GetSupportedFormats(), ", ")))
	}
}

// writePerTable stages one file per table through encode
func writePerTable(ctx context.Context, staging *Staging, format values.ExportFormat, tables []Table, encode func(f *StagedFile, t Table) error) error {
	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := staging.Create(format.FileName(t.Name()), format.String(), t.Len())
		if err != nil {
			return err
		}
		if err := encode(f, t); err != nil {
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
