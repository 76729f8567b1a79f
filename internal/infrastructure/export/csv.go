package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/values"
)

// CSVWriter writes one comma-separated, LF-terminated file per table with a header row
type CSVWriter struct{}

func (CSVWriter) Format() values.ExportFormat { return values.CSVFormat() }

func (w CSVWriter) Write(ctx context.Context, staging *Staging, tables []Table) error {
	return writePerTable(ctx, staging, w.Format(), tables, func(f *StagedFile, t Table) error {
		if err := WriteCSV(f, t); err != nil {
			return errors.NewSinkError(f.info.Name, "csv encoding failed").WithCause(err)
		}
		return nil
	})
}

// WriteCSV writes the header and every row of t to w
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return err
	}
	if err := t.Each(cw.Write); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// EncodeCSV renders t in memory
func EncodeCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
