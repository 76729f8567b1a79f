package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/values"
)

// parquetParallelism is the number of goroutines the writer marshals with
const parquetParallelism = 4

// ParquetWriter writes one Parquet file per table
type ParquetWriter struct {
	codec parquet.CompressionCodec
}

// NewParquetWriter accepts snappy, gzip, zstd or none
func NewParquetWriter(compression string) (*ParquetWriter, error) {
	codec, err := parquetCodec(compression)
	if err != nil {
		return nil, err
	}
	return &ParquetWriter{codec: codec}, nil
}

func parquetCodec(compression string) (parquet.CompressionCodec, error) {
	switch strings.ToLower(compression) {
	case "", "snappy":
		return parquet.CompressionCodec_SNAPPY, nil
	case "gzip":
		return parquet.CompressionCodec_GZIP, nil
	case "zstd":
		return parquet.CompressionCodec_ZSTD, nil
	case "none":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, errors.NewConfigurationError("INVALID_COMPRESSION",
			fmt.Sprintf("unsupported parquet compression: %s", compression))
	}
}

func (*ParquetWriter) Format() values.ExportFormat { return values.ParquetFormat() }

func (w *ParquetWriter) Write(ctx context.Context, staging *Staging, tables []Table) error {
	return writePerTable(ctx, staging, w.Format(), tables, func(f *StagedFile, t Table) error {
		pw, err := writer.NewCSVWriterFromWriter(parquetSchema(t.Columns()), f, parquetParallelism)
		if err != nil {
			return errors.NewSinkError(f.info.Name, "cannot build parquet schema").WithCause(err)
		}
		pw.CompressionType = w.codec

		err = t.Each(func(cells []string) error {
			return pw.WriteString(parquetRow(t.Columns(), cells))
		})
		if err != nil {
			return errors.NewSinkError(f.info.Name, "parquet row write failed").WithCause(err)
		}
		if err := pw.WriteStop(); err != nil {
			return errors.NewSinkError(f.info.Name, "parquet footer write failed").WithCause(err)
		}
		return nil
	})
}

// parquetSchema returns the writer metadata for columns.
// Timestamps stay ISO text so every format shows the same value.
func parquetSchema(columns []Column) []string {
	md := make([]string, len(columns))
	for i, c := range columns {
		var typ string
		switch c.Kind {
		case KindInt:
			typ = "type=INT64"
		case KindBool:
			typ = "type=BOOLEAN"
		case KindDecimal:
			typ = "type=DOUBLE"
		default:
			typ = "type=BYTE_ARRAY, convertedtype=UTF8"
		}
		md[i] = fmt.Sprintf("name=%s, %s", c.Name, typ)
		if c.Optional {
			md[i] += ", repetitiontype=OPTIONAL"
		}
	}
	return md
}

func parquetRow(columns []Column, cells []string) []*string {
	row := make([]*string, len(cells))
	for i := range cells {
		if cells[i] == "" && columns[i].Optional {
			continue
		}
		row[i] = &cells[i]
	}
	return row
}
