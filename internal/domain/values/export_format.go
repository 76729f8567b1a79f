package values

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
)

// ExportFormat represents a supported output format for fixture tables
type ExportFormat struct {
	format string
}

// Supported export formats
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
	FormatExcel   = "xlsx"
)

var (
	formatMimeTypes = map[string]string{
		FormatCSV:     "text/csv",
		FormatParquet: "application/parquet",
		FormatExcel:   "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}

	formatExtensions = map[string]string{
		FormatCSV:     ".csv",
		FormatParquet: ".parquet",
		FormatExcel:   ".xlsx",
	}
)

// NewExportFormat creates a new ExportFormat value object with validation
func NewExportFormat(format string) (ExportFormat, error) {
	if format == "" {
		return ExportFormat{}, errors.NewValidationError("EMPTY_FORMAT",
			"export format cannot be empty")
	}

	normalized := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")

	if _, ok := formatExtensions[normalized]; !ok {
		return ExportFormat{}, errors.NewValidationError("UNSUPPORTED_FORMAT",
			fmt.Sprintf("export format '%s' is not supported (want one of %s)",
				format, strings.Join(GetSupportedFormats(), ", ")))
	}

	return ExportFormat{format: normalized}, nil
}

// NewExportFormatFromFilename creates ExportFormat from a file name's extension
func NewExportFormatFromFilename(filename string) (ExportFormat, error) {
	extension := filepath.Ext(filename)
	if extension == "" {
		return ExportFormat{}, errors.NewValidationError("NO_EXTENSION",
			"filename must have an extension")
	}
	return NewExportFormat(extension)
}

// Standard export formats
func CSVFormat() ExportFormat     { return ExportFormat{format: FormatCSV} }
func ParquetFormat() ExportFormat { return ExportFormat{format: FormatParquet} }
func ExcelFormat() ExportFormat   { return ExportFormat{format: FormatExcel} }

// String returns the format identifier
func (ef ExportFormat) String() string {
	return ef.format
}

// MimeType returns the MIME type used as S3 content type
func (ef ExportFormat) MimeType() string {
	return formatMimeTypes[ef.format]
}

// Extension returns the file extension including the leading dot
func (ef ExportFormat) Extension() string {
	return formatExtensions[ef.format]
}

// FileName returns the output file name for a table stem
func (ef ExportFormat) FileName(stem string) string {
	return stem + ef.Extension()
}

// GetSupportedFormats returns all supported format identifiers in output order
func GetSupportedFormats() []string {
	return []string{FormatCSV, FormatParquet, FormatExcel}
}
