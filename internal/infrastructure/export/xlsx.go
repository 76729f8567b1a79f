package export

import (
	"context"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/values"
)

// WorkbookStem is the file stem of the single workbook holding every table
const WorkbookStem = "fixtures"

// XLSXWriter writes all tables into one workbook, one sheet per table
type XLSXWriter struct{}

func (XLSXWriter) Format() values.ExportFormat { return values.ExcelFormat() }

func (w XLSXWriter) Write(ctx context.Context, staging *Staging, tables []Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := w.Format().FileName(WorkbookStem)

	rows := 0
	for _, t := range tables {
		rows += t.Len()
	}
	out, err := staging.Create(name, w.Format().String(), rows)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := buildWorkbook(f, tables); err != nil {
		return errors.NewSinkError(name, "cannot build workbook").WithCause(err)
	}
	if _, err := f.WriteTo(out); err != nil {
		return errors.NewSinkError(name, "workbook write failed").WithCause(err)
	}
	return out.Close()
}

func buildWorkbook(f *excelize.File, tables []Table) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		return err
	}

	for i, t := range tables {
		index, err := f.NewSheet(t.Name())
		if err != nil {
			return err
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	for _, t := range tables {
		if err := writeSheet(f, t, headerStyle); err != nil {
			return err
		}
	}
	return nil
}

func writeSheet(f *excelize.File, t Table, headerStyle int) error {
	sw, err := f.NewStreamWriter(t.Name())
	if err != nil {
		return err
	}
	if err := sw.SetPanes(&excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	columns := t.Columns()
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c.Name
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return err
	}

	rowNum := 2
	err = t.Each(func(cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		rowNum++
		return sw.SetRow(cell, sheetRow(columns, cells))
	})
	if err != nil {
		return err
	}
	return sw.Flush()
}

// sheetRow converts text cells to typed values so numbers and booleans sort and sum
func sheetRow(columns []Column, cells []string) []interface{} {
	row := make([]interface{}, len(cells))
	for i, s := range cells {
		if s == "" {
			continue
		}
		row[i] = s
		switch columns[i].Kind {
		case KindInt:
			if v, err := strconv.ParseInt(s, 10, 64); err == nil {
				row[i] = v
			}
		case KindDecimal:
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				row[i] = v
			}
		case KindBool:
			if v, err := strconv.ParseBool(s); err == nil {
				row[i] = v
			}
		}
	}
	return row
}
