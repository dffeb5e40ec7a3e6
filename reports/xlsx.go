package reports

import (
	"io"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// WriteXLSX renders t as a single-sheet workbook.
func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.Wrap(err, "name sheet")
	}

	row, err := writeHeader(f, sheet, 0, t.Headers)
	if err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, cells := range t.Rows {
		row++
		for i, v := range cells {
			if err := writeColumn(f, sheet, i+1, row, xlsxValue(v)); err != nil {
				return errors.Wrapf(err, "write row %d", row)
			}
		}
	}
	if len(t.Rows) > 0 {
		if err := f.AutoFilter(sheet, "A1:"+lastCell(len(t.Headers), row), nil); err != nil {
			return errors.Wrap(err, "auto filter")
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return errors.Wrap(err, "render workbook")
	}
	_, err = buf.WriteTo(w)
	return errors.Wrap(err, "write workbook")
}

// xlsxValue keeps day amounts numeric in the sheet.
func xlsxValue(v any) any {
	if d, ok := v.(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return v
}

func lastCell(col, row int) string {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "A1"
	}
	return cell
}

func writeColumn(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

// writeHeader writes a bold header on the row after row and returns it.
func writeHeader(f *excelize.File, sheet string, row int, headers []string) (int, error) {
	row++
	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Font:      &excelize.Font{Bold: true, Size: 11},
	})
	if err != nil {
		return row, err
	}
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return row, err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), row)
	if err != nil {
		return row, err
	}
	if err := f.SetCellStyle(sheet, first, last, style); err != nil {
		return row, err
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return row, err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return row, err
	}
	for i, h := range headers {
		if err := writeColumn(f, sheet, i+1, row, h); err != nil {
			return row, err
		}
	}
	return row, nil
}
