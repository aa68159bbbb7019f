package tabular

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	appLog "classcal/internal/log"
	"classcal/internal/model"
	"classcal/internal/schedule"
)

// SheetName is the worksheet exports are written to and imports prefer.
const SheetName = "Timetable"

// ContentTypeXLSX is the MIME type of spreadsheet exports.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteXLSX writes entries as a single-sheet workbook.
func WriteXLSX(w io.Writer, scheme schedule.Scheme, entries []model.Entry) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			appLog.Error("xlsx close failed", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	for i, row := range Rows(scheme, entries) {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cellRef, &row); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+1, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}
	last, _ := excelize.ColumnNumberToName(len(Header(scheme)))
	if err := f.SetColWidth(SheetName, "A", last, 18); err != nil {
		return fmt.Errorf("xlsx width: %w", err)
	}

	return f.Write(w)
}

// ReadXLSX parses the Timetable sheet, or the first sheet when there is
// none by that name.
func ReadXLSX(r io.Reader) ([]model.DayClasses, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &schedule.ImportError{Reason: fmt.Sprintf("open xlsx: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &schedule.ImportError{Reason: "workbook has no sheets"}
	}
	sheet := sheets[0]
	for _, s := range sheets {
		if s == SheetName {
			sheet = s
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &schedule.ImportError{Reason: fmt.Sprintf("read sheet %s: %v", sheet, err)}
	}
	return ParseRows(rows)
}
