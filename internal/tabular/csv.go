package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"classcal/internal/model"
	"classcal/internal/schedule"
)

// WriteCSV writes entries as CSV with the scheme's header row.
func WriteCSV(w io.Writer, scheme schedule.Scheme, entries []model.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Rows(scheme, entries)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ReadCSV parses a CSV timetable. Malformed documents yield a
// *schedule.ImportError.
func ReadCSV(r io.Reader) ([]model.DayClasses, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, &schedule.ImportError{Line: pe.Line, Reason: pe.Err.Error()}
		}
		return nil, &schedule.ImportError{Reason: err.Error()}
	}
	return ParseRows(rows)
}
