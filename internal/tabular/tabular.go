// Package tabular converts a flattened timetable to and from row-based
// documents (CSV and XLSX).
package tabular

import (
	"fmt"
	"strings"

	"classcal/internal/model"
	"classcal/internal/schedule"
)

// Header returns the export columns for a store scheme.
func Header(scheme schedule.Scheme) []string {
	if scheme == schedule.SchemeDate {
		return []string{"Date", "Day", "Subject", "Time", "Teacher"}
	}
	return []string{"Day", "Subject", "Teacher", "Time"}
}

// Rows renders entries under Header(scheme), header first.
func Rows(scheme schedule.Scheme, entries []model.Entry) [][]string {
	rows := make([][]string, 0, len(entries)+1)
	rows = append(rows, Header(scheme))
	for _, e := range entries {
		if scheme == schedule.SchemeDate {
			rows = append(rows, []string{e.Key, e.Day, e.Class.Subject, e.Class.Time, e.Class.Teacher})
		} else {
			rows = append(rows, []string{e.Key, e.Class.Subject, e.Class.Teacher, e.Class.Time})
		}
	}
	return rows
}

type columns struct {
	key, subject, teacher, time int
}

// locate finds the named columns in a header row, case-insensitively.
// The key column is Date when present, else Day.
func locate(header []string) (columns, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}

	var c columns
	var ok bool
	if c.key, ok = idx["date"]; !ok {
		if c.key, ok = idx["day"]; !ok {
			return c, &schedule.ImportError{Line: 1, Reason: "missing column Date or Day"}
		}
	}
	required := []struct {
		name string
		dst  *int
	}{{"Subject", &c.subject}, {"Teacher", &c.teacher}, {"Time", &c.time}}
	for _, col := range required {
		if *col.dst, ok = idx[strings.ToLower(col.name)]; !ok {
			return c, &schedule.ImportError{Line: 1, Reason: fmt.Sprintf("missing column %s", col.name)}
		}
	}
	return c, nil
}

// ParseRows turns a header row plus data rows into a schedule, grouping
// rows by key in first-appearance order. Blank rows are skipped. Every
// record is validated; the first bad row rejects the whole document.
func ParseRows(rows [][]string) ([]model.DayClasses, error) {
	if len(rows) == 0 {
		return nil, &schedule.ImportError{Reason: "document is empty"}
	}
	cols, err := locate(rows[0])
	if err != nil {
		return nil, err
	}

	var days []model.DayClasses
	pos := map[string]int{}
	for i, row := range rows[1:] {
		line := i + 2
		if blank(row) {
			continue
		}
		key := schedule.NormalizeKey(cell(row, cols.key))
		if key == "" {
			return nil, &schedule.ImportError{Line: line, Reason: "key column is empty"}
		}
		rec, err := schedule.NewRecord(cell(row, cols.subject), cell(row, cols.teacher), cell(row, cols.time))
		if err != nil {
			return nil, &schedule.ImportError{Line: line, Reason: err.Error()}
		}
		p, seen := pos[key]
		if !seen {
			p = len(days)
			pos[key] = p
			days = append(days, model.DayClasses{Key: key})
		}
		days[p].Classes = append(days[p].Classes, rec)
	}
	return days, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
