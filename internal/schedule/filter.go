package schedule

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"classcal/internal/model"
)

// Wildcard matches every value of a filter criterion, as does "".
const Wildcard = "All"

// Filter selects timetable entries. Empty or "All" criteria match anything.
type Filter struct {
	// Day matches the key itself or the weekday name it resolves to.
	Day     string
	Subject string
	Teacher string
	// Where is an optional boolean expression over key, day, subject,
	// teacher and time, e.g. `time < "12:00" && teacher != "Mr. Khan"`.
	Where string
}

// filterEnv is the environment Where expressions are compiled against.
type filterEnv struct {
	Key     string `expr:"key"`
	Day     string `expr:"day"`
	Subject string `expr:"subject"`
	Teacher string `expr:"teacher"`
	Time    string `expr:"time"`
}

func isWildcard(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, Wildcard)
}

func (f Filter) compile() (*vm.Program, error) {
	if strings.TrimSpace(f.Where) == "" {
		return nil, nil
	}
	program, err := expr.Compile(f.Where, expr.Env(filterEnv{}), expr.AsBool())
	if err != nil {
		return nil, validationErr("where", err.Error())
	}
	return program, nil
}

func (f Filter) matches(e model.Entry) bool {
	if !isWildcard(f.Day) {
		day := strings.TrimSpace(f.Day)
		if e.Key != day && !strings.EqualFold(e.Day, day) {
			return false
		}
	}
	if !isWildcard(f.Subject) && e.Class.Subject != strings.TrimSpace(f.Subject) {
		return false
	}
	if !isWildcard(f.Teacher) && e.Class.Teacher != strings.TrimSpace(f.Teacher) {
		return false
	}
	return true
}

// Filtered flattens the store in canonical order and keeps the entries
// matching every criterion of f.
func (s *Store) Filtered(f Filter) ([]model.Entry, error) {
	program, err := f.compile()
	if err != nil {
		return nil, err
	}

	out := []model.Entry{}
	for _, key := range s.keys {
		day := DayName(key)
		for i, rec := range s.classes[key] {
			e := model.Entry{Key: key, Day: day, Index: i, Class: rec}
			if !f.matches(e) {
				continue
			}
			if program != nil {
				ok, err := runWhere(program, e)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
			}
			out = append(out, e)
		}
	}
	return out, nil
}

func runWhere(program *vm.Program, e model.Entry) (bool, error) {
	result, err := expr.Run(program, filterEnv{
		Key:     e.Key,
		Day:     e.Day,
		Subject: e.Class.Subject,
		Teacher: e.Class.Teacher,
		Time:    e.Class.Time,
	})
	if err != nil {
		return false, validationErr("where", fmt.Sprintf("evaluate: %v", err))
	}
	ok, _ := result.(bool)
	return ok, nil
}
