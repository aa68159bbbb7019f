// Package schedule holds the class store and the queries over it.
//
// A Store maps schedule keys (weekday names or YYYY-MM-DD dates) to ordered
// lists of class records. Key order is the order in which keys were first
// added; record order under a key is insertion order. Together they form
// the canonical flattened order used by Filtered and by exports.
//
// A Store is not safe for concurrent use. Callers that share one across
// goroutines must serialize access.
package schedule

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	appLog "classcal/internal/log"
	"classcal/internal/model"
)

// Persister writes a full snapshot of the store after each mutation.
type Persister interface {
	Save(days []model.DayClasses) error
}

// Backing is a durable source a store can be opened from.
type Backing interface {
	Persister
	Load() ([]model.DayClasses, error)
	Path() string
}

// Options configures a Store.
type Options struct {
	Scheme Scheme
	// Location resolves date keys and "now". Defaults to time.Local.
	Location *time.Location
	// Persister, if set, receives a snapshot after every mutation.
	Persister Persister
}

type Store struct {
	scheme  Scheme
	loc     *time.Location
	keys    []string
	classes map[string][]model.ClassRecord
	persist Persister
	version uint64
}

// New builds a store holding days. An auto scheme is resolved from the
// data (weekday when undecided). Data mixing weekday and date keys, or
// contradicting an explicit scheme, is rejected with ErrMixedSchemes.
func New(days []model.DayClasses, opts Options) (*Store, error) {
	scheme, err := resolveScheme(days, opts.Scheme)
	if err != nil {
		return nil, err
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	s := &Store{
		scheme:  scheme,
		loc:     loc,
		classes: make(map[string][]model.ClassRecord),
		persist: opts.Persister,
	}
	s.keys, s.classes = flatten(days)
	return s, nil
}

// Open loads the store from b. A missing backing file is not an error: the
// built-in seed for the scheme is materialized and written instead. Any
// other load failure is returned as a StorageError.
func Open(b Backing, opts Options, now time.Time) (*Store, error) {
	opts.Persister = b

	days, err := b.Load()
	if errors.Is(err, fs.ErrNotExist) {
		scheme := opts.Scheme
		if scheme == SchemeAuto || scheme == "" {
			scheme = SchemeWeekday
		}
		opts.Scheme = scheme
		seed := Seed(scheme, inLocation(now, opts.Location))
		s, err := New(seed, opts)
		if err != nil {
			return nil, err
		}
		if err := b.Save(s.Snapshot()); err != nil {
			return nil, &StorageError{Op: "seed", Path: b.Path(), Err: err}
		}
		appLog.Info("schedule seeded", "path", b.Path(), "scheme", scheme, "keys", len(seed))
		return s, nil
	}
	if err != nil {
		var se *StorageError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, &StorageError{Op: "load", Path: b.Path(), Err: err}
	}

	s, err := New(days, opts)
	if err != nil {
		return nil, &StorageError{Op: "load", Path: b.Path(), Err: err}
	}
	appLog.Info("schedule loaded", "path", b.Path(), "scheme", s.scheme, "keys", len(s.keys))
	return s, nil
}

func inLocation(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}

func resolveScheme(days []model.DayClasses, want Scheme) (Scheme, error) {
	keys := make([]string, 0, len(days))
	for _, d := range days {
		keys = append(keys, d.Key)
	}
	got, err := DetectScheme(keys)
	if err != nil {
		return "", err
	}
	switch {
	case want == SchemeAuto || want == "":
		if got == SchemeAuto {
			return SchemeWeekday, nil
		}
		return got, nil
	case got == SchemeAuto || got == want:
		return want, nil
	}
	return "", fmt.Errorf("%w: configured %s keys, data has %s keys", ErrMixedSchemes, want, got)
}

// flatten copies days into key order + map form, merging repeated keys and
// dropping empty lists.
func flatten(days []model.DayClasses) ([]string, map[string][]model.ClassRecord) {
	keys := make([]string, 0, len(days))
	classes := make(map[string][]model.ClassRecord, len(days))
	for _, d := range days {
		if len(d.Classes) == 0 {
			continue
		}
		if _, ok := classes[d.Key]; !ok {
			keys = append(keys, d.Key)
		}
		classes[d.Key] = append(classes[d.Key], d.Classes...)
	}
	return keys, classes
}

func (s *Store) Scheme() Scheme { return s.scheme }

func (s *Store) Location() *time.Location { return s.loc }

// Version increases by one on every successful mutation.
func (s *Store) Version() uint64 { return s.version }

// Keys returns the keys in canonical order.
func (s *Store) Keys() []string {
	return append([]string(nil), s.keys...)
}

// NewRecord validates and normalizes the fields of a class. Fields are
// trimmed and must be non-empty; the time is rewritten as HH:MM.
func NewRecord(subject, teacher, tm string) (model.ClassRecord, error) {
	subject = strings.TrimSpace(subject)
	teacher = strings.TrimSpace(teacher)
	if subject == "" {
		return model.ClassRecord{}, validationErr("subject", "must not be empty")
	}
	if teacher == "" {
		return model.ClassRecord{}, validationErr("teacher", "must not be empty")
	}
	tod, err := ParseTimeOfDay(tm)
	if err != nil {
		return model.ClassRecord{}, err
	}
	return model.ClassRecord{Subject: subject, Teacher: teacher, Time: tod.String()}, nil
}

// Add appends a class under key, creating the key if needed.
func (s *Store) Add(key, subject, teacher, tm string) error {
	key = NormalizeKey(key)
	if err := checkKey(key, s.scheme); err != nil {
		return err
	}
	rec, err := NewRecord(subject, teacher, tm)
	if err != nil {
		return err
	}

	prev, existed := s.classes[key]
	s.classes[key] = append(prev[:len(prev):len(prev)], rec)
	if !existed {
		s.keys = append(s.keys, key)
	}

	err = s.commit(func() {
		if existed {
			s.classes[key] = prev
			return
		}
		delete(s.classes, key)
		s.keys = s.keys[:len(s.keys)-1]
	})
	if err != nil {
		return err
	}
	appLog.Debug("class added", "key", key, "subject", rec.Subject, "time", rec.Time)
	return nil
}

// Remove deletes the class at index under key. A key whose last class is
// removed disappears from the store.
func (s *Store) Remove(key string, index int) error {
	key = NormalizeKey(key)
	prev, ok := s.classes[key]
	if !ok || index < 0 || index >= len(prev) {
		return &NotFoundError{Key: key, Index: index}
	}

	next := make([]model.ClassRecord, 0, len(prev)-1)
	next = append(next, prev[:index]...)
	next = append(next, prev[index+1:]...)

	pos := -1
	if len(next) == 0 {
		pos = indexOf(s.keys, key)
		delete(s.classes, key)
		s.keys = append(s.keys[:pos:pos], s.keys[pos+1:]...)
	} else {
		s.classes[key] = next
	}

	err := s.commit(func() {
		s.classes[key] = prev
		if pos >= 0 {
			keys := make([]string, 0, len(s.keys)+1)
			keys = append(keys, s.keys[:pos]...)
			keys = append(keys, key)
			s.keys = append(keys, s.keys[pos:]...)
		}
	})
	if err != nil {
		return err
	}
	appLog.Debug("class removed", "key", key, "index", index, "key_deleted", pos >= 0)
	return nil
}

// Replace swaps the whole content of the store for days. Every record is
// validated first; on any error the store is left as it was.
func (s *Store) Replace(days []model.DayClasses) error {
	normalized := make([]model.DayClasses, 0, len(days))
	for _, d := range days {
		key := NormalizeKey(d.Key)
		if err := checkKey(key, s.scheme); err != nil {
			return err
		}
		recs := make([]model.ClassRecord, 0, len(d.Classes))
		for i, c := range d.Classes {
			rec, err := NewRecord(c.Subject, c.Teacher, c.Time)
			if err != nil {
				var ve *ValidationError
				if errors.As(err, &ve) {
					return validationErr(fmt.Sprintf("%s[%d].%s", key, i, ve.Field), ve.Reason)
				}
				return err
			}
			recs = append(recs, rec)
		}
		normalized = append(normalized, model.DayClasses{Key: key, Classes: recs})
	}
	if _, err := DetectScheme(keysOf(normalized)); err != nil {
		return validationErr("key", err.Error())
	}

	prevKeys, prevClasses := s.keys, s.classes
	s.keys, s.classes = flatten(normalized)

	err := s.commit(func() {
		s.keys, s.classes = prevKeys, prevClasses
	})
	if err != nil {
		return err
	}
	appLog.Info("schedule replaced", "keys", len(s.keys))
	return nil
}

// Import is Replace for parsed documents: a record or key rejected by
// validation is reported as an ImportError.
func (s *Store) Import(days []model.DayClasses) error {
	err := s.Replace(days)
	var ve *ValidationError
	if errors.As(err, &ve) {
		return &ImportError{Reason: ve.Error()}
	}
	return err
}

// commit persists the current state. On failure undo restores the
// previous in-memory state so memory and backing stay in step.
func (s *Store) commit(undo func()) error {
	if s.persist != nil {
		if err := s.persist.Save(s.Snapshot()); err != nil {
			undo()
			var se *StorageError
			if errors.As(err, &se) {
				return err
			}
			return &StorageError{Op: "save", Err: err}
		}
	}
	s.version++
	return nil
}

// On returns the classes filed under a single key. Weekday names are
// matched case-insensitively. An unknown key yields an empty slice.
func (s *Store) On(key string) []model.ClassRecord {
	list := s.classes[NormalizeKey(key)]
	return append([]model.ClassRecord{}, list...)
}

// Snapshot returns a deep copy of the store in canonical order.
func (s *Store) Snapshot() []model.DayClasses {
	out := make([]model.DayClasses, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, model.DayClasses{
			Key:     k,
			Classes: append([]model.ClassRecord(nil), s.classes[k]...),
		})
	}
	return out
}

// FilterOptions are the distinct values offered by timetable filters.
type FilterOptions struct {
	Days     []string `json:"days"`
	Subjects []string `json:"subjects"`
	Teachers []string `json:"teachers"`
}

// Options lists keys in canonical order plus sorted distinct subjects and
// teachers.
func (s *Store) Options() FilterOptions {
	subjects := map[string]struct{}{}
	teachers := map[string]struct{}{}
	for _, k := range s.keys {
		for _, c := range s.classes[k] {
			subjects[c.Subject] = struct{}{}
			teachers[c.Teacher] = struct{}{}
		}
	}
	return FilterOptions{
		Days:     s.Keys(),
		Subjects: sortedSet(subjects),
		Teachers: sortedSet(teachers),
	}
}

func sortedSet(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func keysOf(days []model.DayClasses) []string {
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, d.Key)
	}
	return out
}

func indexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}
