// Package storage persists a schedule to a single file and keeps
// timestamped backups of it.
package storage

import (
	"os"
	"path/filepath"
	"strings"

	appLog "classcal/internal/log"
	"classcal/internal/model"
	"classcal/internal/schedule"
)

// Format is the on-disk encoding of a schedule file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the encoding from the file extension. Anything that is
// not .yaml/.yml is JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// File is a schedule.Backing stored at a single path.
type File struct {
	path   string
	format Format
}

// NewFile returns a backing for path with the format taken from its
// extension.
func NewFile(path string) *File {
	return &File{path: path, format: FormatFor(path)}
}

func (f *File) Path() string { return f.path }

// Load reads and decodes the file. A missing file is reported as an error
// satisfying errors.Is(err, fs.ErrNotExist); a malformed one as a
// *schedule.StorageError.
func (f *File) Load() ([]model.DayClasses, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	days, err := f.decode(data)
	if err != nil {
		return nil, &schedule.StorageError{Op: "load", Path: f.path, Err: err}
	}
	return days, nil
}

// Save writes days atomically: encode, write a temp file in the same
// directory, fsync, then rename over the target.
func (f *File) Save(days []model.DayClasses) error {
	data, err := f.encode(days)
	if err != nil {
		return &schedule.StorageError{Op: "encode", Path: f.path, Err: err}
	}
	if err := writeAtomic(f.path, data); err != nil {
		return &schedule.StorageError{Op: "save", Path: f.path, Err: err}
	}
	appLog.Debug("schedule saved", "path", f.path, "keys", len(days), "bytes", len(data))
	return nil
}

func (f *File) encode(days []model.DayClasses) ([]byte, error) {
	if f.format == FormatYAML {
		return EncodeYAML(days)
	}
	return EncodeJSON(days)
}

func (f *File) decode(data []byte) ([]model.DayClasses, error) {
	if f.format == FormatYAML {
		return DecodeYAML(data)
	}
	return DecodeJSON(data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".classcal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
