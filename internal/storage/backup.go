package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	appLog "classcal/internal/log"
)

const backupSuffix = ".backup"

// Backups copies the schedule file into a backup directory, either on
// demand or on a cron schedule, keeping the newest Keep copies.
type Backups struct {
	source string
	dir    string
	keep   int
	cron   *cron.Cron
}

// NewBackups keeps up to keep copies of source under dir. keep <= 0 keeps
// every copy.
func NewBackups(source, dir string, keep int) *Backups {
	if dir == "" {
		dir = filepath.Join(filepath.Dir(source), "backup")
	}
	return &Backups{source: source, dir: dir, keep: keep}
}

func (b *Backups) Dir() string { return b.dir }

// Snapshot copies the current schedule file to
// <dir>/<timestamp>_<name>.backup. It returns "" without error when there
// is no schedule file yet.
func (b *Backups) Snapshot(now time.Time) (string, error) {
	data, err := os.ReadFile(b.source)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read schedule for backup: %w", err)
	}

	if err := os.MkdirAll(b.dir, 0o700); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	name := fmt.Sprintf("%s_%s%s", now.UTC().Format("20060102T150405Z"), filepath.Base(b.source), backupSuffix)
	path := filepath.Join(b.dir, name)
	if err := writeAtomic(path, data); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	if err := b.prune(); err != nil {
		appLog.Error("backup prune failed", err, "dir", b.dir)
	}
	return path, nil
}

// List returns backup file names, oldest first.
func (b *Backups) List() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	suffix := "_" + filepath.Base(b.source) + backupSuffix
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			names = append(names, e.Name())
		}
	}
	// Timestamp prefixes sort chronologically.
	sort.Strings(names)
	return names, nil
}

func (b *Backups) prune() error {
	if b.keep <= 0 {
		return nil
	}
	names, err := b.List()
	if err != nil {
		return err
	}
	for len(names) > b.keep {
		if err := os.Remove(filepath.Join(b.dir, names[0])); err != nil {
			return err
		}
		names = names[1:]
	}
	return nil
}

// Start runs Snapshot on the given cron spec (standard 5-field or
// descriptors like "@daily"), evaluated in loc.
func (b *Backups) Start(spec string, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, func() {
		path, err := b.Snapshot(time.Now())
		if err != nil {
			appLog.Error("scheduled backup failed", err, "source", b.source)
			return
		}
		if path != "" {
			appLog.Info("scheduled backup written", "path", path)
		}
	}); err != nil {
		return fmt.Errorf("parse backup schedule %q: %w", spec, err)
	}
	b.cron = c
	c.Start()
	appLog.Info("backup schedule started", "cron", spec, "dir", b.dir, "keep", b.keep)
	return nil
}

// Stop halts the cron schedule. The returned context is done once a
// running backup has finished.
func (b *Backups) Stop() context.Context {
	if b.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return b.cron.Stop()
}
