package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"classcal/internal/config"
	"classcal/internal/ics"
	appLog "classcal/internal/log"
	"classcal/internal/model"
	"classcal/internal/schedule"
	"classcal/internal/storage"
	"classcal/internal/tabular"
	"classcal/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	dataFile   string
	listen     string
	once       bool
	days       int
	exportPath string
	importPath string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.Info("classcal starting", "version", version)

	// CLI flags override config file and environment.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.dataFile != "" {
		conf.DataFile = flags.dataFile
	}
	if flags.days > 0 {
		conf.WindowDays = flags.days
	}

	loc, err := conf.Location()
	if err != nil {
		appLog.Warn("timezone not available; using local time", "timezone", conf.Timezone, "err", err)
	}
	scheme, err := schedule.ParseScheme(conf.KeyScheme)
	if err != nil {
		appLog.Error("invalid key scheme", err)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", loc.String(),
		"data_file", conf.DataFile,
		"key_scheme", conf.KeyScheme,
		"window_days", conf.WindowDays,
		"backup_cron", conf.Backup.Cron,
		"once", flags.once,
	)

	store, err := schedule.Open(storage.NewFile(conf.DataFile), schedule.Options{Scheme: scheme, Location: loc}, time.Now())
	if err != nil {
		appLog.Error("failed to open schedule", err, "data_file", conf.DataFile)
		os.Exit(1)
	}

	// One-shot modes: import, then export, then print; exit after.
	if flags.importPath != "" || flags.exportPath != "" || flags.once {
		if err := runOnce(store, conf, flags, time.Now(), os.Stdout); err != nil {
			appLog.Error("classcal failed", err)
			os.Exit(1)
		}
		return
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	backups := storage.NewBackups(conf.DataFile, conf.Backup.Dir, conf.Backup.Keep)
	if conf.Backup.Cron != "" {
		if err := backups.Start(conf.Backup.Cron, loc); err != nil {
			appLog.Error("backup schedule rejected; backups disabled", err, "cron", conf.Backup.Cron)
		}
	}

	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           web.NewServer(conf, store, nil).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		appLog.Error("HTTP server failed", err)
		cancel()
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP shutdown failed", err)
	}
	<-backups.Stop().Done()
	appLog.Info("classcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.dataFile, "data", "", "Schedule data file (overrides config if set)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Print upcoming classes and exit")
	flag.IntVar(&cfg.days, "days", 0, "Upcoming window in days (overrides config if set)")
	flag.StringVar(&cfg.exportPath, "export", "", "Write the timetable to a .csv, .xlsx or .ics file and exit")
	flag.StringVar(&cfg.importPath, "import", "", "Replace the timetable from a .csv, .xlsx or .ics file and exit")

	flag.Parse()

	return cfg
}

func runOnce(store *schedule.Store, conf *config.Config, flags flagConfig, now time.Time, out io.Writer) error {
	if flags.importPath != "" {
		if err := importFile(store, flags.importPath, conf, now); err != nil {
			return err
		}
	}
	if flags.exportPath != "" {
		if err := exportFile(store, flags.exportPath, conf, now); err != nil {
			return err
		}
	}
	if flags.once {
		return printUpcoming(out, store, now, conf.WindowDays)
	}
	return nil
}

func importFile(store *schedule.Store, path string, conf *config.Config, now time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var days []model.DayClasses
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		days, err = tabular.ReadCSV(f)
	case ".xlsx":
		days, err = tabular.ReadXLSX(f)
	case ".ics":
		days, err = ics.Read(f, ics.ImportOptions{
			Scheme:   store.Scheme(),
			Location: store.Location(),
			From:     now,
			Days:     conf.WindowDays,
		})
	default:
		return fmt.Errorf("import %s: unsupported file type", path)
	}
	if err != nil {
		return err
	}
	if err := store.Import(days); err != nil {
		return err
	}
	appLog.Info("timetable imported", "path", path, "keys", len(store.Keys()))
	return nil
}

func exportFile(store *schedule.Store, path string, conf *config.Config, now time.Time) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".xlsx" && ext != ".ics" {
		return fmt.Errorf("export %s: unsupported file type", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	switch ext {
	case ".ics":
		var occ []model.Occurrence
		if occ, err = store.Upcoming(now, conf.WindowDays); err == nil {
			err = ics.Export(f, occ, conf.ClassMinutes, now)
		}
	default:
		var entries []model.Entry
		if entries, err = store.Filtered(schedule.Filter{}); err == nil {
			if ext == ".csv" {
				err = tabular.WriteCSV(f, store.Scheme(), entries)
			} else {
				err = tabular.WriteXLSX(f, store.Scheme(), entries)
			}
		}
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	appLog.Info("timetable exported", "path", path)
	return nil
}

func printUpcoming(w io.Writer, store *schedule.Store, now time.Time, days int) error {
	occ, err := store.Upcoming(now, days)
	if err != nil {
		return err
	}
	if len(occ) == 0 {
		_, err := fmt.Fprintf(w, "No classes in the next %d days.\n", days)
		return err
	}
	for _, o := range occ {
		if _, err := fmt.Fprintf(w, "%s  %-12s %s\n",
			o.At.Format("Mon 2006-01-02 15:04"), o.Class.Subject, o.Class.Teacher); err != nil {
			return err
		}
	}
	return nil
}
