package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/eargollo/dupefinder/internal/catalog"
	"github.com/eargollo/dupefinder/internal/config"
	"github.com/eargollo/dupefinder/internal/metrics"
	"github.com/eargollo/dupefinder/internal/monitor"
	"github.com/eargollo/dupefinder/internal/scan"
	"github.com/eargollo/dupefinder/internal/scheduler"
	"github.com/eargollo/dupefinder/internal/trash"
)

// Injected at build time via -ldflags; defaults to "dev".
var version = "dev"

type options struct {
	configPath  string
	selectDups  bool
	listCatalog bool
	purgeTrash  bool
	listTrash   bool
	restore     string
	verbose     bool
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts options
	flag.StringVar(&opts.configPath, "config", "config.yaml", "path to config file")
	flag.String("root", "", "directory to scan (overrides config)")
	flag.String("mode", "", "scan mode: content or metadata (overrides config)")
	flag.String("report", "", "duplicates log path (overrides config)")
	flag.String("xlsx", "", "also export duplicates to this spreadsheet")
	flag.String("metrics-file", "", "write Prometheus metrics to this file after each scan")
	flag.String("schedule", "", "cron expression; keep running and rescan on schedule")
	flag.String("log-level", "", "debug, info, warn or error")
	flag.BoolVar(&opts.selectDups, "select", false, "after the scan, pick duplicates to move to the trash")
	flag.BoolVar(&opts.listCatalog, "list-catalog", false, "print the extension catalog and exit")
	flag.BoolVar(&opts.purgeTrash, "purge-trash", false, "delete everything in the trash and exit")
	flag.BoolVar(&opts.listTrash, "list-trash", false, "list trashed files and exit")
	flag.StringVar(&opts.restore, "restore", "", "move this trashed file back to its original path and exit")
	flag.BoolVar(&opts.verbose, "v", false, "print every scanned path")
	flag.Parse()

	// ── Logging (warn until the config level is known) ─────────────────────
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	// ── Config ─────────────────────────────────────────────────────────────
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		return 1
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		return 2
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("dupefinder starting",
		"version", version,
		"log_level", cfg.LogLevel,
		"root", cfg.Root,
		"mode", cfg.Mode)

	overrides := cfg.Overrides()
	if opts.listCatalog {
		printCatalog(os.Stdout, overrides)
		return 0
	}

	trashMgr := trash.New(cfg.TrashDir, cfg.TrashRetentionDays)
	if opts.purgeTrash || opts.listTrash || opts.restore != "" {
		if err := runTrashCommand(os.Stdout, trashMgr, opts); err != nil {
			slog.Error("trash", "error", err)
			return 1
		}
		return 0
	}

	// ── Scan manager ───────────────────────────────────────────────────────
	req, err := requestFor(cfg, overrides)
	if err != nil {
		slog.Error("invalid config", "error", err)
		return 2
	}
	m := metrics.New()
	scanner := scan.New(scan.Config{
		Walkers:       cfg.Workers.Walkers,
		HeaderHashers: cfg.Workers.HeaderHashers,
		FullHashers:   cfg.Workers.FullHashers,
		ReportPath:    cfg.ReportPath,
		XLSXPath:      cfg.XLSXPath,
	}, nil, m)
	mon := monitor.New()
	mgr := scan.NewManager(scanner, mon)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Schedule != "" {
		return runScheduled(ctx, cfg, mgr, req, trashMgr, m)
	}

	active, err := mgr.Start(context.Background(), req(), "manual")
	if err != nil {
		slog.Error("start scan", "error", err)
		return 1
	}
	go func() {
		<-ctx.Done()
		if err := mgr.Interrupt(); err == nil {
			slog.Info("interrupt requested")
		}
	}()

	newConsole(os.Stdout, opts.verbose).follow(mon, active.Done())
	rep, err := active.Result()
	writeMetrics(m, cfg.MetricsFile)
	if errors.Is(err, scan.ErrInvalidRoot) {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	printSummary(os.Stdout, rep, mon)
	if rep.Status != scan.StatusCompleted {
		return 130
	}

	if opts.selectDups && mon.DuplicateCount() > 0 {
		if err := selectAndTrash(os.Stdin, os.Stdout, mon, trashMgr, cfg.ReportPath); err != nil {
			slog.Error("trash selection", "error", err)
			return 1
		}
	}
	return 0
}

func runScheduled(ctx context.Context, cfg *config.Config, mgr *scan.Manager, req func() scan.Request, trashMgr *trash.Manager, m *metrics.Metrics) int {
	sched := scheduler.New()
	onFinish := func(rep *scan.Report, err error) {
		writeMetrics(m, cfg.MetricsFile)
		if rep != nil {
			slog.Info("scheduled scan finished",
				"status", rep.Status,
				"duplicates", len(rep.Duplicates),
				"reclaimable", humanize.Bytes(uint64(rep.Reclaimable)))
		}
	}
	if err := sched.SetRescan(cfg.Schedule, mgr, req, onFinish); err != nil {
		slog.Error("schedule rescan", "expr", cfg.Schedule, "error", err)
		return 2
	}
	if err := sched.AddJob("trash-purge", cfg.PurgeSchedule, trashMgr.AutoPurge); err != nil {
		slog.Warn("failed to register auto-purge job", "error", err)
	}

	sched.Start(ctx)
	if next := sched.NextRunAt(); next != nil {
		slog.Info("waiting for next scan", "at", next.Format("2006-01-02 15:04:05"))
	}
	<-ctx.Done()

	if active := mgr.Active(); active != nil {
		slog.Info("interrupting running scan", "scan_id", active.ID.String())
		_ = mgr.Interrupt()
		<-active.Done()
	}
	sched.Stop()

	attrs := []any{"skipped_ticks", sched.Skipped()}
	if last := mgr.LastReport(); last != nil {
		attrs = append(attrs, "last_scan", last.ID.String(), "last_status", last.Status)
	}
	slog.Info("dupefinder stopped", attrs...)
	return 0
}

// requestFor builds the scan request factory. The catalog selection is
// snapshotted per call so each scan sees its own copy.
func requestFor(cfg *config.Config, overrides catalog.Overrides) (func() scan.Request, error) {
	mode, err := scan.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	return func() scan.Request {
		return scan.Request{Root: cfg.Root, Mode: mode, Selection: catalog.Snapshot(overrides)}
	}, nil
}

// runTrashCommand handles the trash maintenance flags.
func runTrashCommand(w io.Writer, trashMgr *trash.Manager, opts options) error {
	switch {
	case opts.restore != "":
		if err := trashMgr.Restore(opts.restore); err != nil {
			return err
		}
		fmt.Fprintf(w, "Restored %s\n", opts.restore)
	case opts.listTrash:
		items, err := trashMgr.List()
		if err != nil {
			return err
		}
		var total int64
		for _, it := range items {
			total += it.Size
			fmt.Fprintf(w, "%s  %8s  %s\n    -> %s\n",
				it.TrashedAt.Format("2006-01-02 15:04"), humanize.Bytes(uint64(it.Size)), it.TrashPath, it.OriginalPath)
		}
		fmt.Fprintf(w, "%d files, %s in trash\n", len(items), humanize.Bytes(uint64(total)))
	case opts.purgeTrash:
		n, freed, err := trashMgr.PurgeAll(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Purged %d files, freed %s\n", n, humanize.Bytes(uint64(freed)))
	}
	return nil
}

// applyFlags copies explicitly set command-line flags over the config.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		v := f.Value.String()
		switch f.Name {
		case "root":
			cfg.Root = v
		case "mode":
			cfg.Mode = v
		case "report":
			cfg.ReportPath = v
		case "xlsx":
			cfg.XLSXPath = v
		case "metrics-file":
			cfg.MetricsFile = v
		case "schedule":
			cfg.Schedule = v
		case "log-level":
			cfg.LogLevel = v
		}
	})
}

func writeMetrics(m *metrics.Metrics, path string) {
	if err := m.WriteTextfile(path); err != nil {
		slog.Warn("write metrics", "path", path, "error", err)
	}
}

// parseLogLevel converts a config string ("debug", "info", "warn", "error")
// to its slog.Level equivalent. Unknown values default to Info.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
