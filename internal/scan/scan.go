package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/eargollo/dupefinder/internal/catalog"
	"github.com/eargollo/dupefinder/internal/metrics"
	"github.com/eargollo/dupefinder/internal/monitor"
	"github.com/eargollo/dupefinder/internal/report"
	"github.com/eargollo/dupefinder/internal/tags"
)

// Mode selects how candidates are grouped and confirmed.
type Mode int

const (
	// ContentHash groups by size and extension and confirms with checksums.
	ContentHash Mode = iota
	// MetadataKey groups by duration and title and confirms with the full tag key.
	MetadataKey
)

func (m Mode) String() string {
	if m == MetadataKey {
		return "metadata"
	}
	return "content"
}

// ParseMode accepts "content" and "metadata". The empty string is content.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "content":
		return ContentHash, nil
	case "metadata":
		return MetadataKey, nil
	}
	return 0, fmt.Errorf("unknown scan mode %q", s)
}

var (
	// ErrInvalidRoot aborts a scan whose root is not an existing directory.
	ErrInvalidRoot = errors.New("invalid root")
	// ErrUnknownExtension marks an entry whose extension is not in the catalog.
	ErrUnknownExtension = errors.New("unknown extension")
	// ErrMetadataRead marks a failed stat, directory read or tag parse.
	ErrMetadataRead = errors.New("metadata read failed")
	// ErrChecksumRead marks an I/O failure while checksumming a candidate.
	ErrChecksumRead = errors.New("checksum read failed")
	// ErrReportWrite marks a failure to write the report file.
	ErrReportWrite = errors.New("report write failed")
)

// Request describes one scan. It is not modified once the scan starts.
type Request struct {
	Root      string
	Mode      Mode
	Selection catalog.Selection
}

// Config holds pipeline concurrency and output settings.
type Config struct {
	Walkers       int
	HeaderHashers int
	FullHashers   int
	// ReportPath is truncated and rewritten by every scan that completes.
	ReportPath string
	// XLSXPath enables the spreadsheet export when set.
	XLSXPath string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Walkers:       4,
		HeaderHashers: 4,
		FullHashers:   2,
		ReportPath:    report.DefaultLogPath,
	}
}

// Status is the final state of a scan.
type Status string

const (
	StatusCompleted   Status = "completed"
	StatusStopped     Status = "stopped"
	StatusInterrupted Status = "interrupted"
	StatusFailed      Status = "failed"
)

// Report is the outcome of one scan.
type Report struct {
	ID         uuid.UUID
	Root       string
	Mode       Mode
	StartedAt  time.Time
	FinishedAt time.Time
	Status     Status

	Scanned    int
	Errors     int
	Groups     int
	Duplicates []monitor.Duplicate
	// Reclaimable is the number of bytes freed by keeping one file per set.
	Reclaimable int64
	Stats       Stats
}

// Scanner runs the duplicate-detection pipeline. A Scanner has no
// reentrancy guard; use Manager to keep a single scan in flight.
type Scanner struct {
	cfg     Config
	tags    tags.Reader
	metrics *metrics.Metrics
}

// New creates a Scanner. A nil reader uses tags.FileReader; m may be nil.
func New(cfg Config, reader tags.Reader, m *metrics.Metrics) *Scanner {
	d := DefaultConfig()
	if cfg.Walkers <= 0 {
		cfg.Walkers = d.Walkers
	}
	if cfg.HeaderHashers <= 0 {
		cfg.HeaderHashers = d.HeaderHashers
	}
	if cfg.FullHashers <= 0 {
		cfg.FullHashers = d.FullHashers
	}
	if reader == nil {
		reader = tags.FileReader{}
	}
	return &Scanner{cfg: cfg, tags: reader, metrics: m}
}

// Run resets mon, executes the pipeline and blocks until it finishes or
// mon.Stop / mon.Interrupt is called. Results are pushed to mon as they are
// found and also returned. The error is non-nil only for ErrInvalidRoot or
// cancellation (context.Canceled).
func (s *Scanner) Run(ctx context.Context, req Request, mon *monitor.Monitor) (*Report, error) {
	ctx = mon.Begin(ctx)
	return s.execute(ctx, uuid.New(), time.Now(), req, mon)
}

// execute runs the pipeline on a context already bound to mon.
func (s *Scanner) execute(ctx context.Context, id uuid.UUID, startedAt time.Time, req Request, mon *monitor.Monitor) (*Report, error) {
	log := slog.With("scan_id", id.String())
	log.Info("scan started", "root", req.Root, "mode", req.Mode.String())

	rep := &Report{ID: id, Root: req.Root, Mode: req.Mode, StartedAt: startedAt}
	p := &Progress{}

	runErr := s.runPipeline(ctx, log, req, mon, p, rep)
	mon.End()

	rep.Status = finalStatus(runErr, mon.Control())
	switch rep.Status {
	case StatusStopped, StatusInterrupted:
		mon.ResetProgress()
		if rep.Status == StatusInterrupted {
			mon.SetInfo("Scan interrupted")
		} else {
			mon.SetInfo("Scan stopped")
		}
	}

	rep.FinishedAt = time.Now()
	rep.Scanned = mon.ScannedCount()
	rep.Errors = mon.ErrorCount()
	rep.Stats = p.Snapshot()

	s.metrics.Progress(mon.Progress())
	s.metrics.ScanFinished(string(rep.Status), rep.FinishedAt.Sub(startedAt), rep.Reclaimable)

	log.Info("scan finished", "status", rep.Status,
		"scanned", rep.Scanned,
		"errors", rep.Errors,
		"duplicates", len(rep.Duplicates),
		"bytes_read", rep.Stats.BytesRead,
		"duration", rep.FinishedAt.Sub(startedAt).Round(time.Millisecond))

	return rep, runErr
}

// finalStatus derives the scan status from the pipeline result. A stop that
// arrives after the pipeline returned does not change a completed scan.
func finalStatus(runErr error, c monitor.Control) Status {
	switch {
	case runErr == nil:
		return StatusCompleted
	case errors.Is(runErr, context.Canceled):
		if c == monitor.InterruptRequested {
			return StatusInterrupted
		}
		return StatusStopped
	}
	return StatusFailed
}

// runPipeline walks, groups, checksums and confirms, then writes the reports.
func (s *Scanner) runPipeline(ctx context.Context, log *slog.Logger, req Request, mon *monitor.Monitor, p *Progress, rep *Report) error {
	if info, err := os.Stat(req.Root); err != nil || !info.IsDir() {
		err := fmt.Errorf("%w: %s must be a directory", ErrInvalidRoot, req.Root)
		mon.PushError(err.Error())
		log.Error("scan aborted", "error", err)
		return err
	}

	onErr := s.reporter(log, mon, p)

	mon.SetInfo("Scanning...")
	groups := s.collect(ctx, req, mon, p, onErr)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	rep.Groups = len(groups)
	for _, g := range groups {
		p.Candidates.Add(int64(len(g)))
	}
	log.Debug("walk finished", "groups", len(groups), "candidates", p.Candidates.Load())

	if req.Mode == ContentHash {
		s.headerPass(ctx, groups, mon, p, onErr)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	rep.Duplicates = s.confirmPass(ctx, req.Mode, groups, mon, p, onErr)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	rep.Reclaimable = report.Summarize(rep.Duplicates).Reclaimable
	s.metrics.Duplicates(len(rep.Duplicates))

	s.writeReports(log, rep.Duplicates, mon, onErr)
	return nil
}

// reporter returns the ErrorReporter shared by every stage of one scan.
func (s *Scanner) reporter(log *slog.Logger, mon *monitor.Monitor, p *Progress) ErrorReporter {
	return func(path string, err error) {
		p.Errors.Add(1)
		s.metrics.ScanError(errorKind(err))
		log.Warn("scan error", "path", path, "error", err)
		mon.PushError(err.Error())
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnknownExtension):
		return metrics.KindUnknownExtension
	case errors.Is(err, ErrChecksumRead):
		return metrics.KindChecksumRead
	case errors.Is(err, ErrReportWrite):
		return metrics.KindReportWrite
	case errors.Is(err, ErrMetadataRead):
		return metrics.KindMetadataRead
	}
	return metrics.KindWalk
}
