package scan

import (
	"fmt"
	"log/slog"

	"github.com/eargollo/dupefinder/internal/monitor"
	"github.com/eargollo/dupefinder/internal/report"
)

// writeReports persists dups to the configured report files and sets the
// final info line. Write failures are reported and never discard dups.
func (s *Scanner) writeReports(log *slog.Logger, dups []monitor.Duplicate, mon *monitor.Monitor, onErr ErrorReporter) {
	path := s.cfg.ReportPath
	if path == "" {
		path = report.DefaultLogPath
	}

	if err := report.WriteLog(path, dups); err != nil {
		onErr(path, fmt.Errorf("%w: could not write file %s: %v", ErrReportWrite, path, err))
		return
	}
	log.Info("report written", "path", path, "duplicates", len(dups))

	if s.cfg.XLSXPath != "" {
		if err := report.WriteXLSX(s.cfg.XLSXPath, dups); err != nil {
			onErr(s.cfg.XLSXPath, fmt.Errorf("%w: could not write file %s: %v", ErrReportWrite, s.cfg.XLSXPath, err))
		} else {
			log.Info("spreadsheet written", "path", s.cfg.XLSXPath)
		}
	}

	if len(dups) > 0 {
		mon.SetInfo(fmt.Sprintf("%d duplicates written to file %s", len(dups), path))
	} else {
		mon.SetInfo("")
	}
}
