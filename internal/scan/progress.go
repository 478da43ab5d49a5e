package scan

import "sync/atomic"

// Progress holds live counters updated by the pipeline stages.
// All fields are atomic so worker goroutines can write them without locks.
type Progress struct {
	FilesDiscovered atomic.Int64
	Accepted        atomic.Int64
	Candidates      atomic.Int64 // files in groups of two or more
	HeaderHashed    atomic.Int64
	FullHashed      atomic.Int64
	BytesRead       atomic.Int64
	Errors          atomic.Int64
}

// Stats is a point-in-time copy of Progress.
type Stats struct {
	FilesDiscovered int64
	Accepted        int64
	Candidates      int64
	HeaderHashed    int64
	FullHashed      int64
	BytesRead       int64
	Errors          int64
}

// Snapshot copies the counters.
func (p *Progress) Snapshot() Stats {
	return Stats{
		FilesDiscovered: p.FilesDiscovered.Load(),
		Accepted:        p.Accepted.Load(),
		Candidates:      p.Candidates.Load(),
		HeaderHashed:    p.HeaderHashed.Load(),
		FullHashed:      p.FullHashed.Load(),
		BytesRead:       p.BytesRead.Load(),
		Errors:          p.Errors.Load(),
	}
}

// ErrorReporter records a per-entry pipeline error: counts it, logs a
// warning and appends it to the monitor's error log. err already names path.
type ErrorReporter func(path string, err error)
