// Package monitor holds the state shared between a running scan and the
// code presenting it: control flags, append-only logs, duplicate selection,
// an info line and a progress fraction.
//
// A single scan writes; any number of readers take snapshots. Every buffer
// has its own lock. The duplicates log and its selection flags share one
// lock so they always have the same length.
package monitor

import (
	"context"
	"errors"
	"sync"
)

// Control is the caller-requested state of the running scan.
type Control int

const (
	Running Control = iota
	StopRequested
	InterruptRequested
)

func (c Control) String() string {
	switch c {
	case StopRequested:
		return "stopped"
	case InterruptRequested:
		return "interrupted"
	default:
		return "running"
	}
}

// ErrIndexOutOfRange is returned by selection calls given a bad index.
var ErrIndexOutOfRange = errors.New("duplicate index out of range")

// Duplicate is one confirmed duplicate file.
type Duplicate struct {
	Path string
	Size int64
	// Set numbers the group of mutually identical files this path belongs to.
	Set int
	// Tags is only populated by metadata scans.
	Tags map[string]string
}

// Monitor is the signal channel between a scan and its readers.
// The zero value is not usable; call New.
type Monitor struct {
	ctlMu   sync.Mutex
	control Control
	cancel  context.CancelFunc

	scannedMu sync.Mutex
	scanned   []string

	errorsMu sync.Mutex
	errors   []string

	dupMu      sync.Mutex
	duplicates []Duplicate
	selected   []bool

	infoMu sync.Mutex
	info   string

	progressMu sync.Mutex
	progress   float64
}

// New returns an empty Monitor in the Running state.
func New() *Monitor {
	return &Monitor{}
}

// Begin clears all buffers, resets the control state to Running and returns
// a context that is cancelled as soon as Stop or Interrupt is called.
func (m *Monitor) Begin(parent context.Context) context.Context {
	m.Clear()
	ctx, cancel := context.WithCancel(parent)
	m.ctlMu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = cancel
	m.ctlMu.Unlock()
	return ctx
}

// End releases the context returned by Begin once the scan has finished.
// Buffers, control state and info are kept for readers.
func (m *Monitor) End() {
	m.ctlMu.Lock()
	defer m.ctlMu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// Clear empties every buffer and resets control, info and progress.
func (m *Monitor) Clear() {
	m.ctlMu.Lock()
	m.control = Running
	m.ctlMu.Unlock()

	m.scannedMu.Lock()
	m.scanned = nil
	m.scannedMu.Unlock()

	m.errorsMu.Lock()
	m.errors = nil
	m.errorsMu.Unlock()

	m.dupMu.Lock()
	m.duplicates = nil
	m.selected = nil
	m.dupMu.Unlock()

	m.SetInfo("")
	m.ResetProgress()
}

// Stop asks the running scan to finish early.
func (m *Monitor) Stop() { m.request(StopRequested) }

// Interrupt asks the running scan to abort. The engine treats it like Stop;
// the distinction is kept for messaging.
func (m *Monitor) Interrupt() { m.request(InterruptRequested) }

func (m *Monitor) request(c Control) {
	m.ctlMu.Lock()
	m.control = c
	cancel := m.cancel
	m.ctlMu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.ResetProgress()
}

// Control returns the current control state.
func (m *Monitor) Control() Control {
	m.ctlMu.Lock()
	defer m.ctlMu.Unlock()
	return m.control
}

// IsCancelled reports whether Stop or Interrupt has been requested.
func (m *Monitor) IsCancelled() bool {
	return m.Control() != Running
}

// PushScanned appends an accepted path to the scanned log.
func (m *Monitor) PushScanned(path string) {
	m.scannedMu.Lock()
	m.scanned = append(m.scanned, path)
	m.scannedMu.Unlock()
}

// PushError appends a message to the error log.
func (m *Monitor) PushError(msg string) {
	m.errorsMu.Lock()
	m.errors = append(m.errors, msg)
	m.errorsMu.Unlock()
}

// PushDuplicate appends d to the duplicates log together with an unselected flag.
func (m *Monitor) PushDuplicate(d Duplicate) {
	m.dupMu.Lock()
	m.duplicates = append(m.duplicates, d)
	m.selected = append(m.selected, false)
	m.dupMu.Unlock()
}

// Scanned returns a copy of the scanned log.
func (m *Monitor) Scanned() []string {
	m.scannedMu.Lock()
	defer m.scannedMu.Unlock()
	return append([]string(nil), m.scanned...)
}

// ScannedSince returns the scanned entries from index n onwards.
func (m *Monitor) ScannedSince(n int) []string {
	m.scannedMu.Lock()
	defer m.scannedMu.Unlock()
	return tail(m.scanned, n)
}

// Errors returns a copy of the error log.
func (m *Monitor) Errors() []string {
	m.errorsMu.Lock()
	defer m.errorsMu.Unlock()
	return append([]string(nil), m.errors...)
}

// ErrorsSince returns the error entries from index n onwards.
func (m *Monitor) ErrorsSince(n int) []string {
	m.errorsMu.Lock()
	defer m.errorsMu.Unlock()
	return tail(m.errors, n)
}

// Duplicates returns a copy of the duplicates log.
func (m *Monitor) Duplicates() []Duplicate {
	m.dupMu.Lock()
	defer m.dupMu.Unlock()
	return append([]Duplicate(nil), m.duplicates...)
}

// DuplicatesSince returns the duplicates from index n onwards.
func (m *Monitor) DuplicatesSince(n int) []Duplicate {
	m.dupMu.Lock()
	defer m.dupMu.Unlock()
	if n < 0 {
		n = 0
	}
	if n >= len(m.duplicates) {
		return nil
	}
	return append([]Duplicate(nil), m.duplicates[n:]...)
}

// Selected returns a copy of the selection flags, aligned with Duplicates.
func (m *Monitor) Selected() []bool {
	m.dupMu.Lock()
	defer m.dupMu.Unlock()
	return append([]bool(nil), m.selected...)
}

// ScannedCount returns the length of the scanned log.
func (m *Monitor) ScannedCount() int {
	m.scannedMu.Lock()
	defer m.scannedMu.Unlock()
	return len(m.scanned)
}

// ErrorCount returns the length of the error log.
func (m *Monitor) ErrorCount() int {
	m.errorsMu.Lock()
	defer m.errorsMu.Unlock()
	return len(m.errors)
}

// DuplicateCount returns the length of the duplicates log.
func (m *Monitor) DuplicateCount() int {
	m.dupMu.Lock()
	defer m.dupMu.Unlock()
	return len(m.duplicates)
}

func tail(s []string, n int) []string {
	if n < 0 {
		n = 0
	}
	if n >= len(s) {
		return nil
	}
	return append([]string(nil), s[n:]...)
}
