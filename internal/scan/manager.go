package scan

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eargollo/dupefinder/internal/monitor"
)

// ErrAlreadyRunning is returned when a scan is started while one is in progress.
var ErrAlreadyRunning = errors.New("a scan is already in progress")

// ErrNoActiveScan is returned when stop is called with no scan running.
var ErrNoActiveScan = errors.New("no scan is currently running")

// ActiveScan is the handle of a scan started by Manager.
type ActiveScan struct {
	ID          uuid.UUID
	StartedAt   time.Time
	TriggeredBy string
	Request     Request

	done   chan struct{}
	report *Report
	err    error
}

// Done is closed when the scan has finished.
func (a *ActiveScan) Done() <-chan struct{} { return a.done }

// Finished reports without blocking whether the scan has finished.
func (a *ActiveScan) Finished() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

// Result blocks until the scan finishes and returns its report and error.
func (a *ActiveScan) Result() (*Report, error) {
	<-a.done
	return a.report, a.err
}

// Manager enforces a single-active-scan invariant over one Monitor.
// It is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	scanner *Scanner
	mon     *monitor.Monitor
	active  *ActiveScan
	last    *Report
}

// NewManager creates a Manager that runs scanner and publishes to mon.
func NewManager(scanner *Scanner, mon *monitor.Monitor) *Manager {
	return &Manager{scanner: scanner, mon: mon}
}

// Monitor returns the monitor scans publish to.
func (m *Manager) Monitor() *monitor.Monitor { return m.mon }

// Start launches an asynchronous scan. The monitor is reset before Start
// returns, so Stop may be called on the handle immediately.
func (m *Manager) Start(parent context.Context, req Request, triggeredBy string) (*ActiveScan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, ErrAlreadyRunning
	}

	active := &ActiveScan{
		ID:          uuid.New(),
		StartedAt:   time.Now(),
		TriggeredBy: triggeredBy,
		Request:     req,
		done:        make(chan struct{}),
	}
	m.active = active
	ctx := m.mon.Begin(parent)

	go func() {
		rep, err := m.scanner.execute(ctx, active.ID, active.StartedAt, req, m.mon)
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("scan run error", "scan_id", active.ID.String(), "error", err)
		}

		m.mu.Lock()
		active.report, active.err = rep, err
		m.active = nil
		m.last = rep
		m.mu.Unlock()
		close(active.done)
	}()

	return active, nil
}

// Stop asks the running scan to finish early. Returns ErrNoActiveScan if idle.
func (m *Manager) Stop() error {
	return m.signal((*monitor.Monitor).Stop)
}

// Interrupt aborts the running scan. Returns ErrNoActiveScan if idle.
func (m *Manager) Interrupt() error {
	return m.signal((*monitor.Monitor).Interrupt)
}

func (m *Manager) signal(fn func(*monitor.Monitor)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ErrNoActiveScan
	}
	fn(m.mon)
	return nil
}

// Active returns the running scan, or nil when idle.
func (m *Manager) Active() *ActiveScan {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// LastReport returns the report of the most recently finished scan.
func (m *Manager) LastReport() *Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
