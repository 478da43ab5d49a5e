package monitor

// SetInfo replaces the status line.
func (m *Monitor) SetInfo(s string) {
	m.infoMu.Lock()
	m.info = s
	m.infoMu.Unlock()
}

// Info returns the status line.
func (m *Monitor) Info() string {
	m.infoMu.Lock()
	defer m.infoMu.Unlock()
	return m.info
}

// SetProgress records current/max as the progress fraction and, when info is
// not empty, replaces the status line. Zero total work counts as complete.
func (m *Monitor) SetProgress(max, current int, info string) {
	p := 1.0
	if max > 0 {
		p = float64(current) / float64(max)
		switch {
		case p < 0:
			p = 0
		case p > 1:
			p = 1
		}
	}
	m.progressMu.Lock()
	m.progress = p
	m.progressMu.Unlock()
	if info != "" {
		m.SetInfo(info)
	}
}

// ResetProgress sets the progress fraction back to zero.
func (m *Monitor) ResetProgress() {
	m.progressMu.Lock()
	m.progress = 0
	m.progressMu.Unlock()
}

// Progress returns the current progress fraction in [0, 1].
func (m *Monitor) Progress() float64 {
	m.progressMu.Lock()
	defer m.progressMu.Unlock()
	return m.progress
}
