package monitor

import "sort"

// SetSelected sets the selection flag of duplicate i.
func (m *Monitor) SetSelected(i int, v bool) error {
	m.dupMu.Lock()
	defer m.dupMu.Unlock()
	if i < 0 || i >= len(m.selected) {
		return ErrIndexOutOfRange
	}
	m.selected[i] = v
	return nil
}

// ToggleSelected flips the selection flag of duplicate i and returns the new value.
func (m *Monitor) ToggleSelected(i int) (bool, error) {
	m.dupMu.Lock()
	defer m.dupMu.Unlock()
	if i < 0 || i >= len(m.selected) {
		return false, ErrIndexOutOfRange
	}
	m.selected[i] = !m.selected[i]
	return m.selected[i], nil
}

// SelectedDuplicates returns the duplicates whose flag is set.
func (m *Monitor) SelectedDuplicates() []Duplicate {
	m.dupMu.Lock()
	defer m.dupMu.Unlock()
	var out []Duplicate
	for i, sel := range m.selected {
		if sel {
			out = append(out, m.duplicates[i])
		}
	}
	return out
}

// RemoveDuplicates drops the records whose paths are listed, keeping the
// selection flags of the survivors aligned. It returns how many were removed.
func (m *Monitor) RemoveDuplicates(paths ...string) int {
	drop := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		drop[p] = struct{}{}
	}

	m.dupMu.Lock()
	defer m.dupMu.Unlock()

	var idx []int
	for i, d := range m.duplicates {
		if _, ok := drop[d.Path]; ok {
			idx = append(idx, i)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(idx)))
	for _, i := range idx {
		m.duplicates = append(m.duplicates[:i], m.duplicates[i+1:]...)
		m.selected = append(m.selected[:i], m.selected[i+1:]...)
	}
	return len(idx)
}
