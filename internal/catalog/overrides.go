package catalog

import "strings"

// Overrides is the caller-owned set of enable toggles layered over the
// static table. An extension override wins over its group override, which
// wins over the entry default. The zero value applies no overrides.
type Overrides struct {
	Groups     map[Group]bool
	Extensions map[string]bool
}

// SetGroup enables or disables every extension of g that has no
// extension-level override.
func (o *Overrides) SetGroup(g Group, enabled bool) {
	if o.Groups == nil {
		o.Groups = make(map[Group]bool)
	}
	o.Groups[g] = enabled
}

// SetExtension enables or disables a single extension.
func (o *Overrides) SetExtension(ext string, enabled bool) {
	if o.Extensions == nil {
		o.Extensions = make(map[string]bool)
	}
	o.Extensions[strings.ToUpper(ext)] = enabled
}

// ToggleExtension flips the effective state of ext and returns the new state.
func (o *Overrides) ToggleExtension(ext string) bool {
	next := !IsEnabled(ext, *o)
	o.SetExtension(ext, next)
	return next
}

// IsEnabled reports whether ext is known and currently selected under o.
func IsEnabled(ext string, o Overrides) bool {
	e, ok := Lookup(ext)
	if !ok {
		return false
	}
	if v, ok := o.Extensions[e.Extension]; ok {
		return v
	}
	if v, ok := o.Groups[e.Group]; ok {
		return v
	}
	return e.Enabled
}

// Selection is an immutable snapshot of which known extensions are enabled,
// taken when a scan starts so later toggles do not affect it.
type Selection struct {
	enabled map[string]bool
}

// Snapshot freezes the effective state of every catalog entry under o.
func Snapshot(o Overrides) Selection {
	s := Selection{enabled: make(map[string]bool, len(table))}
	for ext := range table {
		s.enabled[ext] = IsEnabled(ext, o)
	}
	return s
}

// IsKnown reports whether ext is in the catalog.
func (s Selection) IsKnown(ext string) bool {
	_, ok := s.enabled[strings.ToUpper(ext)]
	return ok
}

// IsEnabled reports whether ext was enabled when the snapshot was taken.
func (s Selection) IsEnabled(ext string) bool {
	return s.enabled[strings.ToUpper(ext)]
}

// Enabled returns the number of enabled extensions in the snapshot.
func (s Selection) Enabled() int {
	n := 0
	for _, v := range s.enabled {
		if v {
			n++
		}
	}
	return n
}
