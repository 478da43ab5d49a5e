// Package report persists confirmed duplicates: a plain-text log with one
// path per line and an optional spreadsheet export.
package report

import (
	"bufio"
	"fmt"
	"os"
	"sort"

	"go.uber.org/multierr"

	"github.com/eargollo/dupefinder/internal/monitor"
)

// DefaultLogPath is the report location used when none is configured.
const DefaultLogPath = "./duplicates.log"

// WriteLog truncates path and writes one duplicate path per line. Records
// that carry tags are followed by indented "key: value" lines sorted by key.
func WriteLog(path string, dups []monitor.Duplicate) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	w := bufio.NewWriter(f)
	for _, d := range dups {
		if _, err := fmt.Fprintln(w, d.Path); err != nil {
			return err
		}
		for _, k := range sortedKeys(d.Tags) {
			if _, err := fmt.Fprintf(w, "  %s: %s\n", k, d.Tags[k]); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

// Summary aggregates a duplicate list.
type Summary struct {
	Sets  int
	Files int
	// Reclaimable is the number of bytes freed by keeping one file per set.
	Reclaimable int64
}

// Summarize counts sets and reclaimable bytes. Every member of a set has the
// same size in content scans; metadata sets use the smallest member as the
// copy that is kept.
func Summarize(dups []monitor.Duplicate) Summary {
	type agg struct {
		total int64
		min   int64
		n     int
	}
	sets := make(map[int]*agg)
	for _, d := range dups {
		a, ok := sets[d.Set]
		if !ok {
			a = &agg{min: d.Size}
			sets[d.Set] = a
		}
		a.total += d.Size
		a.n++
		if d.Size < a.min {
			a.min = d.Size
		}
	}
	s := Summary{Sets: len(sets), Files: len(dups)}
	for _, a := range sets {
		if a.n > 1 {
			s.Reclaimable += a.total - a.min
		}
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
