package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/eargollo/dupefinder/internal/monitor"
	"github.com/eargollo/dupefinder/internal/report"
	"github.com/eargollo/dupefinder/internal/trash"
)

type trasher interface {
	MoveToTrash(path string) (trash.Item, error)
}

// selectAndTrash lists the duplicates in mon, reads a selection from in,
// moves the selected files to the trash and rewrites the report without them.
func selectAndTrash(in io.Reader, out io.Writer, mon *monitor.Monitor, t trasher, reportPath string) error {
	dups := mon.Duplicates()
	for i, d := range dups {
		fmt.Fprintf(out, "%4d  [set %d] %s (%s)\n", i+1, d.Set, d.Path, humanize.Bytes(uint64(d.Size)))
	}

	sc := bufio.NewScanner(in)
	fmt.Fprint(out, "Select files to trash (e.g. \"1 3-5\", \"a\" keeps the first of each set, empty skips): ")
	if !sc.Scan() {
		return sc.Err()
	}
	idx, err := parseSelection(sc.Text(), dups)
	if err != nil {
		return err
	}
	if len(idx) == 0 {
		fmt.Fprintln(out, "Nothing selected")
		return nil
	}
	for _, i := range idx {
		if err := mon.SetSelected(i, true); err != nil {
			return err
		}
	}

	selected := mon.SelectedDuplicates()
	var total int64
	for _, d := range selected {
		total += d.Size
	}
	fmt.Fprintf(out, "Move %d files (%s) to the trash? [y/N] ", len(selected), humanize.Bytes(uint64(total)))
	if !sc.Scan() || !strings.EqualFold(strings.TrimSpace(sc.Text()), "y") {
		for _, i := range idx {
			_ = mon.SetSelected(i, false)
		}
		fmt.Fprintln(out, "Cancelled")
		return sc.Err()
	}

	var moved []string
	var errs []error
	for _, d := range selected {
		if _, err := t.MoveToTrash(d.Path); err != nil {
			errorColor.Fprintln(out, err)
			errs = append(errs, err)
			continue
		}
		moved = append(moved, d.Path)
	}
	mon.RemoveDuplicates(moved...)
	fmt.Fprintf(out, "%d files moved to the trash\n", len(moved))

	if err := report.WriteLog(reportPath, mon.Duplicates()); err != nil {
		errs = append(errs, fmt.Errorf("rewrite report: %w", err))
	}
	return errors.Join(errs...)
}

// parseSelection turns "1 3-5,7" into zero-based indexes into dups. "a"
// selects every duplicate except the first member of each set.
func parseSelection(line string, dups []monitor.Duplicate) ([]int, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	if strings.EqualFold(line, "a") {
		var idx []int
		seen := make(map[int]bool)
		for i, d := range dups {
			if seen[d.Set] {
				idx = append(idx, i)
			}
			seen[d.Set] = true
		}
		return idx, nil
	}

	var idx []int
	picked := make(map[int]bool)
	for _, f := range strings.FieldsFunc(line, func(r rune) bool { return r == ' ' || r == ',' }) {
		lo, hi, err := parseRange(f)
		if err != nil {
			return nil, err
		}
		if lo < 1 || hi > len(dups) || lo > hi {
			return nil, fmt.Errorf("selection %q out of range 1-%d", f, len(dups))
		}
		for n := lo; n <= hi; n++ {
			if !picked[n-1] {
				picked[n-1] = true
				idx = append(idx, n-1)
			}
		}
	}
	return idx, nil
}

func parseRange(s string) (int, int, error) {
	a, b, isRange := strings.Cut(s, "-")
	lo, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid selection %q", s)
	}
	if !isRange {
		return lo, lo, nil
	}
	hi, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid selection %q", s)
	}
	return lo, hi, nil
}
