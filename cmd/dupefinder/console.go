package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/eargollo/dupefinder/internal/catalog"
	"github.com/eargollo/dupefinder/internal/monitor"
	"github.com/eargollo/dupefinder/internal/scan"
)

const (
	pollInterval = 100 * time.Millisecond
	barWidth     = 30
)

var (
	scannedColor = color.New(color.FgBlue)
	errorColor   = color.New(color.FgRed)
	dupColor     = color.New(color.FgGreen)
	infoColor    = color.New(color.Bold)
)

// console polls a Monitor and prints what changed since the last poll.
type console struct {
	w       io.Writer
	verbose bool
	tty     bool

	scanned, errors, dups int
	info                  string
	barShown              bool
	stopping              bool
}

func newConsole(w io.Writer, verbose bool) *console {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	return &console{w: w, verbose: verbose, tty: tty}
}

// follow renders mon until done is closed, then flushes once more.
func (c *console) follow(mon *monitor.Monitor, done <-chan struct{}) {
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for {
		select {
		case <-done:
			c.poll(mon)
			c.clearBar()
			return
		case <-t.C:
			c.poll(mon)
		}
	}
}

func (c *console) poll(mon *monitor.Monitor) {
	scanned := mon.ScannedSince(c.scanned)
	errs := mon.ErrorsSince(c.errors)
	dups := mon.DuplicatesSince(c.dups)
	c.scanned += len(scanned)
	c.errors += len(errs)
	c.dups += len(dups)

	if len(errs) > 0 || len(dups) > 0 || (c.verbose && len(scanned) > 0) {
		c.clearBar()
	}
	if c.verbose {
		for _, p := range scanned {
			scannedColor.Fprintln(c.w, p)
		}
	}
	for _, e := range errs {
		errorColor.Fprintln(c.w, e)
	}
	for _, d := range dups {
		dupColor.Fprintf(c.w, "[%d] %s (%s)\n", d.Set, d.Path, humanize.Bytes(uint64(d.Size)))
	}

	if !c.stopping && mon.IsCancelled() {
		c.clearBar()
		c.stopping = true
		infoColor.Fprintln(c.w, "Stopping scan...")
	}
	info := mon.Info()
	if info != c.info {
		c.clearBar()
		c.info = info
		if info != "" {
			infoColor.Fprintln(c.w, info)
		}
	}
	if c.tty {
		fmt.Fprintf(c.w, "\r%s %d files", progressBar(mon.Progress(), barWidth), c.scanned)
		c.barShown = true
	}
}

func (c *console) clearBar() {
	if c.barShown {
		fmt.Fprint(c.w, "\r\033[K")
		c.barShown = false
	}
}

// progressBar renders f in [0,1] as a fixed-width bar.
func progressBar(f float64, width int) string {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	n := int(f * float64(width))
	return fmt.Sprintf("[%s%s] %3.0f%%", strings.Repeat("#", n), strings.Repeat(".", width-n), f*100)
}

func printSummary(w io.Writer, rep *scan.Report, mon *monitor.Monitor) {
	fmt.Fprintf(w, "\nScan %s in %s\n", rep.Status, rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "  files scanned:   %s\n", humanize.Comma(int64(rep.Scanned)))
	fmt.Fprintf(w, "  errors:          %s\n", humanize.Comma(int64(rep.Errors)))
	fmt.Fprintf(w, "  bytes read:      %s\n", humanize.Bytes(uint64(rep.Stats.BytesRead)))
	fmt.Fprintf(w, "  duplicates:      %d\n", mon.DuplicateCount())
	fmt.Fprintf(w, "  reclaimable:     %s\n", humanize.Bytes(uint64(rep.Reclaimable)))
}

func printCatalog(w io.Writer, o catalog.Overrides) {
	for _, g := range catalog.Groups() {
		infoColor.Fprintf(w, "%s\n", g)
		for _, e := range catalog.Entries(g) {
			mark := " "
			if catalog.IsEnabled(e.Extension, o) {
				mark = "x"
			}
			fmt.Fprintf(w, "  [%s] %-8s %s\n", mark, e.Extension, e.Description)
		}
	}
}
