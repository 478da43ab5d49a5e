package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/eargollo/dupefinder/internal/catalog"
	"github.com/eargollo/dupefinder/internal/monitor"
)

// noErrors is an ErrorReporter that fails the test if invoked.
func noErrors(tb testing.TB) ErrorReporter {
	return func(path string, err error) {
		tb.Errorf("unexpected scan error: path=%q err=%v", path, err)
	}
}

// writeFile creates dir/name with content, creating parent directories.
func writeFile(tb testing.TB, dir, name, content string) string {
	tb.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		tb.Fatalf("mkdir %q: %v", filepath.Dir(p), err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		tb.Fatalf("write %q: %v", p, err)
	}
	return p
}

// newTestScanner returns a Scanner writing its report into a temp dir.
func newTestScanner(tb testing.TB, reader fakeReader) (*Scanner, string) {
	tb.Helper()
	cfg := DefaultConfig()
	cfg.ReportPath = filepath.Join(tb.TempDir(), "duplicates.log")
	var s *Scanner
	if reader == nil {
		s = New(cfg, nil, nil)
	} else {
		s = New(cfg, reader, nil)
	}
	return s, cfg.ReportPath
}

// contentRequest scans root by content with the default catalog selection.
func contentRequest(root string) Request {
	return Request{Root: root, Mode: ContentHash, Selection: catalog.Snapshot(catalog.Overrides{})}
}

func runScan(tb testing.TB, s *Scanner, req Request) (*Report, *monitor.Monitor) {
	tb.Helper()
	mon := monitor.New()
	rep, err := s.Run(context.Background(), req, mon)
	if err != nil {
		tb.Fatalf("scan failed: %v", err)
	}
	return rep, mon
}

func duplicatePaths(dups []monitor.Duplicate) []string {
	out := make([]string, len(dups))
	for i, d := range dups {
		out[i] = d.Path
	}
	sort.Strings(out)
	return out
}

// fakeReader serves tags from memory, keyed by base file name.
type fakeReader map[string]map[string]string

func (f fakeReader) ReadTags(path string) (map[string]string, error) {
	m, ok := f[filepath.Base(path)]
	if !ok {
		return nil, fmt.Errorf("no tags for %s", filepath.Base(path))
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, nil
}

// createSyntheticTree builds a tree with numFiles 1 KB .txt files spread over
// directories of 50. Every 10th file shares identical content.
func createSyntheticTree(tb testing.TB, root string, numFiles int) int {
	tb.Helper()
	for i := 0; i < numFiles; i++ {
		name := filepath.Join(fmt.Sprintf("dir%03d", i/50), fmt.Sprintf("file%04d.txt", i))
		writeFile(tb, root, name, fmt.Sprintf("%-1024d", i%10))
	}
	return numFiles
}
