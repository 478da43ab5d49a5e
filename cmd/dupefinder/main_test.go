package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eargollo/dupefinder/internal/catalog"
	"github.com/eargollo/dupefinder/internal/config"
	"github.com/eargollo/dupefinder/internal/monitor"
	"github.com/eargollo/dupefinder/internal/scan"
	"github.com/eargollo/dupefinder/internal/trash"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestParseSelection(t *testing.T) {
	dups := []monitor.Duplicate{
		{Path: "a", Set: 1}, {Path: "b", Set: 1}, {Path: "c", Set: 2}, {Path: "d", Set: 2}, {Path: "e", Set: 2},
	}

	idx, err := parseSelection("1 3-4,4", dups)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3}, idx)

	idx, err = parseSelection("a", dups)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 4}, idx)

	idx, err = parseSelection("  ", dups)
	require.NoError(t, err)
	assert.Empty(t, idx)

	for _, bad := range []string{"0", "6", "x", "3-1", "2-z"} {
		_, err := parseSelection(bad, dups)
		assert.Error(t, err, bad)
	}
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[..........]   0%", progressBar(0, 10))
	assert.Equal(t, "[#####.....]  50%", progressBar(0.5, 10))
	assert.Equal(t, "[##########] 100%", progressBar(1.7, 10))
}

func scanTree(t *testing.T) (*monitor.Monitor, string, string) {
	t.Helper()
	root := t.TempDir()
	for _, n := range []string{"a.txt", "b.txt", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, n), []byte("same"), 0o644))
	}
	cfg := scan.DefaultConfig()
	cfg.ReportPath = filepath.Join(t.TempDir(), "duplicates.log")
	mon := monitor.New()
	_, err := scan.New(cfg, nil, nil).Run(context.Background(), scan.Request{
		Root: root, Mode: scan.ContentHash, Selection: catalog.Snapshot(catalog.Overrides{}),
	}, mon)
	require.NoError(t, err)
	require.Equal(t, 3, mon.DuplicateCount())
	return mon, root, cfg.ReportPath
}

func TestSelectAndTrash(t *testing.T) {
	mon, root, reportPath := scanTree(t)
	tm := trash.New(t.TempDir(), 30)
	var out bytes.Buffer

	err := selectAndTrash(strings.NewReader("a\ny\n"), &out, mon, tm, reportPath)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(root, "a.txt"))
	assert.NoFileExists(t, filepath.Join(root, "b.txt"))
	assert.NoFileExists(t, filepath.Join(root, "c.txt"))
	assert.Equal(t, 1, mon.DuplicateCount())
	assert.Contains(t, out.String(), "2 files moved to the trash")

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a.txt")+"\n", string(data))

	items, err := tm.List()
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestSelectAndTrashDeclined(t *testing.T) {
	mon, root, reportPath := scanTree(t)
	var out bytes.Buffer

	err := selectAndTrash(strings.NewReader("2\nn\n"), &out, mon, trash.New(t.TempDir(), 30), reportPath)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "b.txt"))
	assert.Equal(t, 3, mon.DuplicateCount())
	assert.Empty(t, mon.SelectedDuplicates())
	assert.Contains(t, out.String(), "Cancelled")
}

func TestPrintCatalogMarksEnabled(t *testing.T) {
	var o catalog.Overrides
	o.SetGroup(catalog.GroupAudio, false)
	var out bytes.Buffer
	printCatalog(&out, o)

	assert.Contains(t, out.String(), "[ ] .MP3")
	assert.Contains(t, out.String(), "[x] .PDF")
	assert.Contains(t, out.String(), "[ ] .BIN")
}

func TestApplyFlags(t *testing.T) {
	old := flag.CommandLine
	defer func() { flag.CommandLine = old }()
	flag.CommandLine = flag.NewFlagSet("test", flag.ContinueOnError)
	flag.String("root", "", "")
	flag.String("mode", "", "")
	flag.String("report", "", "")
	require.NoError(t, flag.CommandLine.Parse([]string{"-root", "/music", "-mode", "metadata"}))

	cfg := config.Default()
	applyFlags(cfg)
	assert.Equal(t, "/music", cfg.Root)
	assert.Equal(t, "metadata", cfg.Mode)
	assert.Equal(t, "./duplicates.log", cfg.ReportPath)
}

func TestRequestForRejectsUnknownMode(t *testing.T) {
	cfg := config.Default()
	cfg.Root = "/music"
	cfg.Mode = "fuzzy"
	_, err := requestFor(cfg, catalog.Overrides{})
	assert.ErrorContains(t, err, "fuzzy")

	cfg.Mode = "metadata"
	req, err := requestFor(cfg, catalog.Overrides{})
	require.NoError(t, err)
	r := req()
	assert.Equal(t, scan.MetadataKey, r.Mode)
	assert.Equal(t, "/music", r.Root)
}

func TestConsoleAnnouncesStopOnce(t *testing.T) {
	mon := monitor.New()
	var out bytes.Buffer
	c := newConsole(&out, false)

	c.poll(mon)
	assert.NotContains(t, out.String(), "Stopping scan...")

	mon.Stop()
	c.poll(mon)
	c.poll(mon)
	assert.Equal(t, 1, strings.Count(out.String(), "Stopping scan..."))
}

func TestRunTrashCommandListAndRestore(t *testing.T) {
	root := t.TempDir()
	orig := filepath.Join(root, "song.mp3")
	require.NoError(t, os.WriteFile(orig, []byte("audio"), 0o644))
	tm := trash.New(t.TempDir(), 30)
	item, err := tm.MoveToTrash(orig)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runTrashCommand(&out, tm, options{listTrash: true}))
	assert.Contains(t, out.String(), item.TrashPath)
	assert.Contains(t, out.String(), "-> "+orig)
	assert.Contains(t, out.String(), "1 files, 5 B in trash")

	out.Reset()
	require.NoError(t, runTrashCommand(&out, tm, options{restore: item.TrashPath}))
	assert.FileExists(t, orig)
	assert.Contains(t, out.String(), "Restored "+item.TrashPath)

	err = runTrashCommand(&out, tm, options{restore: item.TrashPath})
	assert.ErrorIs(t, err, trash.ErrNotTrashed)

	out.Reset()
	require.NoError(t, runTrashCommand(&out, tm, options{listTrash: true}))
	assert.Contains(t, out.String(), "0 files, 0 B in trash")
}

func TestRunTrashCommandRestoreConflict(t *testing.T) {
	orig := filepath.Join(t.TempDir(), "song.mp3")
	require.NoError(t, os.WriteFile(orig, []byte("old"), 0o644))
	tm := trash.New(t.TempDir(), 30)
	item, err := tm.MoveToTrash(orig)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(orig, []byte("new"), 0o644))

	err = runTrashCommand(&bytes.Buffer{}, tm, options{restore: item.TrashPath})
	var conflict *trash.ErrRestoreConflict
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, orig, conflict.Path)
	assert.FileExists(t, item.TrashPath)
}
