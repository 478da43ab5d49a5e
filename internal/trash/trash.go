// Package trash moves user-selected duplicates out of the scanned tree
// instead of deleting them, and purges them once their retention expires.
//
// Layout: trashDir/YYYY-MM-DD/<unix_nano>_<basename>, with a YAML sidecar
// (<trash path>.yaml) recording where the file came from.
package trash

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	dateLayout    = "2006-01-02"
	sidecarSuffix = ".yaml"
)

// ErrNotTrashed is returned when a path is not a trashed file.
var ErrNotTrashed = errors.New("trash item not found or already purged/restored")

// ErrRestoreConflict is returned when the restore target path is already occupied.
type ErrRestoreConflict struct {
	Path string
}

func (e *ErrRestoreConflict) Error() string {
	return fmt.Sprintf("a file already exists at %q", e.Path)
}

// Item describes one trashed file.
type Item struct {
	OriginalPath string    `yaml:"original_path"`
	TrashPath    string    `yaml:"-"`
	Size         int64     `yaml:"size"`
	TrashedAt    time.Time `yaml:"trashed_at"`
}

// Manager handles moving files to, from and out of the trash directory.
type Manager struct {
	trashDir      string
	retentionDays int
	now           func() time.Time
}

// New creates a trash Manager. retentionDays <= 0 disables AutoPurge.
func New(trashDir string, retentionDays int) *Manager {
	return &Manager{trashDir: trashDir, retentionDays: retentionDays, now: time.Now}
}

// MoveToTrash moves the file at originalPath into the trash directory and
// returns the trashed item.
func (m *Manager) MoveToTrash(originalPath string) (Item, error) {
	info, err := os.Stat(originalPath)
	if err != nil {
		return Item{}, fmt.Errorf("stat %q: %w", originalPath, err)
	}
	if !info.Mode().IsRegular() {
		return Item{}, fmt.Errorf("%q is not a regular file", originalPath)
	}

	now := m.now()
	item := Item{
		OriginalPath: originalPath,
		TrashPath:    m.buildTrashPath(originalPath, now),
		Size:         info.Size(),
		TrashedAt:    now,
	}

	if err := os.MkdirAll(filepath.Dir(item.TrashPath), 0o755); err != nil {
		return Item{}, fmt.Errorf("create trash subdir: %w", err)
	}
	if err := moveFile(originalPath, item.TrashPath); err != nil {
		return Item{}, fmt.Errorf("move to trash: %w", err)
	}
	if err := writeSidecar(item); err != nil {
		// Best-effort rollback.
		if rerr := moveFile(item.TrashPath, originalPath); rerr != nil {
			slog.Error("rollback move-to-trash failed", "path", originalPath, "error", rerr)
		}
		return Item{}, fmt.Errorf("record trash item: %w", err)
	}

	slog.Info("file trashed", "path", originalPath, "trash_path", item.TrashPath)
	return item, nil
}

// Restore moves a trashed file back to its original path.
func (m *Manager) Restore(trashPath string) error {
	item, err := readSidecar(trashPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(item.OriginalPath); err == nil {
		return &ErrRestoreConflict{Path: item.OriginalPath}
	}
	if err := os.MkdirAll(filepath.Dir(item.OriginalPath), 0o755); err != nil {
		return fmt.Errorf("recreate restore dir: %w", err)
	}
	if err := moveFile(trashPath, item.OriginalPath); err != nil {
		return fmt.Errorf("restore file: %w", err)
	}
	if err := os.Remove(trashPath + sidecarSuffix); err != nil {
		slog.Warn("remove trash sidecar", "path", trashPath, "error", err)
	}
	slog.Info("file restored", "path", item.OriginalPath)
	return nil
}

// List returns every trashed item, oldest first.
func (m *Manager) List() ([]Item, error) {
	var items []Item
	for _, day := range m.dateDirs() {
		entries, err := os.ReadDir(filepath.Join(m.trashDir, day))
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasSuffix(e.Name(), sidecarSuffix) {
				continue
			}
			item, err := readSidecar(filepath.Join(m.trashDir, day, e.Name()))
			if err != nil {
				slog.Warn("unreadable trash item", "path", e.Name(), "error", err)
				continue
			}
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].TrashedAt.Before(items[j].TrashedAt) })
	return items, nil
}

// PurgeAll immediately deletes every trashed file.
func (m *Manager) PurgeAll(ctx context.Context) (count int64, bytesFreed int64, err error) {
	return m.purge(ctx, func(time.Time) bool { return true })
}

// AutoPurge deletes the trash days older than the retention period.
// Intended to be called by the scheduler.
func (m *Manager) AutoPurge(ctx context.Context) error {
	if m.retentionDays <= 0 {
		return nil
	}
	cutoff := m.now().AddDate(0, 0, -m.retentionDays)
	count, bytes, err := m.purge(ctx, func(day time.Time) bool { return day.Before(cutoff) })
	if err != nil {
		return err
	}
	if count > 0 {
		slog.Info("auto-purge complete", "files_purged", count, "bytes_freed", bytes)
	}
	return nil
}

// ── private helpers ────────────────────────────────────────────────────────

// buildTrashPath returns a unique path inside trashDir for the given original file.
func (m *Manager) buildTrashPath(originalPath string, now time.Time) string {
	filename := fmt.Sprintf("%d_%s", now.UnixNano(), filepath.Base(originalPath))
	return filepath.Join(m.trashDir, now.Format(dateLayout), filename)
}

// dateDirs returns the date-named subdirectories of trashDir, sorted.
func (m *Manager) dateDirs() []string {
	entries, err := os.ReadDir(m.trashDir)
	if err != nil {
		return nil
	}
	var days []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(dateLayout, e.Name()); err == nil {
			days = append(days, e.Name())
		}
	}
	sort.Strings(days)
	return days
}

func (m *Manager) purge(ctx context.Context, expired func(day time.Time) bool) (count int64, bytesFreed int64, err error) {
	for _, name := range m.dateDirs() {
		if ctx.Err() != nil {
			return count, bytesFreed, ctx.Err()
		}
		day, _ := time.ParseInLocation(dateLayout, name, time.Local)
		if !expired(day) {
			continue
		}
		dir := filepath.Join(m.trashDir, name)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return count, bytesFreed, err
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasSuffix(e.Name(), sidecarSuffix) {
				continue
			}
			info, err := e.Info()
			if err == nil {
				bytesFreed += info.Size()
			}
			count++
		}
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("purge: remove dir failed", "path", dir, "error", err)
		}
	}
	return count, bytesFreed, nil
}

func writeSidecar(item Item) error {
	data, err := yaml.Marshal(item)
	if err != nil {
		return err
	}
	return os.WriteFile(item.TrashPath+sidecarSuffix, data, 0o644)
}

func readSidecar(trashPath string) (Item, error) {
	data, err := os.ReadFile(trashPath + sidecarSuffix)
	if errors.Is(err, os.ErrNotExist) {
		return Item{}, ErrNotTrashed
	}
	if err != nil {
		return Item{}, err
	}
	var item Item
	if err := yaml.Unmarshal(data, &item); err != nil {
		return Item{}, fmt.Errorf("parse trash sidecar: %w", err)
	}
	item.TrashPath = trashPath
	return item, nil
}

// moveFile tries os.Rename first; falls back to copy+delete on cross-device errors.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var le *os.LinkError
	if errors.As(err, &le) && errors.Is(le.Err, syscall.EXDEV) {
		return copyThenDelete(src, dst)
	}
	return err
}

// copyThenDelete copies src to dst then removes src. dst is cleaned up on error.
func copyThenDelete(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		out.Close()
		if err != nil {
			os.Remove(dst)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	in.Close()
	return os.Remove(src)
}
