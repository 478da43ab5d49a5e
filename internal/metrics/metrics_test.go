package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.FileScanned()
	m.FileScanned()
	m.ScanError(KindUnknownExtension)
	m.Duplicates(3)
	m.Duplicates(-1)
	m.Hashed(512)
	m.ScanFinished("completed", 2*time.Second, 1024)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FilesScanned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanErrors.WithLabelValues(KindUnknownExtension)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DuplicatesFound))
	assert.Equal(t, 512.0, testutil.ToFloat64(m.BytesHashed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues("completed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LastScanDuration))
	assert.Equal(t, 1024.0, testutil.ToFloat64(m.ReclaimableBytes))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.FileScanned()
	m.ScanError(KindWalk)
	m.Duplicates(1)
	m.Hashed(1)
	m.Progress(0.5)
	m.ScanFinished("completed", time.Second, 0)
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
	assert.Nil(t, m.Registry())
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.FileScanned()
	path := filepath.Join(t.TempDir(), "dupefinder.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dupefinder_files_scanned_total 1")
}
