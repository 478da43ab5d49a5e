// Package metrics counts scan activity. There is no HTTP listener; the
// registry is written to a node-exporter textfile after each scan.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Error kinds used as the "kind" label of ScanErrors.
const (
	KindUnknownExtension = "unknown_extension"
	KindMetadataRead     = "metadata_read"
	KindChecksumRead     = "checksum_read"
	KindReportWrite      = "report_write"
	KindWalk             = "walk"
)

// Metrics owns its own registry so several instances can coexist in tests.
// All methods are safe on a nil receiver.
type Metrics struct {
	reg *prometheus.Registry

	FilesScanned      prometheus.Counter
	ScanErrors        *prometheus.CounterVec
	DuplicatesFound   prometheus.Counter
	BytesHashed       prometheus.Counter
	ScansTotal        *prometheus.CounterVec
	ScanProgress      prometheus.Gauge
	LastScanDuration  prometheus.Gauge
	LastScanTimestamp prometheus.Gauge
	ReclaimableBytes  prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		FilesScanned: f.NewCounter(prometheus.CounterOpts{
			Name: "dupefinder_files_scanned_total",
			Help: "Total number of files accepted by the walker",
		}),
		ScanErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dupefinder_scan_errors_total",
			Help: "Total number of per-entry scan errors",
		}, []string{"kind"}),
		DuplicatesFound: f.NewCounter(prometheus.CounterOpts{
			Name: "dupefinder_duplicates_found_total",
			Help: "Total number of confirmed duplicate files",
		}),
		BytesHashed: f.NewCounter(prometheus.CounterOpts{
			Name: "dupefinder_bytes_hashed_total",
			Help: "Total number of bytes read while checksumming",
		}),
		ScansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dupefinder_scans_total",
			Help: "Total number of scans by final status",
		}, []string{"status"}),
		ScanProgress: f.NewGauge(prometheus.GaugeOpts{
			Name: "dupefinder_scan_progress",
			Help: "Progress fraction of the current scan phase",
		}),
		LastScanDuration: f.NewGauge(prometheus.GaugeOpts{
			Name: "dupefinder_last_scan_duration_seconds",
			Help: "Duration of the last finished scan",
		}),
		LastScanTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "dupefinder_last_scan_timestamp_seconds",
			Help: "Unix time the last scan finished",
		}),
		ReclaimableBytes: f.NewGauge(prometheus.GaugeOpts{
			Name: "dupefinder_reclaimable_bytes",
			Help: "Bytes that removing all but one copy of each duplicate set would free",
		}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) FileScanned() {
	if m == nil {
		return
	}
	m.FilesScanned.Inc()
}

func (m *Metrics) ScanError(kind string) {
	if m == nil {
		return
	}
	m.ScanErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) Duplicates(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DuplicatesFound.Add(float64(n))
}

func (m *Metrics) Hashed(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesHashed.Add(float64(n))
}

func (m *Metrics) Progress(p float64) {
	if m == nil {
		return
	}
	m.ScanProgress.Set(p)
}

// ScanFinished records the outcome of one scan.
func (m *Metrics) ScanFinished(status string, d time.Duration, reclaimable int64) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(status).Inc()
	m.LastScanDuration.Set(d.Seconds())
	m.LastScanTimestamp.Set(float64(time.Now().Unix()))
	m.ReclaimableBytes.Set(float64(reclaimable))
}

// WriteTextfile writes the registry in the text exposition format. The file is
// replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.reg)
}
