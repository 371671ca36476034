package metric

import "github.com/prometheus/client_golang/prometheus"

// StatsFunc reports live storage counts. Returning ok=false skips the
// scrape, for example while the backend is shutting down.
type StatsFunc func() (sessions, records int, ok bool)

// StorageCollector exports storage counts read from the active backend
// at scrape time, so the numbers cannot drift the way hand-maintained
// gauges do.
type StorageCollector struct {
	stats        StatsFunc
	sessionsDesc *prometheus.Desc
	recordsDesc  *prometheus.Desc
}

// NewStorageCollector creates a collector backed by the given stats
// source.
func NewStorageCollector(stats StatsFunc) *StorageCollector {
	return &StorageCollector{
		stats: stats,
		sessionsDesc: prometheus.NewDesc(
			"rollcall_storage_sessions",
			"Sessions currently stored.",
			nil, nil),
		recordsDesc: prometheus.NewDesc(
			"rollcall_storage_attendance_records",
			"Attendance records currently stored.",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *StorageCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sessionsDesc
	ch <- c.recordsDesc
}

// Collect implements prometheus.Collector.
func (c *StorageCollector) Collect(ch chan<- prometheus.Metric) {
	sessions, records, ok := c.stats()
	if !ok {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.sessionsDesc, prometheus.GaugeValue, float64(sessions))
	ch <- prometheus.MustNewConstMetric(c.recordsDesc, prometheus.GaugeValue, float64(records))
}

var _ prometheus.Collector = (*StorageCollector)(nil)
