package lazyvec

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    persistHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordPersist(duration time.Duration, err error) {
//	    p.persistHistogram.Observe(duration.Seconds())
//	}
type MetricsCollector interface {
	// RecordPersist is called after each persist of a root value.
	RecordPersist(duration time.Duration, err error)

	// RecordLoad is called after each top-level load.
	RecordLoad(duration time.Duration, err error)

	// RecordProp is called after each property read or write.
	// bytes is the payload size.
	RecordProp(write bool, bytes int, err error)

	// RecordArchive is called after each archive run.
	RecordArchive(versions int, bytes int64, duration time.Duration, err error)

	// RecordRestore is called after each restored version file.
	RecordRestore(bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordPersist(time.Duration, error)             {}
func (NoopMetricsCollector) RecordLoad(time.Duration, error)                {}
func (NoopMetricsCollector) RecordProp(bool, int, error)                    {}
func (NoopMetricsCollector) RecordArchive(int, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordRestore(int64, time.Duration, error)      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	PersistCount      atomic.Int64
	PersistErrors     atomic.Int64
	PersistTotalNanos atomic.Int64
	LoadCount         atomic.Int64
	LoadErrors        atomic.Int64
	LoadTotalNanos    atomic.Int64
	PropWrites        atomic.Int64
	PropReads         atomic.Int64
	PropBytes         atomic.Int64
	PropErrors        atomic.Int64
	ArchiveCount      atomic.Int64
	ArchiveErrors     atomic.Int64
	ArchivedVersions  atomic.Int64
	ArchivedBytes     atomic.Int64
	RestoreCount      atomic.Int64
	RestoreErrors     atomic.Int64
	RestoredBytes     atomic.Int64
}

// RecordPersist implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPersist(duration time.Duration, err error) {
	b.PersistCount.Add(1)
	b.PersistTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PersistErrors.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(duration time.Duration, err error) {
	b.LoadCount.Add(1)
	b.LoadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordProp implements MetricsCollector.
func (b *BasicMetricsCollector) RecordProp(write bool, bytes int, err error) {
	if write {
		b.PropWrites.Add(1)
	} else {
		b.PropReads.Add(1)
	}
	if err != nil {
		b.PropErrors.Add(1)
		return
	}
	b.PropBytes.Add(int64(bytes))
}

// RecordArchive implements MetricsCollector.
func (b *BasicMetricsCollector) RecordArchive(versions int, bytes int64, _ time.Duration, err error) {
	b.ArchiveCount.Add(1)
	if err != nil {
		b.ArchiveErrors.Add(1)
		return
	}
	b.ArchivedVersions.Add(int64(versions))
	b.ArchivedBytes.Add(bytes)
}

// RecordRestore implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRestore(bytes int64, _ time.Duration, err error) {
	b.RestoreCount.Add(1)
	if err != nil {
		b.RestoreErrors.Add(1)
		return
	}
	b.RestoredBytes.Add(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		PersistCount:     b.PersistCount.Load(),
		PersistErrors:    b.PersistErrors.Load(),
		PersistAvgNanos:  avg(b.PersistTotalNanos.Load(), b.PersistCount.Load()),
		LoadCount:        b.LoadCount.Load(),
		LoadErrors:       b.LoadErrors.Load(),
		LoadAvgNanos:     avg(b.LoadTotalNanos.Load(), b.LoadCount.Load()),
		PropWrites:       b.PropWrites.Load(),
		PropReads:        b.PropReads.Load(),
		PropBytes:        b.PropBytes.Load(),
		PropErrors:       b.PropErrors.Load(),
		ArchiveCount:     b.ArchiveCount.Load(),
		ArchiveErrors:    b.ArchiveErrors.Load(),
		ArchivedVersions: b.ArchivedVersions.Load(),
		ArchivedBytes:    b.ArchivedBytes.Load(),
		RestoreCount:     b.RestoreCount.Load(),
		RestoreErrors:    b.RestoreErrors.Load(),
		RestoredBytes:    b.RestoredBytes.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	PersistCount     int64
	PersistErrors    int64
	PersistAvgNanos  int64
	LoadCount        int64
	LoadErrors       int64
	LoadAvgNanos     int64
	PropWrites       int64
	PropReads        int64
	PropBytes        int64
	PropErrors       int64
	ArchiveCount     int64
	ArchiveErrors    int64
	ArchivedVersions int64
	ArchivedBytes    int64
	RestoreCount     int64
	RestoreErrors    int64
	RestoredBytes    int64
}
