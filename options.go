package lazyvec

import (
	"github.com/hupe1980/lazyvec/codec"
	"github.com/hupe1980/lazyvec/internal/buffered"
	"github.com/hupe1980/lazyvec/internal/fs"
	"github.com/hupe1980/lazyvec/internal/props"
	"github.com/hupe1980/lazyvec/internal/serialize"
	"github.com/hupe1980/lazyvec/roots"
)

// FileSystem abstracts the file operations of a DB. Tests use it to inject faults.
type FileSystem = fs.FileSystem

// Compression selects how property payloads are stored.
type Compression = props.Compression

// Supported property compressions.
const (
	CompressionNone = props.CompressionNone
	CompressionLZ4  = props.CompressionLZ4
	CompressionZSTD = props.CompressionZSTD
)

type options struct {
	logger            *Logger
	metricsCollector  MetricsCollector
	codec             codec.Codec
	compression       Compression
	fileSystem        FileSystem
	catalog           roots.Catalog
	maxLoads          int
	cacheCapacity     int
	pageSize          int
	ioLimit           int64
	backgroundWorkers int64
	archivePrefix     string
}

func defaultOptions() options {
	return options{
		logger:            NoopLogger(),
		metricsCollector:  NoopMetricsCollector{},
		codec:             codec.Default,
		compression:       CompressionNone,
		fileSystem:        fs.Default,
		maxLoads:          serialize.DefaultMaxLoads,
		cacheCapacity:     serialize.DefaultCapacity,
		pageSize:          buffered.DefaultPageSize,
		backgroundWorkers: 4,
		archivePrefix:     "versions/",
	}
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metricsCollector = m
	}
}

// WithCodec configures the codec used for property payloads and the root catalog file.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression sets the compression of property payloads.
// A payload is stored uncompressed when compression saves less than 10%.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithFileSystem sets the file system the DB performs IO through.
func WithFileSystem(fsys FileSystem) Option {
	return func(o *options) {
		if fsys == nil {
			fsys = fs.Default
		}
		o.fileSystem = fsys
	}
}

// WithCatalog sets the catalog of named roots. Defaults to a file catalog
// inside the DB directory.
func WithCatalog(c roots.Catalog) Option {
	return func(o *options) {
		o.catalog = c
	}
}

// WithMaxLoads sets how many nested levels a load resolves eagerly.
// Deeper references stay unresolved until accessed.
func WithMaxLoads(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxLoads = n
		}
	}
}

// WithCacheCapacity bounds the number of clean values kept resident.
// Zero disables eviction.
func WithCacheCapacity(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.cacheCapacity = n
		}
	}
}

// WithPageSize sets the page size of the version file buffers.
func WithPageSize(n int) Option {
	return func(o *options) {
		o.pageSize = n
	}
}

// WithIOLimit caps flush, archive and restore throughput in bytes per second.
// Zero means unlimited.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = bytesPerSec
	}
}

// WithBackgroundWorkers bounds the number of concurrent archive and restore transfers.
func WithBackgroundWorkers(n int64) Option {
	return func(o *options) {
		o.backgroundWorkers = n
	}
}

// WithArchivePrefix sets the blob name prefix used by Archive and Restore.
func WithArchivePrefix(prefix string) Option {
	return func(o *options) {
		o.archivePrefix = prefix
	}
}
