package blockdb

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes the metadata aggregate and read-cache counters as
// Prometheus metrics.  Register it alongside the DB it wraps:
//
//	prometheus.MustRegister(blockdb.NewCollector(db))
type Collector struct {
	db *DB

	entryCount   *prometheus.Desc
	dataSize     *prometheus.Desc
	latestHeight *prometheus.Desc
	cacheHits    *prometheus.Desc
	cacheMisses  *prometheus.Desc
}

// NewCollector returns a Collector reporting on db.
func NewCollector(db *DB) *Collector {
	return &Collector{
		db: db,
		entryCount: prometheus.NewDesc("blockdb_entries_total",
			"Number of records stored in the database.", nil, nil),
		dataSize: prometheus.NewDesc("blockdb_data_bytes",
			"Cumulative payload bytes in the data log.", nil, nil),
		latestHeight: prometheus.NewDesc("blockdb_latest_height",
			"Highest height ever written.", nil, nil),
		cacheHits: prometheus.NewDesc("blockdb_cache_hits_total",
			"Read-cache hits.", nil, nil),
		cacheMisses: prometheus.NewDesc("blockdb_cache_misses_total",
			"Read-cache misses.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entryCount
	ch <- c.dataSize
	ch <- c.latestHeight
	ch <- c.cacheHits
	ch <- c.cacheMisses
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.db.Stats()
	ch <- prometheus.MustNewConstMetric(c.entryCount,
		prometheus.CounterValue, float64(stats.EntryCount))
	ch <- prometheus.MustNewConstMetric(c.dataSize,
		prometheus.GaugeValue, float64(stats.DataSize))
	ch <- prometheus.MustNewConstMetric(c.latestHeight,
		prometheus.GaugeValue, float64(stats.LatestHeight))
	ch <- prometheus.MustNewConstMetric(c.cacheHits,
		prometheus.CounterValue, float64(c.db.cacheHits.Load()))
	ch <- prometheus.MustNewConstMetric(c.cacheMisses,
		prometheus.CounterValue, float64(c.db.cacheMisses.Load()))
}
