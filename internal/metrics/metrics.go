// Package metrics exposes Prometheus counters for the indexing pipeline.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"claimingIndexer/internal/indexer"
	"claimingIndexer/internal/mapping"
	"claimingIndexer/internal/model"
)

const unknownKind = "unknown"

// Metrics holds the collectors of one indexer process on its own registry.
type Metrics struct {
	registry      *prometheus.Registry
	logsTotal     *prometheus.CounterVec
	writesTotal   *prometheus.CounterVec
	writeDuration *prometheus.HistogramVec
	lastBlock     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		logsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "indexer_logs_total", Help: "Logs processed by kind and outcome"},
			[]string{"kind", "outcome"},
		),
		writesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "indexer_record_writes_total", Help: "Record upserts by kind and result"},
			[]string{"kind", "result"},
		),
		writeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "indexer_record_write_duration_seconds", Help: "Record upsert latency", Buckets: prometheus.DefBuckets},
			[]string{"kind"},
		),
		lastBlock: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "indexer_checkpoint_block", Help: "Last block recorded in the checkpoint"},
		),
	}
	m.registry.MustRegister(m.logsTotal, m.writesTotal, m.writeDuration, m.lastBlock)
	return m
}

// Registry returns the registry all collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveLog implements indexer.Observer.
func (m *Metrics) ObserveLog(kind model.Kind, outcome indexer.Outcome) {
	m.logsTotal.WithLabelValues(kindLabel(kind), string(outcome)).Inc()
}

// InstrumentStore wraps store so that every upsert is counted and timed.
func (m *Metrics) InstrumentStore(store mapping.Store) mapping.Store {
	return &instrumentedStore{next: store, metrics: m}
}

// InstrumentCheckpoint wraps cp so that saved blocks are exported as a gauge.
func (m *Metrics) InstrumentCheckpoint(cp indexer.CheckpointStore) indexer.CheckpointStore {
	return &instrumentedCheckpoint{next: cp, gauge: m.lastBlock}
}

type instrumentedStore struct {
	next    mapping.Store
	metrics *Metrics
}

func (s *instrumentedStore) Upsert(ctx context.Context, kind model.Kind, id model.RecordID, record model.Record) error {
	start := time.Now()
	err := s.next.Upsert(ctx, kind, id, record)
	label := kindLabel(kind)
	s.metrics.writeDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.writesTotal.WithLabelValues(label, result).Inc()
	return err
}

type instrumentedCheckpoint struct {
	next  indexer.CheckpointStore
	gauge prometheus.Gauge
}

func (c *instrumentedCheckpoint) Load(ctx context.Context) (uint64, bool, error) {
	block, ok, err := c.next.Load(ctx)
	if err == nil && ok {
		c.gauge.Set(float64(block))
	}
	return block, ok, err
}

func (c *instrumentedCheckpoint) Save(ctx context.Context, lastProcessed uint64) error {
	if err := c.next.Save(ctx, lastProcessed); err != nil {
		return err
	}
	c.gauge.Set(float64(lastProcessed))
	return nil
}

func kindLabel(kind model.Kind) string {
	if kind == "" {
		return unknownKind
	}
	return string(kind)
}
