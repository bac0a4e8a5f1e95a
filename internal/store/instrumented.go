package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/todo-api/internal/model"
)

// StoreMetrics holds the Prometheus collectors recorded by InstrumentedStore.
type StoreMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewStoreMetrics creates the store collectors and registers them with reg.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todo_store_operations_total",
				Help: "Total number of todo store operations by result",
			},
			[]string{"operation", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "todo_store_operation_duration_seconds",
				Help:    "Todo store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.operations, m.duration)
	}

	return m
}

// InstrumentedStore decorates a Store with operation metrics.
type InstrumentedStore struct {
	next    Store
	metrics *StoreMetrics
}

// NewInstrumentedStore wraps next so every call is counted and timed.
func NewInstrumentedStore(next Store, metrics *StoreMetrics) *InstrumentedStore {
	return &InstrumentedStore{next: next, metrics: metrics}
}

func (s *InstrumentedStore) observe(operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = KindOf(err).String()
	}
	s.metrics.operations.WithLabelValues(operation, result).Inc()
	s.metrics.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Create implements Store.
func (s *InstrumentedStore) Create(ctx context.Context, input model.CreateTodo) (*model.Todo, error) {
	start := time.Now()
	todo, err := s.next.Create(ctx, input)
	s.observe("create", start, err)
	return todo, err
}

// Find implements Store.
func (s *InstrumentedStore) Find(ctx context.Context, id int64) (*model.Todo, error) {
	start := time.Now()
	todo, err := s.next.Find(ctx, id)
	s.observe("find", start, err)
	return todo, err
}

// All implements Store.
func (s *InstrumentedStore) All(ctx context.Context) ([]model.Todo, error) {
	start := time.Now()
	todos, err := s.next.All(ctx)
	s.observe("all", start, err)
	return todos, err
}

// Update implements Store.
func (s *InstrumentedStore) Update(ctx context.Context, id int64, input model.UpdateTodo) (*model.Todo, error) {
	start := time.Now()
	todo, err := s.next.Update(ctx, id, input)
	s.observe("update", start, err)
	return todo, err
}

// Delete implements Store.
func (s *InstrumentedStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.next.Delete(ctx, id)
	s.observe("delete", start, err)
	return err
}

// Ping implements Store. Probes are not counted.
func (s *InstrumentedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close implements Store.
func (s *InstrumentedStore) Close() error {
	return s.next.Close()
}
