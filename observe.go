package vecstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// storeMetrics holds prometheus metrics registered for store operations.
type storeMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	cache      *prometheus.CounterVec
}

func newStoreMetrics(reg prometheus.Registerer) (*storeMetrics, error) {
	m := &storeMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vecstore",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total store operations by type and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vecstore",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vecstore",
			Subsystem: "store",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache lookups by result.",
		}, []string{"result"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.cache); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("vecstore: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("vecstore: register metric: %w", err)
	}
	return nil
}

// observer logs and measures store operations.
type observer struct {
	logger  *zap.Logger
	metrics *storeMetrics
}

func newObserver(logger *zap.Logger, reg prometheus.Registerer) (*observer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var m *storeMetrics
	if reg != nil {
		var err error
		m, err = newStoreMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

// observe records one finished operation. fields carry the operation context
// (collection, dimensions, counts).
func (o *observer) observe(op string, start time.Time, err error, fields ...zap.Field) {
	if o == nil {
		return
	}
	dur := time.Since(start)

	if o.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	fields = append(fields, zap.String("op", op), zap.Duration("duration", dur))
	if err != nil {
		o.logger.Warn("Store operation failed", append(fields, zap.Error(err))...)
		return
	}
	o.logger.Debug("Store operation completed", fields...)
}
