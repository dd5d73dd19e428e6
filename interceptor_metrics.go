package modbus

import (
	"context"
	"sync"
	"time"
)

// MetricsCollector collects per-operation counts, errors and durations.
// It is safe for concurrent use.
//
// Example:
//
//	metrics := modbus.NewMetricsCollector()
//	client := modbus.NewClient(transport, modbus.WithInterceptor(metrics.Interceptor()))
//
//	count, errors, avg := metrics.Stats(modbus.OpReadWriteRegisters)
type MetricsCollector struct {
	mu            sync.RWMutex
	operations    map[OperationType]int64
	errors        map[OperationType]int64
	totalDuration map[OperationType]time.Duration
}

// NewMetricsCollector returns an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		operations:    make(map[OperationType]int64),
		errors:        make(map[OperationType]int64),
		totalDuration: make(map[OperationType]time.Duration),
	}
}

// Interceptor returns an interceptor feeding this collector.
func (m *MetricsCollector) Interceptor() Interceptor {
	return func(ctx context.Context, info *InterceptorInfo, invoke Invoker) (interface{}, error) {
		start := time.Now()

		result, err := invoke(ctx)

		duration := time.Since(start)
		m.mu.Lock()
		m.operations[info.Operation]++
		m.totalDuration[info.Operation] += duration
		if err != nil {
			m.errors[info.Operation]++
		}
		m.mu.Unlock()

		return result, err
	}
}

// Stats returns count, error count and average duration for an operation.
func (m *MetricsCollector) Stats(op OperationType) (count int64, errors int64, avgDuration time.Duration) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count = m.operations[op]
	errors = m.errors[op]
	if count > 0 {
		avgDuration = m.totalDuration[op] / time.Duration(count)
	}
	return
}

// Reset clears all collected metrics.
func (m *MetricsCollector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.operations = make(map[OperationType]int64)
	m.errors = make(map[OperationType]int64)
	m.totalDuration = make(map[OperationType]time.Duration)
}
